package genes

import (
	"slices"
	"sort"

	"github.com/jamesvanalstine/pypgx/internal/region"
)

// Index answers which genes of one build contain a position. Chromosomes
// are matched on their bare label, so "chr22" and "22" are the same.
type Index struct {
	build   Build
	byChrom map[string]*geneIntervals
}

// geneIntervals is a sorted-slice interval index: O(log n + k) queries.
type geneIntervals struct {
	spans  []span
	maxEnd []int // maxEnd[i] = max(end) for spans[:i+1]
}

type span struct {
	start, end int
	gene       *Gene
}

// Index builds a position index over the genes that have a parseable
// region in build. Genes without one are left out.
func (c *Catalog) Index(build Build) *Index {
	byChrom := make(map[string][]span)
	for _, g := range c.Genes() {
		r, err := c.LookupRegion(g.Name, build)
		if err != nil {
			continue
		}
		byChrom[r.Bare()] = append(byChrom[r.Bare()], span{start: r.Start, end: r.End, gene: g})
	}

	ix := &Index{build: build, byChrom: make(map[string]*geneIntervals, len(byChrom))}
	for chrom, spans := range byChrom {
		ix.byChrom[chrom] = newGeneIntervals(spans)
	}
	return ix
}

func newGeneIntervals(spans []span) *geneIntervals {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	maxEnd := make([]int, len(spans))
	maxEnd[0] = spans[0].end
	for i := 1; i < len(spans); i++ {
		maxEnd[i] = max(spans[i].end, maxEnd[i-1])
	}
	return &geneIntervals{spans: spans, maxEnd: maxEnd}
}

// Build returns the genome build the index was built for.
func (ix *Index) Build() Build {
	return ix.build
}

// At returns the genes whose region contains chrom:pos, ordered by region
// start.
func (ix *Index) At(chrom string, pos int) []*Gene {
	t := ix.byChrom[region.StripPrefix(chrom)]
	if t == nil {
		return nil
	}

	// Candidates are the spans starting at or before pos.
	hi := sort.Search(len(t.spans), func(i int) bool {
		return t.spans[i].start > pos
	})

	var out []*Gene
	for i := hi - 1; i >= 0; i-- {
		// Nothing at or left of i reaches pos.
		if t.maxEnd[i] < pos {
			break
		}
		if t.spans[i].end >= pos {
			out = append(out, t.spans[i].gene)
		}
	}
	slices.Reverse(out)
	return out
}
