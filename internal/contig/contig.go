// Package contig reconciles chromosome-naming conventions across alignment
// files.
//
// Reference assemblies disagree on whether chromosome names carry a "chr"
// prefix. A BAM file queried with the wrong convention has no such contig,
// so the convention is resolved from the file headers before any region is
// queried.
package contig

import (
	"strings"

	"github.com/jamesvanalstine/pypgx/internal/region"
)

// DetectPrefix returns region.ChrPrefix if any contig name starts with it,
// and the empty string otherwise.
func DetectPrefix(names []string) string {
	for _, n := range names {
		if strings.HasPrefix(n, region.ChrPrefix) {
			return region.ChrPrefix
		}
	}
	return ""
}

// ApplyPrefix returns the locus string used to query r: the bare chromosome
// label prefixed with prefix, followed by ":start-end".
func ApplyPrefix(r region.Region, prefix string) string {
	return region.Region{
		Chrom: prefix + r.Bare(),
		Start: r.Start,
		End:   r.End,
	}.String()
}

// Union merges per-file contig lists into a single list without duplicates,
// keeping the order in which names are first seen.
func Union(perFile [][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, names := range perFile {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
