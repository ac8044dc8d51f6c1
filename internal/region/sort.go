package region

import (
	"sort"
	"strconv"
)

// Chromosome ranks for the non-numeric human chromosomes.
const (
	RankX = 23
	RankY = 24
	RankM = 25
	// RankOther is shared by every unplaced or non-standard contig. Such
	// contigs are ordered among themselves by label.
	RankOther = 26
)

// Key is the canonical genome-order sort key of a region.
type Key struct {
	Rank  int
	Label string // bare chromosome label, tie-breaker within RankOther
	Start int
	End   int
}

// Rank maps a chromosome label to its genome-order rank. The label is
// compared as a whole token after removing a leading "chr", so "chrX" and
// "X" rank 23 while a contig such as "chrUn_gl000220" does not.
func Rank(chrom string) int {
	bare := StripPrefix(chrom)
	switch bare {
	case "X":
		return RankX
	case "Y":
		return RankY
	case "M", "MT":
		return RankM
	}
	if n, err := strconv.Atoi(bare); err == nil && n > 0 && n < RankX {
		return n
	}
	return RankOther
}

// CanonicalKey returns the sort key of r.
func CanonicalKey(r Region) Key {
	k := Key{Rank: Rank(r.Chrom), Start: r.Start, End: r.End}
	if k.Rank == RankOther {
		k.Label = r.Bare()
	}
	return k
}

// Compare returns -1, 0 or +1 depending on whether k sorts before, with or
// after o.
func (k Key) Compare(o Key) int {
	switch {
	case k.Rank != o.Rank:
		return cmpInt(k.Rank, o.Rank)
	case k.Label != o.Label:
		if k.Label < o.Label {
			return -1
		}
		return 1
	case k.Start != o.Start:
		return cmpInt(k.Start, o.Start)
	}
	return cmpInt(k.End, o.End)
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool { return k.Compare(o) < 0 }

// Compare orders two regions by their canonical keys.
func Compare(a, b Region) int {
	return CanonicalKey(a).Compare(CanonicalKey(b))
}

// Sort returns a copy of regions in ascending canonical order. The sort is
// stable, so regions with equal keys keep their relative input order.
func Sort(regions []Region) []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i], out[j]) < 0
	})
	return out
}

// IsSorted reports whether regions are in canonical order.
func IsSorted(regions []Region) bool {
	return sort.SliceIsSorted(regions, func(i, j int) bool {
		return Compare(regions[i], regions[j]) < 0
	})
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
