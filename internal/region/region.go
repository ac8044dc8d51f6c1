// Package region provides the genomic interval model and canonical
// genome-order sorting used to traverse regions deterministically.
package region

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
)

// ChrPrefix is the chromosome-name prefix used by UCSC-style assemblies.
const ChrPrefix = "chr"

// Region is a contiguous chromosomal interval.
type Region struct {
	Chrom string // Chromosome label, with or without "chr"
	Start int    // 1-based, inclusive
	End   int    // 1-based, inclusive
}

// String formats the region as chrom:start-end.
func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Start, r.End)
}

// Width returns the number of positions covered by the region.
func (r Region) Width() int {
	return r.End - r.Start + 1
}

// Contains returns true if pos lies within the region.
func (r Region) Contains(pos int) bool {
	return pos >= r.Start && pos <= r.End
}

// Bare returns the chromosome label with a leading "chr" token removed.
func (r Region) Bare() string {
	return StripPrefix(r.Chrom)
}

// StripPrefix removes a single leading "chr" token from a chromosome label.
// A label that is exactly "chr" is returned unchanged.
func StripPrefix(chrom string) string {
	if len(chrom) > len(ChrPrefix) && strings.HasPrefix(chrom, ChrPrefix) {
		return chrom[len(ChrPrefix):]
	}
	return chrom
}

// Parse parses a "chrom:start-end" token.
func Parse(token string) (Region, error) {
	const op = "parse region"

	i := strings.LastIndexByte(token, ':')
	if i < 0 {
		return Region{}, pgxerr.Formatf(op, "%q: missing ':'", token)
	}
	chrom, span := token[:i], token[i+1:]
	if chrom == "" {
		return Region{}, pgxerr.Formatf(op, "%q: empty chromosome", token)
	}

	j := strings.IndexByte(span, '-')
	if j < 0 {
		return Region{}, pgxerr.Formatf(op, "%q: missing '-'", token)
	}

	start, err := parseBound(span[:j])
	if err != nil {
		return Region{}, pgxerr.Formatf(op, "%q: start: %v", token, err)
	}
	end, err := parseBound(span[j+1:])
	if err != nil {
		return Region{}, pgxerr.Formatf(op, "%q: end: %v", token, err)
	}
	if start > end {
		return Region{}, pgxerr.Formatf(op, "%q: start %d > end %d", token, start, end)
	}

	return Region{Chrom: chrom, Start: start, End: end}, nil
}

// parseBound parses a 1-based coordinate, accepting thousands separators.
func parseBound(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("must be >= 1, got %d", n)
	}
	return n, nil
}

// MustParse is like Parse but panics on error. For tests and literals.
func MustParse(token string) Region {
	r, err := Parse(token)
	if err != nil {
		panic(err)
	}
	return r
}
