// Package alignment provides access to alignment (BAM) files: header
// introspection and dense per-base depth queries.
package alignment

import (
	"context"
	"strings"
)

// DefaultMinMapQ is the lowest mapping quality counted towards depth.
// Unmapped and zero-quality alignments are excluded.
const DefaultMinMapQ = 1

// Source is the capability the coverage pipeline needs from alignment files.
type Source interface {
	// ReadHeaderContigs returns the reference sequence names declared in the
	// header of the file at path, in header order.
	ReadHeaderContigs(ctx context.Context, path string) ([]string, error)

	// ReadHeader reads the header of the file at path once and returns its
	// reference sequence names and its sample names (read group SM tags).
	ReadHeader(ctx context.Context, path string) (contigs, samples []string, err error)

	// QueryDepth computes per-base depth over locus ("chrom:start-end") for
	// every file in paths. The result is newline-delimited rows of
	// chrom, pos, then one depth per file, separated by tabs. Every position
	// in the locus is reported, including positions with zero depth. A file
	// whose header does not declare the locus contig is an IO error.
	QueryDepth(ctx context.Context, paths []string, locus string, minMapQ int) (string, error)
}

// parseHeaderText extracts @SQ SN and @RG SM values from SAM header text.
// Fields are matched on their exact two-letter tag.
func parseHeaderText(text string) (contigs, samples []string) {
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
		var tag string
		switch fields[0] {
		case "@SQ":
			tag = "SN:"
		case "@RG":
			tag = "SM:"
		default:
			continue
		}
		for _, f := range fields[1:] {
			if v, ok := strings.CutPrefix(f, tag); ok {
				if fields[0] == "@SQ" {
					contigs = append(contigs, v)
				} else if !contains(samples, v) {
					samples = append(samples, v)
				}
				break
			}
		}
	}
	return contigs, samples
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
