// Package alignmenttest provides an in-memory alignment.Source for tests.
package alignmenttest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
	"github.com/jamesvanalstine/pypgx/internal/region"
)

// File describes one fake alignment file.
type File struct {
	Contigs []string
	Samples []string
	// Depth maps chrom -> 1-based position -> depth. Unlisted positions
	// have zero depth.
	Depth map[string]map[int]int
	// Unindexed makes every depth query touching this file fail.
	Unindexed bool
}

// Source is an in-memory alignment.Source.
type Source struct {
	Files map[string]*File
	// Delay is applied to every QueryDepth call, per locus if present in
	// LocusDelay.
	Delay      time.Duration
	LocusDelay map[string]time.Duration
	// Fail makes QueryDepth fail for the listed loci.
	Fail map[string]error

	mu          sync.Mutex
	headerDone  map[string]time.Time
	headerReads map[string]int
	queries     []Query
}

// Query records one QueryDepth call.
type Query struct {
	Paths   []string
	Locus   string
	MinMapQ int
	At      time.Time
}

// New creates a fake source over files.
func New(files map[string]*File) *Source {
	return &Source{Files: files}
}

func (s *Source) file(path string) (*File, error) {
	f, ok := s.Files[path]
	if !ok {
		return nil, pgxerr.IOf("open bam", "%s: no such file", path)
	}
	return f, nil
}

// ReadHeaderContigs implements alignment.Source.
func (s *Source) ReadHeaderContigs(ctx context.Context, path string) ([]string, error) {
	contigs, _, err := s.ReadHeader(ctx, path)
	return contigs, err
}

// ReadHeader implements alignment.Source.
func (s *Source) ReadHeader(ctx context.Context, path string) (contigs, samples []string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := s.file(path)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	if s.headerDone == nil {
		s.headerDone = make(map[string]time.Time)
		s.headerReads = make(map[string]int)
	}
	s.headerDone[path] = time.Now()
	s.headerReads[path]++
	s.mu.Unlock()
	return append([]string(nil), f.Contigs...), append([]string(nil), f.Samples...), nil
}

// QueryDepth implements alignment.Source.
func (s *Source) QueryDepth(ctx context.Context, paths []string, locus string, minMapQ int) (string, error) {
	s.mu.Lock()
	s.queries = append(s.queries, Query{
		Paths:   append([]string(nil), paths...),
		Locus:   locus,
		MinMapQ: minMapQ,
		At:      time.Now(),
	})
	delay := s.Delay
	if d, ok := s.LocusDelay[locus]; ok {
		delay = d
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := s.Fail[locus]; ok {
		return "", err
	}

	r, err := region.Parse(locus)
	if err != nil {
		return "", err
	}

	files := make([]*File, len(paths))
	for i, p := range paths {
		f, err := s.file(p)
		if err != nil {
			return "", err
		}
		if f.Unindexed {
			return "", pgxerr.IOf("open bam index", "no index found for %s", p)
		}
		if !slices.Contains(f.Contigs, r.Chrom) {
			return "", pgxerr.IOf("query depth", "%s does not declare contig %s (locus %s)", p, r.Chrom, locus)
		}
		files[i] = f
	}

	var sb strings.Builder
	for pos := r.Start; pos <= r.End; pos++ {
		fmt.Fprintf(&sb, "%s\t%d", r.Chrom, pos)
		for _, f := range files {
			fmt.Fprintf(&sb, "\t%d", f.Depth[r.Chrom][pos])
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// Queries returns the QueryDepth calls made so far.
func (s *Source) Queries() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Query(nil), s.queries...)
}

// LastHeaderRead returns when the last header was read, or the zero time.
func (s *Source) LastHeaderRead() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last time.Time
	for _, t := range s.headerDone {
		if t.After(last) {
			last = t
		}
	}
	return last
}

// HeaderReads returns how many times the header of path was read.
func (s *Source) HeaderReads(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headerReads[path]
}
