// Package depth extracts dense per-base depth rows for genomic regions
// across a set of alignment files.
package depth

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jamesvanalstine/pypgx/internal/alignment"
	"github.com/jamesvanalstine/pypgx/internal/contig"
	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
	"github.com/jamesvanalstine/pypgx/internal/region"
)

// DefaultTimeout bounds a single depth query.
const DefaultTimeout = 10 * time.Minute

// Row is the depth at one position, one value per input file.
type Row struct {
	Chrom  string
	Pos    int
	Depths []int
}

// Extractor runs depth queries against an alignment source.
type Extractor struct {
	source alignment.Source
	// MinMapQ is the lowest mapping quality counted.
	MinMapQ int
	// Workers is the number of regions queried concurrently. Zero means
	// runtime.NumCPU().
	Workers int
	// Timeout bounds each query. Zero disables the deadline.
	Timeout time.Duration
	logger  *zap.Logger
}

// NewExtractor creates an extractor with default settings.
func NewExtractor(src alignment.Source) *Extractor {
	return &Extractor{
		source:  src,
		MinMapQ: alignment.DefaultMinMapQ,
		Timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and debug messages.
func (e *Extractor) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Extract queries depth over locus for all files. Rows are returned in
// position order, one per position of the locus, each with len(files)
// depth values. A query that returns no rows, as when a file does not
// declare the locus contig, is an IO error.
func (e *Extractor) Extract(ctx context.Context, files []string, locus string) ([]Row, error) {
	op := "query depth " + locus

	r, err := region.Parse(locus)
	if err != nil {
		return nil, err
	}

	qctx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := e.source.QueryDepth(qctx, files, locus, e.MinMapQ)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(qctx.Err(), context.DeadlineExceeded):
			return nil, pgxerr.Timeout(op, err)
		}
		return nil, pgxerr.WrapIO(op, err)
	}

	rows, err := ParseRows(text, len(files))
	if err != nil {
		return nil, pgxerr.WrapIO(op, err)
	}
	if len(rows) == 0 {
		return nil, pgxerr.IOf(op, "no depth rows for %s in %s; check contig naming",
			locus, strings.Join(files, ", "))
	}
	if err := checkDense(rows, r); err != nil {
		return nil, pgxerr.WrapIO(op, err)
	}

	e.logger.Debug("queried depth",
		zap.String("locus", locus),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)))
	return rows, nil
}

// ExtractAll queries every region, with prefix applied to its chromosome
// label, and concatenates the rows in canonical region order. Regions are
// queried concurrently; the first failure cancels the remaining queries
// and no rows are returned.
func (e *Extractor) ExtractAll(ctx context.Context, files []string, regions []region.Region, prefix string) ([]Row, error) {
	sorted := region.Sort(regions)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make(chan WorkItem, len(sorted))
	for i, r := range sorted {
		items <- WorkItem{Seq: i, Region: r, Locus: contig.ApplyPrefix(r, prefix)}
	}
	close(items)

	results := e.ParallelExtract(ctx, files, items, e.Workers)

	// Cancel outstanding queries on the first failure to arrive, which is
	// not necessarily the first in sequence order.
	var firstErr error
	watched := make(chan WorkResult)
	go func() {
		defer close(watched)
		for r := range results {
			if r.Err != nil && firstErr == nil {
				firstErr = fmt.Errorf("extract %s: %w", r.Locus, r.Err)
				cancel()
			}
			watched <- r
		}
	}()

	collected := make([]WorkResult, 0, len(sorted))
	err := OrderedCollect(watched, func(r WorkResult) error {
		if r.Err != nil {
			return r.Err
		}
		collected = append(collected, r)
		return nil
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if err != nil {
		return nil, err
	}

	// Completion order never decides output order.
	sort.SliceStable(collected, func(i, j int) bool {
		return region.Compare(collected[i].Region, collected[j].Region) < 0
	})

	var n int
	for _, r := range collected {
		n += len(r.Rows)
	}
	rows := make([]Row, 0, n)
	for _, r := range collected {
		rows = append(rows, r.Rows...)
	}
	return rows, nil
}

// ParseRows parses depth text: one row per line, tab-separated chrom, pos
// and exactly nFiles depth values.
func ParseRows(text string, nFiles int) ([]Row, error) {
	var rows []Row
	for lineNum, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2+nFiles {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", lineNum+1, 2+nFiles, len(fields))
		}
		pos, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid position %q", lineNum+1, fields[1])
		}
		row := Row{Chrom: fields[0], Pos: pos, Depths: make([]int, nFiles)}
		for i, f := range fields[2:] {
			d, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid depth %q", lineNum+1, f)
			}
			row.Depths[i] = d
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// checkDense verifies rows cover every position of r exactly once, in order.
func checkDense(rows []Row, r region.Region) error {
	if len(rows) != r.Width() {
		return fmt.Errorf("expected %d rows for %s, got %d", r.Width(), r, len(rows))
	}
	for i, row := range rows {
		if row.Pos != r.Start+i {
			return fmt.Errorf("row %d: expected position %d, got %d", i+1, r.Start+i, row.Pos)
		}
	}
	return nil
}

func workerCount(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
