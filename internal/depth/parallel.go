package depth

import (
	"context"
	"sync"

	"github.com/jamesvanalstine/pypgx/internal/region"
)

// WorkItem is a region ready to be queried.
type WorkItem struct {
	Seq    int
	Region region.Region
	Locus  string // Region with the contig naming convention applied
}

// WorkResult holds the rows extracted for a single region.
type WorkResult struct {
	Seq    int
	Region region.Region
	Locus  string
	Rows   []Row
	Err    error
}

// ParallelExtract queries work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used. Items left once ctx is done
// are reported with ctx's error without being queried.
func (e *Extractor) ParallelExtract(ctx context.Context, files []string, items <-chan WorkItem, workers int) <-chan WorkResult {
	workers = workerCount(workers)

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				var rows []Row
				err := ctx.Err()
				if err == nil {
					rows, err = e.Extract(ctx, files, item.Locus)
				}
				results <- WorkResult{
					Seq:    item.Seq,
					Region: item.Region,
					Locus:  item.Locus,
					Rows:   rows,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
