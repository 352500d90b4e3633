package ocr

import (
	"context"
	"log"
	"sync"
)

// DefaultWorkers is the batch pool size when the caller does not choose one.
const DefaultWorkers = 4

// ProcessBatch runs the pipeline over many images concurrently with a
// bounded worker pool. Results come back in input order regardless of
// completion order: each path owns a result slot by index. One image failing
// (decode error, OCR failure) never aborts its siblings; the failed slot
// degrades to the empty result, and the matching error slot carries the
// cause so callers can record the failure instead of mistaking it for an
// empty receipt.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string, workers int) ([]Result, []error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	results := make([]Result, len(paths))
	errs := make([]error, len(paths))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := p.ProcessFile(ctx, paths[i])
				if err != nil {
					log.Printf("batch item %d (%s) degraded: %v", i, paths[i], err)
					res = Result{}
					errs[i] = err
				}
				results[i] = res
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results, errs
}
