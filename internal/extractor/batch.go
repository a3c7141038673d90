package extractor

import (
	"context"
	"sync"
)

// Job identifies one image queued for extraction
type Job struct {
	ID   string
	Path string
}

// Result carries the outcome of one extraction. A failed image sets Err
// and leaves Features nil; the batch keeps going.
type Result struct {
	Job      Job
	Features *Features
	Err      error
}

// Batch runs extraction over many images with a bounded worker pool
type Batch struct {
	extractor Extractor
	workers   int
}

// NewBatch creates a batch runner. workers below 1 is clamped to 1.
func NewBatch(ext Extractor, workers int) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{extractor: ext, workers: workers}
}

// Run extracts features for all jobs and invokes onResult for each outcome
// in completion order. onResult is called from a single goroutine. Run
// returns the context error if the batch was cancelled mid-flight.
func (b *Batch) Run(ctx context.Context, jobs []Job, onResult func(Result)) error {
	if len(jobs) == 0 {
		return nil
	}

	jobCh := make(chan Job)
	resultCh := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				features, err := b.extractor.Extract(ctx, job.Path)
				select {
				case resultCh <- Result{Job: job, Features: features, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for result := range resultCh {
		if onResult != nil {
			onResult(result)
		}
	}

	return ctx.Err()
}
