// Package worker provides a small fixed-size pool for running scoring
// jobs concurrently, plus request pacing for outbound LLM calls.
package worker

import (
	"context"
	"sync"
)

// Job is one unit of work. Execute must honor ctx cancellation and
// report failure through its Result rather than panicking.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job.
type Result interface {
	Err() error
}

// Pool runs jobs across a fixed number of goroutines. Results come back
// in submission order, so callers can zip them against their inputs.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given concurrency.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run executes all jobs and blocks until every one has finished or the
// context is cancelled. Jobs observe cancellation through the ctx they
// receive; Run still waits for in-flight jobs to return.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = jobs[i].Execute(ctx)
			}
		}()
	}

	for i := range jobs {
		select {
		case indexes <- i:
		case <-ctx.Done():
			// Leave remaining slots nil; the caller checks ctx.Err.
			close(indexes)
			wg.Wait()
			return results
		}
	}
	close(indexes)
	wg.Wait()

	return results
}
