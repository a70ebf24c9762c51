package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

type testResult struct {
	value string
	err   error
}

func (r testResult) Err() error { return r.err }

type testJob struct {
	id    int
	fail  bool
	calls *atomic.Int64
}

func (j testJob) Execute(_ context.Context) Result {
	if j.calls != nil {
		j.calls.Add(1)
	}
	if j.fail {
		return testResult{err: errors.New("job failed")}
	}
	return testResult{value: fmt.Sprintf("job-%d", j.id)}
}

func TestPoolRunPreservesOrder(t *testing.T) {
	var calls atomic.Int64
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = testJob{id: i, calls: &calls}
	}

	pool := NewPool(4)
	results := pool.Run(context.Background(), jobs)

	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	if calls.Load() != int64(len(jobs)) {
		t.Errorf("executed %d jobs, want %d", calls.Load(), len(jobs))
	}
	for i, r := range results {
		tr, ok := r.(testResult)
		if !ok {
			t.Fatalf("result %d is %T", i, r)
		}
		if want := fmt.Sprintf("job-%d", i); tr.value != want {
			t.Errorf("result %d = %q, want %q", i, tr.value, want)
		}
	}
}

func TestPoolRunMixedFailures(t *testing.T) {
	jobs := []Job{
		testJob{id: 0},
		testJob{id: 1, fail: true},
		testJob{id: 2},
	}

	results := NewPool(2).Run(context.Background(), jobs)

	if results[0].Err() != nil || results[2].Err() != nil {
		t.Error("healthy jobs reported errors")
	}
	if results[1].Err() == nil {
		t.Error("failing job reported no error")
	}
}

func TestPoolRunEmpty(t *testing.T) {
	results := NewPool(3).Run(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("got %d results for no jobs", len(results))
	}
}

func TestPoolRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make([]Job, 50)
	for i := range jobs {
		jobs[i] = testJob{id: i}
	}

	done := make(chan struct{})
	go func() {
		NewPool(1).Run(ctx, jobs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestNewPoolClampsWorkers(t *testing.T) {
	results := NewPool(0).Run(context.Background(), []Job{testJob{id: 0}})
	if len(results) != 1 || results[0].Err() != nil {
		t.Errorf("pool with clamped worker count failed: %+v", results)
	}
}

func TestPacerNoRateIsPassthrough(t *testing.T) {
	p := NewPacer(0, 0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("unpaced waits took %v", elapsed)
	}
}

func TestPacerHonorsCancellation(t *testing.T) {
	p := NewPacer(0.001, 1)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Wait(ctx); err == nil {
		t.Error("Wait ignored context deadline")
	}
}
