package utils

import "sync"

// WorkerPool bounds the number of concurrently running jobs. Jobs keep
// their submission-site context (closures capture indices), so callers
// can write results into pre-sized slices without extra coordination.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewWorkerPool creates a pool allowing at most maxWorkers concurrent jobs.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{sem: make(chan struct{}, maxWorkers)}
}

// Submit enqueues a job for execution. It blocks while the pool is full,
// which gives natural backpressure on the submitting loop.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.sem <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.sem }()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}
