// Package parallel bounds the number of goroutines data shuffling work
// runs on, so a request with many large tensors does not fan out into an
// unbounded number of file writes.
package parallel

import (
	"runtime"
	"sync"
)

// Pool caps how many tasks run at once.
type Pool struct {
	limit int

	mu      sync.Mutex
	cond    sync.Cond
	running int
}

// New returns a pool running up to limit tasks at a time. A limit at or
// below 0 means one task per CPU.
func New(limit int) *Pool {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	p := &Pool{limit: limit}
	p.cond.L = &p.mu
	return p
}

// Start runs task on its own goroutine, blocking until the pool has a
// free slot for it.
func (p *Pool) Start(task func()) {
	p.mu.Lock()
	for p.running >= p.limit {
		p.cond.Wait()
	}
	p.running++
	p.mu.Unlock()

	go func() {
		defer p.done()
		task()
	}()
}

func (p *Pool) done() {
	p.mu.Lock()
	p.running--
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Wait blocks until every started task finished.
func (p *Pool) Wait() {
	p.mu.Lock()
	for p.running > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Each runs fn for every index in [0, n), at most limit at a time, and
// returns the first error observed. Every task runs even when an earlier
// one fails.
func Each(limit, n int, fn func(i int) error) error {
	if n <= 1 {
		if n == 1 {
			return fn(0)
		}
		return nil
	}

	pool := New(limit)
	var mu sync.Mutex
	var firstErr error
	for i := 0; i < n; i++ {
		pool.Start(func() {
			if err := fn(i); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
	}
	pool.Wait()
	return firstErr
}
