// Package workerpool runs a fixed number of goroutines over a queue of jobs.
package workerpool

import (
	"context"
	"sync"
)

// Pool feeds jobs of type T to a fixed set of worker goroutines.
type Pool[T any] struct {
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    chan T
	wg      sync.WaitGroup
	closed  bool
	closeMu sync.Mutex
}

// Handler processes one job. ctx is done once the pool is closed.
type Handler[T any] func(ctx context.Context, job T)

// New starts workers goroutines (at least one) running h, bound to ctx.
func New[T any](ctx context.Context, workers int, h Handler[T]) *Pool[T] {
	if workers < 1 { workers = 1 }
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool[T]{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan T, workers*2+8),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok { return }
					h(p.ctx, job)
				}
			}
		}()
	}
	return p
}

// Submit queues a job. It returns false once the pool is closed or its
// context is done.
func (p *Pool[T]) Submit(job T) bool {
	p.closeMu.Lock()
	closed := p.closed
	p.closeMu.Unlock()
	if closed { return false }
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Wait stops accepting jobs, lets the workers drain the queue and waits for
// them to exit.
func (p *Pool[T]) Wait() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()
	p.wg.Wait()
	p.cancel()
}

// Close cancels queued work and waits for the workers to exit.
func (p *Pool[T]) Close() {
	p.cancel()
	p.Wait()
}
