package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrPoolClosed is returned by Submit once the pool is closed.
var ErrPoolClosed = errors.New("worker pool closed")

// Task is one unit of work run by a pool.
type Task func(ctx context.Context)

// Pool runs submitted tasks. Submit must not block on running tasks and
// returns an error when the task will never run.
type Pool interface {
	Submit(task Task) error
	Close() error
}

// WorkerPool is a fixed set of goroutines draining a FIFO backlog.
type WorkerPool struct {
	ctx     context.Context
	group   *errgroup.Group
	mu      sync.Mutex
	cond    *sync.Cond
	backlog []Task
	closed  bool
	workers int
}

// NewWorkerPool starts workers goroutines. Zero or negative means one worker
// per available CPU. Tasks receive ctx.
func NewWorkerPool(ctx context.Context, workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &WorkerPool{ctx: ctx, group: new(errgroup.Group), workers: workers}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		p.group.Go(p.work)
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// Submit queues task. After Close it returns ErrPoolClosed and task never runs.
func (p *WorkerPool) Submit(task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.backlog = append(p.backlog, task)
	p.mu.Unlock()
	p.cond.Signal()
	return nil
}

// Close lets the workers finish the backlog and waits for them.
func (p *WorkerPool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	return p.group.Wait()
}

func (p *WorkerPool) work() error {
	for {
		p.mu.Lock()
		for len(p.backlog) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.backlog) == 0 {
			p.mu.Unlock()
			return nil
		}
		task := p.backlog[0]
		p.backlog[0] = nil
		p.backlog = p.backlog[1:]
		p.mu.Unlock()
		task(p.ctx)
	}
}
