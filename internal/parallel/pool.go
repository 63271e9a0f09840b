package parallel

import (
	"context"
	"sync"
	"sync/atomic"
)

// Task is one unit of work run by a WorkerPool. Tasks must return promptly
// once ctx is done.
type Task func(ctx context.Context)

// WorkerPool is a fixed set of goroutines that run sampling tasks.
//
// Each worker has its own queue. A worker whose queue is empty steals from
// the other queues, which balances passes where some chunks read slower
// regions of the file than others.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int

	// queues holds per-worker task queues.
	queues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running is false once Close has been called.
	running atomic.Bool
}

// NewWorkerPool creates a pool of the given size and starts its workers.
// If workers is 0 or negative, DefaultWorkers is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]

	for {
		select {
		case <-p.done:
			p.drain(own)
			return

		case fn := <-own:
			fn()

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case fn := <-own:
				fn()
			}
		}
	}
}

// drain runs whatever is left in a queue so ExecuteAll callers never hang.
func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case fn := <-queue:
			fn()
		default:
			return
		}
	}
}

// steal takes one queued task from another worker, or returns nil.
func (p *WorkerPool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case fn := <-p.queues[i]:
			return fn
		default:
		}
	}
	return nil
}

// ExecuteAll distributes tasks round-robin across the workers and waits for
// all of them to return. Tasks not yet started when ctx is done are skipped;
// running tasks observe ctx themselves.
//
// ExecuteAll returns ctx.Err() if the context ended before every task ran,
// and nil otherwise. On a closed pool it runs nothing and returns
// context.Canceled.
func (p *WorkerPool) ExecuteAll(ctx context.Context, tasks []Task) error {
	if !p.running.Load() {
		return context.Canceled
	}
	if len(tasks) == 0 {
		return ctx.Err()
	}

	var wg sync.WaitGroup
	wg.Add(len(tasks))

	for i, task := range tasks {
		wrapped := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			task(ctx)
		}

		select {
		case p.queues[i%p.workers] <- wrapped:
		case <-p.done:
			wg.Done()
		case <-ctx.Done():
			wg.Done()
		}
	}

	wg.Wait()
	return ctx.Err()
}

// Close stops the workers after the queued tasks have run and waits for
// them to exit. Callers must not Close while an ExecuteAll is in flight.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
