// Package routines provides a bounded pool of go-routines.
package routines

import "sync"

// Pool runs functions in a fixed number of go-routines.
type Pool struct {
	queue chan func()
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts workers go-routines.
func NewPool(workers int) *Pool {
	if workers < 1 {
		panic("workers must be >=1")
	}

	p := Pool{
		queue: make(chan func(), workers),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return &p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for fn := range p.queue {
		fn()
	}
}

// Queue schedules fn to be run in the pool.
// If all workers are busy and the internal queue is full, Queue blocks until
// a worker is available.
// Calling Queue after Wait panics.
func (p *Pool) Queue(fn func()) {
	p.queue <- fn
}

// Wait waits until all queued functions were run and terminates the
// workers.
func (p *Pool) Wait() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})

	p.wg.Wait()
}
