package pool

import (
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned under the reject policy when the queue is at
	// capacity and the pool is already at its max worker count.
	ErrQueueFull = errors.New("pool: queue full")
	// ErrClosed is returned for submissions after Close.
	ErrClosed = errors.New("pool: closed")
)

// Pool is a bounded worker pool. It keeps core resident workers, grows up to
// max workers while the queue is full, and holds at most queueCap pending
// tasks. Excess submissions are rejected or block, per the configured policy.
type Pool struct {
	tasks chan func()
	done  chan struct{}
	block bool
	max   int

	mu      sync.Mutex
	running int
	closed  bool

	pending sync.WaitGroup
}

// New starts a pool with core resident workers. core and max are clamped to
// at least 1; max is clamped to at least core.
func New(core, max, queueCap int, block bool) *Pool {
	if core < 1 {
		core = 1
	}
	if max < core {
		max = core
	}
	if queueCap < 0 {
		queueCap = 0
	}
	p := &Pool{
		tasks:   make(chan func(), queueCap),
		done:    make(chan struct{}),
		block:   block,
		max:     max,
		running: core,
	}
	for i := 0; i < core; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues fn for execution and returns without waiting for it to run.
// When the queue is full it first tries to grow the pool toward max, then
// either blocks or returns ErrQueueFull.
func (p *Pool) Submit(fn func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.pending.Add(1)
	p.mu.Unlock()

	select {
	case p.tasks <- fn:
		return nil
	default:
	}

	p.mu.Lock()
	if p.running < p.max {
		p.running++
		p.mu.Unlock()
		go p.extraWorker(fn)
		return nil
	}
	p.mu.Unlock()

	if p.block {
		select {
		case p.tasks <- fn:
			return nil
		case <-p.done:
			p.pending.Done()
			return ErrClosed
		}
	}
	p.pending.Done()
	return ErrQueueFull
}

// Wait blocks until every accepted task has finished.
func (p *Pool) Wait() { p.pending.Wait() }

// Close stops the pool. Queued tasks that have not started are dropped and
// counted as finished, so a Wait after Close does not hang on them.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.done)

	for {
		select {
		case <-p.tasks:
			p.pending.Done()
		default:
			return
		}
	}
}

func (p *Pool) worker() {
	for {
		select {
		case <-p.done:
			return
		case fn := <-p.tasks:
			fn()
			p.pending.Done()
		}
	}
}

// extraWorker runs the task that overflowed the queue, then drains the queue
// and exits once it runs dry, shrinking the pool back to its core size.
func (p *Pool) extraWorker(first func()) {
	first()
	p.pending.Done()
	for {
		select {
		case fn := <-p.tasks:
			fn()
			p.pending.Done()
		default:
			p.mu.Lock()
			p.running--
			p.mu.Unlock()
			return
		}
	}
}
