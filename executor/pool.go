package executor

import (
	"errors"
	"sync"
	"time"
)

// ErrCapacityExhausted is returned by TrySubmit when the pool is already
// at MaxSize and its bounded queue has no free slot.
var ErrCapacityExhausted = errors.New("executor: at capacity")

type task struct {
	callable Callable
	periodic bool
	period   time.Duration
	future   *Future
}

// Pool is a bounded-capacity worker pool: a submit spawns a worker while
// fewer than CoreSize are running, up to MaxSize may be spawned under load,
// and any worker (core ones included) that sits idle for longer than
// KeepAlive exits.
//
// Grounded on original_source/src/thread_pool.c's thread_pool_t
// (core_pool_size / max_pool_size / keep_alive_time) and
// protected_buffer.c's bounded not-full/not-empty queue.
type Pool struct {
	queue chan *task

	mu         sync.Mutex
	coreSize   int
	maxSize    int
	keepAlive  time.Duration
	numWorkers int
	closed     bool
	wg         sync.WaitGroup
}

// New creates a pool with the given core size, max size, bounded queue
// capacity and worker idle keep-alive.
func New(coreSize, maxSize, queueCapacity int, keepAlive time.Duration) *Pool {
	if maxSize < coreSize {
		maxSize = coreSize
	}
	return &Pool{
		queue:     make(chan *task, queueCapacity),
		coreSize:  coreSize,
		maxSize:   maxSize,
		keepAlive: keepAlive,
	}
}

// Submit enqueues callable, blocking until a worker is spawned or a queue
// slot frees up, per spec.md §4.6's blocking submit.
func (p *Pool) Submit(callable Callable) *Future {
	return p.submit(callable, false, 0, true)
}

// TrySubmit enqueues callable without blocking, returning
// ErrCapacityExhausted if the pool is at MaxSize and the queue is full.
func (p *Pool) TrySubmit(callable Callable) (*Future, error) {
	f := p.submit(callable, false, 0, false)
	if f == nil {
		return nil, ErrCapacityExhausted
	}
	return f, nil
}

// SubmitPeriodic submits callable to re-run every period until the pool is
// shut down, per spec.md §4.6's periodic-callable worker behaviour.
func (p *Pool) SubmitPeriodic(callable Callable, period time.Duration) *Future {
	return p.submit(callable, true, period, true)
}

func (p *Pool) submit(callable Callable, periodic bool, period time.Duration, block bool) *Future {
	future := newFuture()
	t := &task{callable: callable, periodic: periodic, period: period, future: future}

	p.mu.Lock()
	if p.numWorkers < p.coreSize {
		p.numWorkers++
		p.mu.Unlock()
		p.spawn(t)
		return future
	}
	p.mu.Unlock()

	select {
	case p.queue <- t:
		p.maybeSpawnExtra()
		return future
	default:
	}

	p.mu.Lock()
	if p.numWorkers < p.maxSize {
		p.numWorkers++
		p.mu.Unlock()
		p.spawn(t)
		return future
	}
	p.mu.Unlock()

	if !block {
		return nil
	}
	p.queue <- t // blocks until a slot frees
	return future
}

// maybeSpawnExtra spins up an additional worker (up to MaxSize) to drain
// the queue faster, mirroring the original's "if queue is full, try to
// spawn up to max workers" escalation even when enqueue itself succeeded.
func (p *Pool) maybeSpawnExtra() {
	p.mu.Lock()
	if p.numWorkers >= p.maxSize || len(p.queue) == 0 {
		p.mu.Unlock()
		return
	}
	p.numWorkers++
	p.mu.Unlock()
	p.wg.Add(1)
	go p.workerLoop()
}

// spawn starts a dedicated worker that runs t immediately, then falls into
// the shared idle-polling loop.
func (p *Pool) spawn(t *task) {
	p.wg.Add(1)
	go func() {
		p.runTask(t)
		p.workerLoop()
	}()
}

// workerLoop is the idle body of a worker once its initial task (if any)
// has run: poll the queue for up to KeepAlive, running whatever it finds;
// exit (and decrement numWorkers) on timeout.
func (p *Pool) workerLoop() {
	defer p.wg.Done()
	timer := time.NewTimer(p.keepAlive)
	defer timer.Stop()
	for {
		select {
		case t, ok := <-p.queue:
			if !ok {
				p.mu.Lock()
				p.numWorkers--
				p.mu.Unlock()
				return
			}
			if !timer.Stop() {
				<-timer.C
			}
			p.runTask(t)
			timer.Reset(p.keepAlive)
		case <-timer.C:
			p.mu.Lock()
			p.numWorkers--
			p.mu.Unlock()
			return
		}
	}
}

// runTask executes a task's callable, completes its future, and re-arms it
// on a ticker if periodic.
func (p *Pool) runTask(t *task) {
	result, err := t.callable()
	t.future.complete(result, err)
	if !t.periodic || t.period <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(t.period)
		defer ticker.Stop()
		for range ticker.C {
			p.mu.Lock()
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return
			}
			result, err := t.callable()
			t.future.complete(result, err)
		}
	}()
}

// Shutdown marks the pool closed (periodic tasks stop re-arming) and waits
// for every in-flight worker to drain, per spec.md §4.6's
// `shutdown(executor)`.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	close(p.queue)
	p.wg.Wait()
}
