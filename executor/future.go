// Package executor is a bounded worker-pool task executor used by the
// fspt package's background statistics watcher (Tree.WatchStats).
//
// Grounded on original_source/src/executor.c / thread_pool.c /
// protected_buffer.c (a condition-variable-driven bounded queue plus a
// pool of pthreads with a core size, a max size and an idle keep-alive),
// re-expressed with Go channels and sync.Cond in place of pthread mutexes
// and condition variables.
package executor

import "sync"

// Callable is a unit of work submitted to a Pool. A non-nil error does not
// stop the pool; it is only surfaced to whoever calls Future.Get.
type Callable func() (any, error)

// Future is the handle returned by Submit/TrySubmit. Get blocks until the
// callable has run at least once and returns its result.
//
// Grounded on original_source/src/executor.c's future_t
// (condition-variable "broadcast to all waiters" semantics).
type Future struct {
	mu     sync.Mutex
	cond   *sync.Cond
	done   bool
	result any
	err    error
}

func newFuture() *Future {
	f := &Future{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// complete marks the future done and wakes every waiter, mirroring the
// original's broadcast-on-completion design.
func (f *Future) complete(result any, err error) {
	f.mu.Lock()
	f.result, f.err = result, err
	f.done = true
	f.mu.Unlock()
	f.cond.Broadcast()
}

// Get blocks until the future's callable has completed, then returns its
// result. Calling Get more than once (e.g. for a periodic callable that
// has since re-run) returns the most recent completion.
func (f *Future) Get() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.done {
		f.cond.Wait()
	}
	return f.result, f.err
}
