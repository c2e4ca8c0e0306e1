package reactive

import "sync"

type effect struct {
	scope  *Scope
	fn     func() error
	unsubs []func()

	// queued is guarded by the System mutex
	queued bool

	mu      sync.Mutex
	running bool
	dirty   bool
}

// trigger runs the effect unless its scope is paused or stopped
func (e *effect) trigger() {
	if !e.scope.live() {
		return
	}
	e.scope.sys.report(e.run())
}

// run invokes fn and returns its error. A trigger arriving while fn is
// running makes it run once more before returning; errors of those extra
// runs go to the error handler.
func (e *effect) run() error {
	e.mu.Lock()
	if e.running {
		e.dirty = true
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.mu.Unlock()

	err := e.fn()
	for {
		e.mu.Lock()
		if !e.dirty || !e.scope.live() {
			e.running = false
			e.dirty = false
			e.mu.Unlock()
			return err
		}
		e.dirty = false
		e.mu.Unlock()

		e.scope.sys.report(e.fn())
	}
}

func (e *effect) release() {
	for _, u := range e.unsubs {
		u()
	}
	e.unsubs = nil
}
