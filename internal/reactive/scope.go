package reactive

import "sync"

// Scope groups effects so their lifecycle can be controlled together.
//
// A paused scope stops re-running its effects (and those of its child
// scopes). Changes that happen while paused are dropped, resuming does not
// replay them. A stopped scope releases every subscription and cannot be
// resumed.
type Scope struct {
	sys    *System
	parent *Scope

	mu       sync.Mutex
	paused   bool
	stopped  bool
	effects  []*effect
	children []*Scope
	cleanups []func()
}

// System returns the System the scope belongs to
func (sc *Scope) System() *System {
	return sc.sys
}

// NewChild creates a scope nested in sc. Pausing or stopping sc applies to
// the child too.
func (sc *Scope) NewChild() *Scope {
	child := &Scope{sys: sc.sys, parent: sc}

	sc.mu.Lock()
	stopped := sc.stopped
	if !stopped {
		sc.children = append(sc.children, child)
	}
	sc.mu.Unlock()

	if stopped {
		child.stopped = true
	}
	return child
}

// Effect runs fn immediately and again every time one of deps notifies.
// The error of the eager run is returned; later errors go to the System
// error handler.
func (sc *Scope) Effect(fn func() error, deps ...Source) error {
	e, err := sc.register(fn, deps)
	if err != nil {
		return err
	}
	return e.run()
}

// Watch runs fn every time one of deps notifies, without an eager run
func (sc *Scope) Watch(fn func() error, deps ...Source) error {
	_, err := sc.register(fn, deps)
	return err
}

func (sc *Scope) register(fn func() error, deps []Source) (*effect, error) {
	e := &effect{scope: sc, fn: fn}

	sc.mu.Lock()
	if sc.stopped {
		sc.mu.Unlock()
		return nil, ErrScopeStopped
	}
	sc.effects = append(sc.effects, e)
	sc.mu.Unlock()

	for _, dep := range deps {
		e.unsubs = append(e.unsubs, dep.Subscribe(func() { sc.sys.schedule(e) }))
	}
	return e, nil
}

// OnStop registers fn to run when the scope stops. On a stopped scope fn
// runs immediately.
func (sc *Scope) OnStop(fn func()) {
	sc.mu.Lock()
	if sc.stopped {
		sc.mu.Unlock()
		fn()
		return
	}
	sc.cleanups = append(sc.cleanups, fn)
	sc.mu.Unlock()
}

// Pause suspends the scope's effects
func (sc *Scope) Pause() {
	sc.mu.Lock()
	sc.paused = true
	sc.mu.Unlock()
}

// Resume re-enables the scope's effects. Changes missed while paused are
// not replayed.
func (sc *Scope) Resume() {
	sc.mu.Lock()
	sc.paused = false
	sc.mu.Unlock()
}

// Paused reports whether the scope or one of its ancestors is paused
func (sc *Scope) Paused() bool {
	for s := sc; s != nil; s = s.parent {
		s.mu.Lock()
		paused := s.paused
		s.mu.Unlock()
		if paused {
			return true
		}
	}
	return false
}

// Active reports whether the scope has not been stopped
func (sc *Scope) Active() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return !sc.stopped
}

// Stop releases every effect of the scope and its children, then runs the
// OnStop callbacks in reverse registration order.
func (sc *Scope) Stop() {
	sc.mu.Lock()
	if sc.stopped {
		sc.mu.Unlock()
		return
	}
	sc.stopped = true
	effects := sc.effects
	children := sc.children
	cleanups := sc.cleanups
	sc.effects, sc.children, sc.cleanups = nil, nil, nil
	sc.mu.Unlock()

	for _, child := range children {
		child.Stop()
	}
	for _, e := range effects {
		e.release()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	if sc.parent != nil {
		sc.parent.removeChild(sc)
	}
}

func (sc *Scope) removeChild(child *Scope) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for i, c := range sc.children {
		if c == child {
			sc.children = append(sc.children[:i:i], sc.children[i+1:]...)
			return
		}
	}
}

// live reports whether effects of the scope may run
func (sc *Scope) live() bool {
	for s := sc; s != nil; s = s.parent {
		s.mu.Lock()
		ok := !s.paused && !s.stopped
		s.mu.Unlock()
		if !ok {
			return false
		}
	}
	return true
}
