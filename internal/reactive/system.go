// Package reactive provides the small observer graph the remote client is
// built on: value cells (Ref), effects that re-run when the cells they depend
// on change, and scopes that group effects so they can be paused, resumed or
// stopped together.
//
// Notifications are synchronous. A write returns only after every effect it
// triggered has run, unless the write happens inside System.Batch, in which
// case each affected effect runs once when the outermost batch ends.
//
// The graph is safe to use from several goroutines, but it is designed for a
// single writer at a time: batching state is shared per System, and an effect
// re-triggered from another goroutine while it is running is re-run by the
// goroutine that is already running it.
package reactive

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrScopeStopped is returned when registering an effect on a stopped scope
var ErrScopeStopped = errors.New("reactive: scope stopped")

// Option configures a System
type Option func(*System)

// WithErrorHandler sets the handler receiving errors returned by effects
// outside of their first, eager run.
func WithErrorHandler(fn func(error)) Option {
	return func(s *System) {
		s.onError = fn
	}
}

// WithLogger sets the logger used by the default error handler
func WithLogger(logger *zap.Logger) Option {
	return func(s *System) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// System owns batching state and the error channel shared by its scopes
type System struct {
	logger  *zap.Logger
	onError func(error)

	mu      sync.Mutex
	depth   int
	pending []*effect
}

// NewSystem creates a new System
func NewSystem(opts ...Option) *System {
	s := &System{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.onError == nil {
		s.onError = func(err error) {
			s.logger.Error("effect failed", zap.Error(err))
		}
	}
	return s
}

// NewScope creates a root scope
func (s *System) NewScope() *Scope {
	return &Scope{sys: s}
}

// Batch runs fn and defers every effect triggered by writes inside it until
// fn returns. Effects triggered several times run once. Batches nest.
func (s *System) Batch(fn func()) {
	s.mu.Lock()
	s.depth++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.depth--
		var run []*effect
		if s.depth == 0 {
			run = s.pending
			s.pending = nil
			for _, e := range run {
				e.queued = false
			}
		}
		s.mu.Unlock()

		for _, e := range run {
			e.trigger()
		}
	}()

	fn()
}

// schedule runs e now, or queues it when a batch is open
func (s *System) schedule(e *effect) {
	s.mu.Lock()
	if s.depth > 0 {
		if !e.queued {
			e.queued = true
			s.pending = append(s.pending, e)
		}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	e.trigger()
}

func (s *System) report(err error) {
	if err != nil {
		s.onError(err)
	}
}
