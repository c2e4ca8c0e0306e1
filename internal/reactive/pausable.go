package reactive

import (
	"context"
	"sync"
)

type scopeKey struct{}

// WithScope returns a context carrying sc as the current scope
func WithScope(ctx context.Context, sc *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, sc)
}

// CurrentScope returns the scope carried by ctx, or nil
func CurrentScope(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	sc, _ := ctx.Value(scopeKey{}).(*Scope)
	return sc
}

// UsePausableEffect pauses the current scope while signal is true and
// resumes it while it is false. The signal is applied immediately and then
// synchronously on every change, outside of any batch. Without a current
// scope it does nothing.
//
// The toggle subscription is not part of the scope, so a paused scope can
// still be resumed. It is released when the scope stops.
func UsePausableEffect(ctx context.Context, signal Readable[bool]) {
	scope := CurrentScope(ctx)
	if scope == nil || !scope.Active() {
		return
	}

	var (
		mu      sync.Mutex
		applied bool
		last    bool
	)
	apply := func() {
		mu.Lock()
		defer mu.Unlock()

		val := signal.Get()
		if applied && val == last {
			return
		}
		applied, last = true, val

		if val {
			scope.Pause()
		} else {
			scope.Resume()
		}
	}

	unsubscribe := signal.Subscribe(apply)
	scope.OnStop(unsubscribe)
	apply()
}
