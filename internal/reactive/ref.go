package reactive

import "sync"

// Source is anything that can notify observers of a change
type Source interface {
	// Subscribe registers fn to be called after every change. The returned
	// function removes the subscription and is safe to call more than once.
	Subscribe(fn func()) (unsubscribe func())
}

// Readable is a Source with a current value
type Readable[T any] interface {
	Source
	Get() T
}

type subscriber struct {
	id uint64
	fn func()
}

// subscribers is an ordered subscription list
type subscribers struct {
	mu     sync.Mutex
	nextID uint64
	list   []subscriber
}

func (s *subscribers) add(fn func()) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.list = append(s.list, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *subscribers) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.list {
		if sub.id == id {
			s.list = append(s.list[:i:i], s.list[i+1:]...)
			return
		}
	}
}

func (s *subscribers) notify() {
	s.mu.Lock()
	list := make([]subscriber, len(s.list))
	copy(list, s.list)
	s.mu.Unlock()

	for _, sub := range list {
		sub.fn()
	}
}

func (s *subscribers) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

// Ref is an observable value cell. Writes that do not change the value do
// not notify.
type Ref[T comparable] struct {
	mu    sync.RWMutex
	value T
	subs  subscribers
}

// NewRef creates a Ref holding v
func NewRef[T comparable](v T) *Ref[T] {
	return &Ref[T]{value: v}
}

// Get returns the current value
func (r *Ref[T]) Get() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Set stores v and notifies subscribers if it differs from the current value
func (r *Ref[T]) Set(v T) {
	r.mu.Lock()
	if r.value == v {
		r.mu.Unlock()
		return
	}
	r.value = v
	r.mu.Unlock()

	r.subs.notify()
}

// Update replaces the value with fn(current)
func (r *Ref[T]) Update(fn func(T) T) {
	r.mu.Lock()
	next := fn(r.value)
	if next == r.value {
		r.mu.Unlock()
		return
	}
	r.value = next
	r.mu.Unlock()

	r.subs.notify()
}

// Subscribe implements Source
func (r *Ref[T]) Subscribe(fn func()) func() {
	return r.subs.add(fn)
}

// Subscribers returns the number of active subscriptions
func (r *Ref[T]) Subscribers() int {
	return r.subs.len()
}

// getter derives a value from other sources
type getter[T any] struct {
	fn   func() T
	deps []Source
}

// Getter returns a Readable whose value is fn() and which notifies whenever
// one of deps notifies.
func Getter[T any](fn func() T, deps ...Source) Readable[T] {
	return &getter[T]{fn: fn, deps: deps}
}

func (g *getter[T]) Get() T {
	return g.fn()
}

func (g *getter[T]) Subscribe(fn func()) func() {
	unsubs := make([]func(), 0, len(g.deps))
	for _, dep := range g.deps {
		unsubs = append(unsubs, dep.Subscribe(fn))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

type static[T any] struct {
	value T
}

// Static returns a Readable that never changes
func Static[T any](v T) Readable[T] {
	return static[T]{value: v}
}

func (s static[T]) Get() T {
	return s.value
}

func (s static[T]) Subscribe(func()) func() {
	return func() {}
}
