// Package observer provides a small typed fan-out used to hand refresh results to optional sinks.
package observer

import (
	"context"
	"sync"
	"time"
)

// Observer receives published events of type T.
type Observer[T any] interface {
	Notify(context.Context, T) error
}

// ObserverFunc adapts a standalone function into an Observer.
//
//revive:disable-next-line:exported
type ObserverFunc[T any] func(context.Context, T) error

// Notify executes the wrapped function.
func (f ObserverFunc[T]) Notify(ctx context.Context, evt T) error {
	if f == nil {
		return nil
	}
	return f(ctx, evt)
}

type named[T any] struct {
	obs  Observer[T]
	name string
}

// Subject delivers every event to its observers in attach order.
type Subject[T any] struct {
	onError   func(name string, err error)
	observers []named[T]
	timeout   time.Duration
	mu        sync.RWMutex
}

// NewSubject returns a Subject without observers.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Publish calls every observer synchronously. A failing observer does not stop the others.
// With a timeout set, each observer gets its own deadline.
func (s *Subject[T]) Publish(ctx context.Context, evt T) {
	if s == nil {
		return
	}
	s.mu.RLock()
	observers := append([]named[T](nil), s.observers...)
	errHandler := s.onError
	timeout := s.timeout
	s.mu.RUnlock()

	for _, o := range observers {
		if err := notify(ctx, o.obs, evt, timeout); err != nil && errHandler != nil {
			errHandler(o.name, err)
		}
	}
}

func notify[T any](ctx context.Context, obs Observer[T], evt T, timeout time.Duration) error {
	if timeout <= 0 {
		return obs.Notify(ctx, evt)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return obs.Notify(ctx, evt)
}

// Attach registers obs under name, used when reporting its errors. Nil observers are ignored.
func (s *Subject[T]) Attach(name string, obs Observer[T]) {
	if s == nil || obs == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, named[T]{obs: obs, name: name})
	s.mu.Unlock()
}

// Len reports the number of attached observers.
func (s *Subject[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// SetTimeout bounds every Notify call. Zero disables the bound.
func (s *Subject[T]) SetTimeout(d time.Duration) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.timeout = max(d, 0)
	s.mu.Unlock()
}

// SetErrorHandler configures a callback for observer failures.
func (s *Subject[T]) SetErrorHandler(fn func(name string, err error)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}
