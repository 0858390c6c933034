package misc

import "sync"

// Resetter is implemented by values that can be cleared before reuse, such as *bytes.Buffer.
type Resetter interface {
	Reset()
}

// Pool is a typed sync.Pool that resets values on Put.
type Pool[T Resetter] struct {
	p sync.Pool
}

// NewPool creates a Pool whose fresh values come from newFn.
func NewPool[T Resetter](newFn func() T) *Pool[T] {
	pl := &Pool[T]{}
	pl.p.New = func() any { return newFn() }
	return pl
}

// Get returns a pooled value or a new one.
func (pl *Pool[T]) Get() T {
	if v, ok := pl.p.Get().(T); ok {
		return v
	}
	var zero T
	return zero
}

// Put resets v and hands it back to the pool.
func (pl *Pool[T]) Put(v T) {
	v.Reset()
	pl.p.Put(v)
}
