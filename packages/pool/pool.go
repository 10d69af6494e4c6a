// Package pool provides a fixed-capacity pool of reusable connection handles.
//
// All handles are built up front by New. Idle slots are tracked with an
// index-based free list, so Acquire and Release never allocate. A handle is
// owned by the pool while idle and by exactly one borrower while lent.
package pool

// DefaultSize is the pool capacity used when New is given a non-positive size
const DefaultSize = 4

// Resetter is implemented by anything the pool can lend. Stop is called
// before a lent handle goes back to idle, and on every handle by Close.
type Resetter interface {
	Stop()
}

// Handle identifies a lent slot
type Handle int

// NoHandle is the zero value returned when nothing could be acquired
const NoHandle Handle = -1

type slot[T Resetter] struct {
	value T
	idle  bool
}

// Pool lends at most Cap() handles at a time. It is not safe for concurrent use.
type Pool[T Resetter] struct {
	slots  []slot[T]
	free   []int
	closed bool
}

// New creates a pool of n handles built by newFn
func New[T Resetter](n int, newFn func() T) *Pool[T] {
	if n < 1 {
		n = DefaultSize
	}

	p := &Pool[T]{
		slots: make([]slot[T], n),
		free:  make([]int, 0, n),
	}
	for i := range p.slots {
		p.slots[i] = slot[T]{value: newFn(), idle: true}
	}
	// Push in reverse so the first Acquire hands out slot 0
	for i := n - 1; i >= 0; i-- {
		p.free = append(p.free, i)
	}

	return p
}

// Acquire lends an idle handle. It returns false when every handle is in
// flight or the pool is closed.
func (p *Pool[T]) Acquire() (Handle, T, bool) {
	var zero T
	if p.closed || len(p.free) == 0 {
		return NoHandle, zero, false
	}

	last := len(p.free) - 1
	idx := p.free[last]
	p.free = p.free[:last]
	p.slots[idx].idle = false

	return Handle(idx), p.slots[idx].value, true
}

// Release stops the handle and returns it to idle. Releasing NoHandle, an
// unknown handle or an already idle handle does nothing.
func (p *Pool[T]) Release(h Handle) {
	if !p.valid(h) || p.slots[h].idle {
		return
	}

	p.slots[h].value.Stop()
	p.slots[h].idle = true
	p.free = append(p.free, int(h))
}

// Get returns the value behind h
func (p *Pool[T]) Get(h Handle) (T, bool) {
	var zero T
	if !p.valid(h) {
		return zero, false
	}
	return p.slots[h].value, true
}

// Close stops every handle, idle or lent, and refuses further acquisitions
func (p *Pool[T]) Close() {
	if p.closed {
		return
	}
	p.closed = true

	for i := range p.slots {
		p.slots[i].value.Stop()
		if !p.slots[i].idle {
			p.slots[i].idle = true
			p.free = append(p.free, i)
		}
	}
}

// Closed reports whether Close has been called
func (p *Pool[T]) Closed() bool {
	return p.closed
}

// Cap returns the fixed number of handles
func (p *Pool[T]) Cap() int {
	return len(p.slots)
}

// Idle returns the number of handles available to Acquire
func (p *Pool[T]) Idle() int {
	return len(p.free)
}

// InFlight returns the number of lent handles
func (p *Pool[T]) InFlight() int {
	return len(p.slots) - len(p.free)
}

func (p *Pool[T]) valid(h Handle) bool {
	return h >= 0 && int(h) < len(p.slots)
}
