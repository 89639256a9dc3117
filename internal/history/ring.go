package history

// Ring is a fixed-size circular buffer that overwrites its oldest element
// when full. It is not safe for concurrent use.
type Ring[T any] struct {
	buf  []T
	size int
	head int // write position
	tail int // read position
	full bool
}

// NewRing creates a ring holding at most size elements.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = DefaultRecentSamples
	}
	return &Ring[T]{
		buf:  make([]T, size),
		size: size,
	}
}

// Push appends v, dropping the oldest element when the ring is full.
func (r *Ring[T]) Push(v T) {
	if r.full {
		r.tail = (r.tail + 1) % r.size
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % r.size
	if r.head == r.tail {
		r.full = true
	}
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int {
	switch {
	case r.full:
		return r.size
	case r.head >= r.tail:
		return r.head - r.tail
	default:
		return (r.size - r.tail) + r.head
	}
}

// Last returns up to n of the newest elements, oldest first.
func (r *Ring[T]) Last(n int) []T {
	l := r.Len()
	if n <= 0 || n > l {
		n = l
	}
	out := make([]T, n)
	start := (r.head - n + r.size) % r.size
	for i := range out {
		out[i] = r.buf[(start+i)%r.size]
	}
	return out
}

// Reset empties the ring.
func (r *Ring[T]) Reset() {
	clear(r.buf)
	r.head = 0
	r.tail = 0
	r.full = false
}

// Capacity returns the maximum number of elements.
func (r *Ring[T]) Capacity() int {
	return r.size
}
