package sptr

// Shared is a strong owning handle to a shared value. It is a small
// value type: copy it freely, but ownership is explicit. Clone mints a
// new owned handle and every owned handle must be Released exactly
// once. The zero value is the empty handle and Releases nothing.
//
// The embedded counter is the local reserve this handle carried out of
// the cell it most recently came from; releasing the handle settles it
// against the block's global counters.
type Shared[T any] struct {
	ctr int16
	hdr *header[T]
}

// New adopts an externally constructed value. The block drops its
// reference to p when the last strong handle disappears and leaves the
// rest to the collector. New of nil returns the empty handle.
func New[T any](p *T) Shared[T] {
	if p == nil {
		return Shared[T]{}
	}
	return Shared[T]{hdr: newHeader(p, kindExtern, nil)}
}

// NewWithDeleter adopts p and runs del exactly once when the last
// strong handle disappears.
func NewWithDeleter[T any](p *T, del func(*T)) Shared[T] {
	if p == nil {
		return Shared[T]{}
	}
	return Shared[T]{hdr: newHeader(p, kindExternDeleter, del)}
}

// Make constructs the value in place, co-located with its control
// block, and returns the first strong handle to it.
func Make[T any](v T) Shared[T] {
	h := newHeader[T](nil, kindInplace, nil)
	h.val = v
	h.obj = &h.val
	return Shared[T]{hdr: h}
}

// Clone mints a new owned handle to the same value.
func (s Shared[T]) Clone() Shared[T] {
	if s.hdr == nil {
		return Shared[T]{}
	}
	s.hdr.acquire(mkpair(0, 1))
	return Shared[T]{hdr: s.hdr}
}

// Release drops this handle's reference, together with any local
// reserve it carries, and empties the handle. Must be called exactly
// once per owned handle.
func (s *Shared[T]) Release() {
	if s.hdr != nil {
		s.hdr.release(mkpair(int32(s.ctr), 1))
		*s = Shared[T]{}
	}
}

// Reset is Release under the name the pointer vocabulary expects.
func (s *Shared[T]) Reset() { s.Release() }

// ResetTo releases the current reference and adopts p.
func (s *Shared[T]) ResetTo(p *T) {
	s.Release()
	*s = New(p)
}

// Swap exchanges two handles without touching any counter.
func (s *Shared[T]) Swap(o *Shared[T]) {
	*s, *o = *o, *s
}

// Get returns the payload pointer, or nil for the empty handle. The
// pointer is valid until the handle is Released.
func (s Shared[T]) Get() *T {
	if s.hdr == nil {
		return nil
	}
	return s.hdr.obj
}

// Empty reports whether the handle owns nothing.
func (s Shared[T]) Empty() bool { return s.hdr == nil }

// UseCount returns the global strong count, racily.
func (s Shared[T]) UseCount() uint32 {
	if s.hdr == nil {
		return 0
	}
	return s.hdr.useCount()
}

// WeakCount returns the global weak count, racily.
func (s Shared[T]) WeakCount() uint32 {
	if s.hdr == nil {
		return 0
	}
	return s.hdr.weakCount()
}

// Unique reports whether this is the only strong handle.
func (s Shared[T]) Unique() bool { return s.UseCount() == 1 }

// Weak mints an owned weak handle observing the same block.
func (s Shared[T]) Weak() Weak[T] {
	if s.hdr == nil {
		return Weak[T]{}
	}
	s.hdr.acquireWeak()
	return Weak[T]{hdr: s.hdr}
}
