package sptr

// Weak observes a block without extending the payload's lifetime. Like
// Shared it is a value type with explicit ownership: Clone mints a new
// owned observer, Release drops one, exactly once each. The zero value
// observes nothing.
type Weak[T any] struct {
	ctr int16
	hdr *header[T]
}

// Clone mints a new owned weak handle on the same block.
func (w Weak[T]) Clone() Weak[T] {
	if w.hdr == nil {
		return Weak[T]{}
	}
	w.hdr.acquireWeak()
	return Weak[T]{hdr: w.hdr}
}

// Release drops this observer and empties the handle. The block itself
// is torn down when the last observer of any kind leaves.
func (w *Weak[T]) Release() {
	if w.hdr != nil {
		w.hdr.releaseWeak(mkpair(int32(w.ctr), 1))
		*w = Weak[T]{}
	}
}

// Reset is Release under the name the pointer vocabulary expects.
func (w *Weak[T]) Reset() { w.Release() }

// Swap exchanges two weak handles without touching any counter.
func (w *Weak[T]) Swap(o *Weak[T]) {
	*w, *o = *o, *w
}

// Lock upgrades to a strong handle, or returns the empty handle if the
// payload is already gone. The result is non-empty exactly when the
// strong count was observed non-zero at the bump.
func (w Weak[T]) Lock() Shared[T] {
	if w.hdr == nil || !w.hdr.weakLock() {
		return Shared[T]{}
	}
	return Shared[T]{hdr: w.hdr}
}

// Expired reports whether the payload is already gone. Racy in the
// same way UseCount is: a false result can be stale by the time the
// caller acts on it, use Lock for the authoritative answer.
func (w Weak[T]) Expired() bool { return w.UseCount() == 0 }

// UseCount returns the global strong count, racily.
func (w Weak[T]) UseCount() uint32 {
	if w.hdr == nil {
		return 0
	}
	return w.hdr.useCount()
}

// WeakCount returns the global weak count, racily.
func (w Weak[T]) WeakCount() uint32 {
	if w.hdr == nil {
		return 0
	}
	return w.hdr.weakCount()
}
