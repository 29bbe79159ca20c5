package sptr

const (
	cacheLine = 64 // typical size of a cache line

	// drainAt is where enter starts draining the cell-local counter: it
	// zeroes the counter and unholds the same amount from the block's
	// donation half. It leaves a factor of two of headroom
	// before signed 16 bit arithmetic would overflow.
	drainAt = 1 << 14
)

// AtomicShared is a cache-line sized atomic cell holding one strong
// reference. Loading, storing, swapping and compare-and-swapping whole
// handles are lock-free; only Wait blocks.
//
// The cell's word is a counted pointer {ctr, hdr}. While hdr is
// non-nil the block holds ctr+1 strong references attributable to this
// cell: one pinned for the cell itself and ctr pre-paid by observers
// that have bumped the local counter but not yet settled against the
// block's global counters.
//
// The zero value is an empty cell. A cell must be Released exactly once
// and not used afterwards.
type AtomicShared[T any] struct {
	w atomicCptr[header[T]]

	// the word is 8 bytes regardless of T; pad the rest of the line to
	// keep neighbouring cells off it. (unsafe.Sizeof of a generic field
	// is not a constant, so the 8 is spelled out.)
	_ [cacheLine - 8]byte
}

// NewAtomicShared returns a cell holding a reference to the same value
// as s. The caller keeps ownership of s.
func NewAtomicShared[T any](s Shared[T]) *AtomicShared[T] {
	c := new(AtomicShared[T])
	if s.hdr != nil {
		s.hdr.acquire(mkpair(0, 1))
		c.w.store(mkcptr(0, s.hdr))
	}
	return c
}

// enter bumps the cell-local counter and returns the post-op snapshot.
// After the bump the caller transiently owns one local count: the
// payload cannot die, because either the cell still points at the block
// and pins a strong reference, or a reassigning writer has already
// folded the outstanding local counts into the block's global pair.
func (c *AtomicShared[T]) enter() cptr[header[T]] {
	cp := c.w.inc()

	if cp.ctr() >= drainAt && cp.ptr() != nil {
		// opportunistic drain: zero the local counter and take the same
		// amount out of the donation half so the 16 bit field stays small.
		if c.w.compareAndSwap(cp, cp.withCtr(0)) {
			cp.ptr().unhold(cp.ctr())
			cp = cp.withCtr(0)
		}
	}
	return cp
}

// leave undoes an enter whose count the caller does not want to keep.
// If the pointer changed since the snapshot, the reassigning writer has
// already debited our pre-paid count from the departed block, so it is
// returned to that block's donation half instead.
func (c *AtomicShared[T]) leave(seen cptr[header[T]]) {
	for {
		if c.w.compareAndSwap(seen, seen.withCtr(seen.ctr()-1)) {
			return
		}
		cur := c.w.load()
		if cur.ptr() != seen.ptr() {
			if seen.ptr() != nil {
				seen.ptr().releaseHold()
			}
			return
		}
		seen = cur
	}
}

// reenter refreshes a held snapshot after a wait. Same pointer: the
// held count is still good, adopt the current word. Different pointer:
// settle the old hold and enter fresh.
func (c *AtomicShared[T]) reenter(prev cptr[header[T]]) cptr[header[T]] {
	cur := c.w.load()
	if cur.ptr() == prev.ptr() {
		return cur
	}
	if prev.ptr() != nil {
		prev.ptr().releaseHold()
	}
	return c.enter()
}

// Load returns an owned handle to the cell's current value, or the
// empty handle. The {1, 1} acquire settles the entered local count as
// a donation and adds the strong reference the returned handle owns;
// the inflated local counter drains later.
func (c *AtomicShared[T]) Load() Shared[T] {
	cp := c.enter()
	if cp.ptr() == nil {
		return Shared[T]{}
	}
	cp.ptr().acquire(mkpair(1, 1))
	return Shared[T]{hdr: cp.ptr()}
}

// Store publishes a reference to the same value as s, releasing
// whatever the cell held. The caller keeps ownership of s; storing the
// empty handle clears the cell.
func (c *AtomicShared[T]) Store(s Shared[T]) {
	old := c.Swap(s)
	old.Release()
}

// Swap is Store that returns the previously held state as an owned
// handle. The returned handle carries the old cell's local counter, so
// releasing it settles the outstanding pre-paid counts in one step.
func (c *AtomicShared[T]) Swap(s Shared[T]) Shared[T] {
	if s.hdr != nil {
		s.hdr.acquire(mkpair(0, 1))
	}
	old := c.w.swap(mkcptr(0, s.hdr))
	return Shared[T]{ctr: old.ctr(), hdr: old.ptr()}
}

// CompareAndSwap publishes desired if the cell currently holds the same
// value as *expected. On success it returns true; the caller keeps
// ownership of both handles. On failure it returns false and *expected
// is replaced by an owned handle to the observed value (the prior
// *expected is released).
//
// The protocol is optimistic: the swap is attempted against an entered
// snapshot, so a concurrent reassignment is caught either by the swap
// failing or by the pointer check on the fresh snapshot.
func (c *AtomicShared[T]) CompareAndSwap(expected *Shared[T], desired Shared[T]) bool {
	var (
		expPtr      = expected.hdr
		desiredCp   = mkcptr(0, desired.hdr)
		acquiredDes = false
	)

	cur := c.enter()
	for {
		if cur.ptr() != expPtr {
			// mismatch: settle the optimistic desired acquire, turn
			// our entered count into an owned handle on the observed
			// block, and hand it back through expected.
			if acquiredDes && desired.hdr != nil {
				desired.hdr.release(mkpair(0, 1))
			}
			if cur.ptr() != nil {
				cur.ptr().acquire(mkpair(1, 1))
			}
			expected.Release()
			*expected = Shared[T]{hdr: cur.ptr()}
			return false
		}

		// matched: we are not keeping a fresh reference, so fold the
		// entered count into expected's local reserve instead. It
		// settles whenever expected is released.
		if expected.hdr != nil {
			expected.ctr--
		}

		// the cell copies desired rather than consuming it, so its
		// reference must exist before the swap can land.
		if !acquiredDes && desired.hdr != nil {
			desired.hdr.acquire(mkpair(0, 1))
			acquiredDes = true
		}

		for {
			if c.w.compareAndSwap(cur, desiredCp) {
				if expPtr != nil {
					expPtr.release(mkpair(int32(cur.ctr()), 1))
				}
				return true
			}
			next := c.w.load()
			if next.ptr() != expPtr {
				break
			}
			// only the local counter moved; retry against it without
			// re-entering.
			cur = next
		}
		cur = c.enter()
	}
}

// CompareAndSwapWeak is CompareAndSwap. The underlying compare-and-swap
// never fails spuriously on this runtime, so the weak form has nothing
// weaker to offer.
func (c *AtomicShared[T]) CompareAndSwapWeak(expected *Shared[T], desired Shared[T]) bool {
	return c.CompareAndSwap(expected, desired)
}

// Wait blocks while the cell holds the same value as old. Like all
// waits on this package's words, it is released by Notify calls after
// a change, not by the change itself.
func (c *AtomicShared[T]) Wait(old Shared[T]) {
	cur := c.enter()
	for {
		if cur.ptr() != old.hdr {
			c.leave(cur)
			return
		}
		c.w.wait(cur)
		cur = c.reenter(cur)
	}
}

// NotifyOne wakes at least one waiter on this cell.
func (c *AtomicShared[T]) NotifyOne() { c.w.notifyOne() }

// NotifyAll wakes all waiters on this cell.
func (c *AtomicShared[T]) NotifyAll() { c.w.notifyAll() }

// Release drops the cell's pinned reference together with the
// outstanding local counts. The cell must be quiescent: concurrent
// operations on a cell being Released are a caller bug, as they would
// be on any value being torn down.
func (c *AtomicShared[T]) Release() {
	cp := c.w.swap(0)
	if cp.ptr() != nil {
		cp.ptr().release(mkpair(int32(cp.ctr()), 1))
	}
}
