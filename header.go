package sptr

import (
	"unsafe"

	"go.uber.org/atomic"
)

// kind selects a control block flavour. Destruction is dispatched by a
// switch on the tag rather than through an interface so the block stays
// a single flat allocation addressable by a packed pointer.
type kind uint8

const (
	kindExtern kind = iota
	kindExternDeleter
	kindInplace
	kindShareable
)

// header is the control block for one shared value. refs.c2 is the
// authoritative strong count and refs.c1 accumulates donations from
// cell-local counters; weaks mirrors that for weak observers. obj is
// set at construction and cleared only by the payload teardown, which
// runs when refs crosses exactly {0, 0}.
type header[T any] struct {
	refs  atomicPair
	weaks atomicPair
	obj   *T

	kind  kind
	del   func(*T)
	state atomic.Uint32 // shareable teardown sequencing
	val   T             // payload storage for the co-located flavours
}

func newHeader[T any](p *T, k kind, del func(*T)) *header[T] {
	h := &header[T]{obj: p, kind: k, del: del}
	h.refs.store(mkpair(0, 1))
	pin(unsafe.Pointer(h))
	return h
}

func (h *header[T]) acquire(p pair) { h.refs.fetchAdd(p) }

// hold and unhold move cell-local counts in and out of the donation
// half without touching the strong count.
func (h *header[T]) hold(n int16)   { h.refs.fetchAdd(mkpair(int32(n), 0)) }
func (h *header[T]) unhold(n int16) { h.refs.fetchSub(mkpair(int32(n), 0)) }

// release removes p from the strong pair. Whoever's subtraction lands
// exactly on {0, 0} tears the payload down, and then the header too if
// no weak observers remain.
func (h *header[T]) release(p pair) {
	if h.refs.fetchSub(p) == p {
		h.destroyObject()
		if h.weaks.load() == 0 {
			h.destroyHeader()
		}
	}
}

// releaseHold returns one pre-paid cell count to the donation half. It
// is a subtraction of {-1, 0} so that the returning observer, when it
// is the last outstanding participant, is the one that crosses {0, 0}
// and runs the teardown.
func (h *header[T]) releaseHold() { h.release(mkpair(-1, 0)) }

// weakLock bumps the strong count only if it is still non-zero.
func (h *header[T]) weakLock() bool {
	cur := h.refs.load()
	for {
		if cur.c2() == 0 {
			return false
		}
		if h.refs.compareAndSwap(cur, mkpair(cur.c1(), cur.c2()+1)) {
			return true
		}
		cur = h.refs.load()
	}
}

func (h *header[T]) acquireWeak() { h.weaks.fetchAdd(mkpair(0, 1)) }

// releaseWeak tears down the header, never the payload, when the last
// weak reference leaves after the strong pair has emptied.
func (h *header[T]) releaseWeak(p pair) {
	if h.weaks.fetchSub(p) == p && h.refs.load() == 0 {
		h.destroyHeader()
	}
}

func (h *header[T]) useCount() uint32  { return h.refs.load().c2() }
func (h *header[T]) weakCount() uint32 { return h.weaks.load().c2() }

func (h *header[T]) destroyObject() {
	switch h.kind {
	case kindExtern:
		h.obj = nil
	case kindExternDeleter:
		h.del(h.obj)
		h.obj = nil
	case kindInplace:
		var zero T
		h.val = zero
		h.obj = nil
	case kindShareable:
		h.shareableDestroyObject()
	}
}

func (h *header[T]) destroyHeader() {
	if h.kind == kindShareable {
		h.shareableDestroyHeader()
		return
	}
	unpin(unsafe.Pointer(h))
}
