package sptr

import (
	"unsafe"

	"go.uber.org/atomic"
)

// The shareable flavour co-locates the payload with the header and runs
// a user hook at payload teardown. Because a weak release can reach the
// header teardown while the payload hook is still running on another
// goroutine, the two steps are sequenced by a small state machine:
// live -> destroying -> destroyed, with wantHeader set orthogonally at
// any time. The header goes down exactly once, strictly after the
// payload hook returns, by whichever goroutine observes the second of
// the two conditions.
const (
	stDestroying = 1 << iota
	stDestroyed
	stWantHeader
)

func fetchOr32(w *atomic.Uint32, bits uint32) uint32 {
	for {
		old := w.Load()
		if w.CompareAndSwap(old, old|bits) {
			return old
		}
	}
}

func fetchXor32(w *atomic.Uint32, bits uint32) uint32 {
	for {
		old := w.Load()
		if w.CompareAndSwap(old, old^bits) {
			return old
		}
	}
}

func (h *header[T]) shareableDestroyObject() {
	old := fetchOr32(&h.state, stDestroying)
	if old&(stDestroying|stDestroyed) != 0 {
		panic("sptr: shareable payload destroyed twice")
	}

	if h.del != nil {
		h.del(h.obj)
	}
	var zero T
	h.val = zero
	h.obj = nil

	// flip destroying -> destroyed in one step so wantHeader arrivals
	// are split cleanly into before and after.
	old = fetchXor32(&h.state, stDestroying|stDestroyed)
	if old&stWantHeader != 0 {
		h.finishHeader()
	}
}

func (h *header[T]) shareableDestroyHeader() {
	old := fetchOr32(&h.state, stWantHeader)
	if old&stWantHeader != 0 || old&stDestroyed == 0 {
		// either someone else already owns finishing the header, or
		// the payload hook is still in flight and its goroutine will
		// see the flag and finish for us.
		return
	}
	h.finishHeader()
}

func (h *header[T]) finishHeader() {
	unpin(unsafe.Pointer(h))
}

// Shareable is a control block whose payload lives inside it. It is
// itself an owner: NewShareable leaves one strong reference with the
// Shareable, dropped by its Release. Share mints further handles.
type Shareable[T any] struct {
	h header[T]
}

// NewShareable builds a co-located block around v. del, if non-nil,
// runs exactly once when the last strong reference disappears, before
// the header itself is torn down.
func NewShareable[T any](v T, del func(*T)) *Shareable[T] {
	s := &Shareable[T]{}
	s.h.kind = kindShareable
	s.h.del = del
	s.h.val = v
	s.h.obj = &s.h.val
	s.h.refs.store(mkpair(0, 1))
	pin(unsafe.Pointer(&s.h))
	return s
}

// Share mints a new owned strong handle to the payload.
func (s *Shareable[T]) Share() Shared[T] {
	s.h.acquire(mkpair(0, 1))
	return Shared[T]{hdr: &s.h}
}

// Get returns the payload pointer. It is valid only while a strong
// reference exists.
func (s *Shareable[T]) Get() *T { return s.h.obj }

// Release drops the reference held by the Shareable itself. It must be
// called exactly once; handles from Share keep the payload alive past
// it.
func (s *Shareable[T]) Release() {
	s.h.release(mkpair(0, 1))
}
