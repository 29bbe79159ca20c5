package sptr

import "go.uber.org/atomic"

// pair packs two sub-counters into a single 64 bit word: unsigned c2 in
// the low half and signed c1 in the high half. c2 carries authoritative
// reference counts; c1 carries donations from cell-local counters, so it
// can be transiently negative.
type pair uint64

func mkpair(c1 int32, c2 uint32) pair {
	return pair(uint64(c2) | uint64(uint32(c1))<<32)
}

func (p pair) c1() int32  { return int32(uint32(p >> 32)) }
func (p pair) c2() uint32 { return uint32(p) }

func (p pair) add(r pair) pair { return mkpair(p.c1()+r.c1(), p.c2()+r.c2()) }
func (p pair) sub(r pair) pair { return mkpair(p.c1()-r.c1(), p.c2()-r.c2()) }

// The relationals on pairs are conjunctions over both sub-counters, not
// a total order. Equality is on the full word.
func (p pair) le(r pair) bool { return p.c1() <= r.c1() && p.c2() <= r.c2() }
func (p pair) ge(r pair) bool { return p.c1() >= r.c1() && p.c2() >= r.c2() }

// atomicPair is an atomic pair. The zero value holds {0, 0}.
type atomicPair struct {
	w atomic.Uint64
}

func (a *atomicPair) load() pair    { return pair(a.w.Load()) }
func (a *atomicPair) store(p pair)  { a.w.Store(uint64(p)) }
func (a *atomicPair) swap(p pair) pair {
	return pair(a.w.Swap(uint64(p)))
}

func (a *atomicPair) compareAndSwap(old, new pair) bool {
	return a.w.CompareAndSwap(uint64(old), uint64(new))
}

// casC1 sets c1 to desired if it currently equals *expected, preserving
// whatever c2 happens to be. On failure the observed c1 is written back
// through expected. Churn on c2 alone never fails the operation: it
// retries until the full-word swap lands or c1 is seen to differ.
func (a *atomicPair) casC1(expected *int32, desired int32) bool {
	cur := a.load()
	for {
		if cur.c1() != *expected {
			*expected = cur.c1()
			return false
		}
		if a.compareAndSwap(cur, mkpair(desired, cur.c2())) {
			return true
		}
		cur = a.load()
	}
}

// casC2 is casC1 for the other sub-counter.
func (a *atomicPair) casC2(expected *uint32, desired uint32) bool {
	cur := a.load()
	for {
		if cur.c2() != *expected {
			*expected = cur.c2()
			return false
		}
		if a.compareAndSwap(cur, mkpair(cur.c1(), desired)) {
			return true
		}
		cur = a.load()
	}
}

// fetchAdd adds both halves at once and returns the pre-op pair. The
// addition is a single wrapping add of the packed words; a carry crosses
// the boundary only if c2 itself overflows.
func (a *atomicPair) fetchAdd(p pair) pair {
	return pair(a.w.Add(uint64(p)) - uint64(p))
}

func (a *atomicPair) fetchSub(p pair) pair {
	return pair(a.w.Sub(uint64(p)) + uint64(p))
}

func (a *atomicPair) fetchAnd(p pair) pair {
	for {
		old := a.load()
		if a.compareAndSwap(old, old&p) {
			return old
		}
	}
}

func (a *atomicPair) fetchOr(p pair) pair {
	for {
		old := a.load()
		if a.compareAndSwap(old, old|p) {
			return old
		}
	}
}

func (a *atomicPair) fetchXor(p pair) pair {
	for {
		old := a.load()
		if a.compareAndSwap(old, old^p) {
			return old
		}
	}
}

// fetchTransfer atomically moves n from c1 to c2, returning the pre-op
// pair. With c2 in the low half both directions reduce to one wrapping
// add or sub of the same 64 bit value, so no borrow can corrupt either
// half for the magnitudes the protocol produces.
func (a *atomicPair) fetchTransfer(n int32) pair {
	if n >= 0 {
		return a.fetchAdd(mkpair(-n, uint32(n)))
	}
	return a.fetchSub(mkpair(n, uint32(-n)))
}

// wait blocks while the pair equals old. Wakeups come from notify calls
// on the same pair; the word changing on its own does not wake waiters.
func (a *atomicPair) wait(old pair) { waitWord(&a.w, uint64(old)) }

func (a *atomicPair) notifyOne() { notifyWord(&a.w) }
func (a *atomicPair) notifyAll() { notifyWord(&a.w) }
