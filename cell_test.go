package sptr

import (
	"testing"

	"github.com/zeebo/assert"
)

func TestCellLoad(t *testing.T) {
	before := pinned()

	s := Make(42)
	c := NewAtomicShared(s)

	l := c.Load()
	assert.That(t, l.Get() == s.Get())
	assert.Equal(t, *l.Get(), 42)
	assert.Equal(t, s.UseCount(), uint32(3)) // s, the cell, l

	l.Release()
	c.Release()
	s.Release()
	assert.Equal(t, pinned(), before)
}

func TestCellEmpty(t *testing.T) {
	var c AtomicShared[int]
	assert.That(t, c.Load().Empty())
	c.Release()
}

func TestCellStore(t *testing.T) {
	before := pinned()

	destroyed := 0
	a := NewWithDeleter(new(int), func(*int) { destroyed++ })
	b := NewWithDeleter(new(int), func(*int) { destroyed++ })

	c := NewAtomicShared(a)
	c.Store(b)
	l := c.Load()
	assert.That(t, l.Get() == b.Get())
	l.Release()

	// storing the empty handle clears the cell and releases the block.
	a.Release()
	b.Release()
	assert.Equal(t, destroyed, 1)
	c.Store(Shared[int]{})
	assert.That(t, c.Load().Empty())
	assert.Equal(t, destroyed, 2)

	c.Release()
	assert.Equal(t, pinned(), before)
}

func TestCellSwap(t *testing.T) {
	before := pinned()

	a := Make(1)
	b := Make(2)
	c := NewAtomicShared(a)

	old := c.Swap(b)
	assert.That(t, old.Get() == a.Get())
	old.Release()

	old = c.Swap(Shared[int]{})
	assert.That(t, old.Get() == b.Get())
	old.Release()
	assert.That(t, c.Load().Empty())

	a.Release()
	b.Release()
	c.Release()
	assert.Equal(t, pinned(), before)
}

func TestCellCompareAndSwap(t *testing.T) {
	before := pinned()

	a := Make(1)
	b := Make(2)
	c := NewAtomicShared(a)

	// matching expected publishes desired.
	e := a.Clone()
	assert.That(t, c.CompareAndSwap(&e, b))
	e.Release()
	l := c.Load()
	assert.That(t, l.Get() == b.Get())
	l.Release()

	// mismatching expected reports the observed value back.
	e = a.Clone()
	assert.That(t, !c.CompareAndSwap(&e, a))
	assert.That(t, e.Get() == b.Get())
	e.Release()

	// weak form shares the semantics.
	e = b.Clone()
	assert.That(t, c.CompareAndSwapWeak(&e, a))
	e.Release()
	l = c.Load()
	assert.That(t, l.Get() == a.Get())
	l.Release()

	a.Release()
	b.Release()
	c.Release()
	assert.Equal(t, pinned(), before)
}

func TestCellCompareAndSwapEmpty(t *testing.T) {
	before := pinned()

	// empty expected against an empty cell succeeds without touching
	// any control block.
	var c AtomicShared[int]
	var e Shared[int]
	assert.That(t, c.CompareAndSwap(&e, Shared[int]{}))
	assert.That(t, e.Empty())
	assert.Equal(t, pinned(), before)

	// and can publish into the empty cell.
	a := Make(3)
	assert.That(t, c.CompareAndSwap(&e, a))
	l := c.Load()
	assert.That(t, l.Get() == a.Get())
	l.Release()

	// non-empty cell against empty expected fails and materializes.
	var e2 Shared[int]
	assert.That(t, !c.CompareAndSwap(&e2, Shared[int]{}))
	assert.That(t, e2.Get() == a.Get())
	e2.Release()

	a.Release()
	c.Release()
	assert.Equal(t, pinned(), before)
}

func TestCellWaitNotify(t *testing.T) {
	before := pinned()

	a := Make(1)
	b := Make(2)
	c := NewAtomicShared(a)

	// waiting on a value the cell does not hold returns immediately.
	c.Wait(b)

	ch := make(chan struct{})
	go func() {
		c.Wait(a)
		close(ch)
	}()

	c.Store(b)
	c.NotifyAll()
	<-ch

	a.Release()
	b.Release()
	c.Release()
	assert.Equal(t, pinned(), before)
}

func TestCellQuiescentCounts(t *testing.T) {
	// once every in-flight operation settles, the strong pair reduces
	// to {cell local counter, live strong handles}.
	before := pinned()

	s := Make(9)
	c := NewAtomicShared(s)

	const loads = 100
	for i := 0; i < loads; i++ {
		l := c.Load()
		l.Release()
	}

	cp := c.w.load()
	assert.Equal(t, cp.ctr(), int16(loads))
	assert.Equal(t, s.hdr.refs.load(), mkpair(loads, 2)) // s and the cell

	c.Release()
	assert.Equal(t, s.hdr.refs.load(), mkpair(0, 1))

	s.Release()
	assert.Equal(t, pinned(), before)
}

func TestHeaderHold(t *testing.T) {
	// hold and unhold move only the donation half.
	s := Make(5)
	s.hdr.hold(3)
	assert.Equal(t, s.hdr.refs.load(), mkpair(3, 1))
	assert.Equal(t, s.UseCount(), uint32(1))
	s.hdr.unhold(3)
	assert.Equal(t, s.hdr.refs.load(), mkpair(0, 1))
	s.Release()
}

func TestCellReleaseLastOwner(t *testing.T) {
	before := pinned()

	destroyed := 0
	s := NewWithDeleter(new(int), func(*int) { destroyed++ })
	c := NewAtomicShared(s)
	s.Release()

	l := c.Load()
	assert.That(t, !l.Empty())
	l.Release()
	assert.Equal(t, destroyed, 0)

	c.Release()
	assert.Equal(t, destroyed, 1)
	assert.Equal(t, pinned(), before)
}
