package sptr

import (
	"unsafe"

	"go.uber.org/atomic"
)

const (
	ptrBits = 48
	ptrMask = 1<<ptrBits - 1
)

// cptr packs a pointer into the low 48 bits of one word with a signed
// 16 bit counter in the top bits. Counter arithmetic cannot spill into
// the pointer half: the counter occupies the topmost bits, so it wraps
// off the end of the word. The zero word is the canonical empty value.
type cptr[T any] uint64

func mkcptr[T any](ctr int16, p *T) cptr[T] {
	w := uint64(uintptr(unsafe.Pointer(p)))
	if w&^uint64(ptrMask) != 0 {
		panic("sptr: pointer does not fit in 48 bits")
	}
	return cptr[T](w | uint64(uint16(ctr))<<ptrBits)
}

func (c cptr[T]) ptr() *T    { return (*T)(unsafe.Pointer(uintptr(c & ptrMask))) }
func (c cptr[T]) ctr() int16 { return int16(uint16(c >> ptrBits)) }

func (c cptr[T]) withCtr(n int16) cptr[T] {
	return c&ptrMask | cptr[T](uint64(uint16(n))<<ptrBits)
}

// atomicCptr is an atomic cptr. Arithmetic acts only on the counter
// half. The zero value is the empty cptr.
type atomicCptr[T any] struct {
	// mention T in a field to disallow conversion between instantiations.
	_ [0]*T

	w atomic.Uint64
}

func (a *atomicCptr[T]) load() cptr[T]   { return cptr[T](a.w.Load()) }
func (a *atomicCptr[T]) store(c cptr[T]) { a.w.Store(uint64(c)) }

func (a *atomicCptr[T]) swap(c cptr[T]) cptr[T] {
	return cptr[T](a.w.Swap(uint64(c)))
}

func (a *atomicCptr[T]) compareAndSwap(old, new cptr[T]) bool {
	return a.w.CompareAndSwap(uint64(old), uint64(new))
}

// fetchAdd adds n to the counter half and returns the pre-op value.
func (a *atomicCptr[T]) fetchAdd(n int16) cptr[T] {
	d := uint64(uint16(n)) << ptrBits
	return cptr[T](a.w.Add(d) - d)
}

func (a *atomicCptr[T]) fetchSub(n int16) cptr[T] {
	return a.fetchAdd(-n)
}

// inc bumps the counter and returns the post-op snapshot.
func (a *atomicCptr[T]) inc() cptr[T] {
	return cptr[T](a.w.Add(1 << ptrBits))
}

// wait blocks while the word equals old, counter half included. Any
// notify on this cptr wakes the waiters for a recheck.
func (a *atomicCptr[T]) wait(old cptr[T]) { waitWord(&a.w, uint64(old)) }

func (a *atomicCptr[T]) notifyOne() { notifyWord(&a.w) }
func (a *atomicCptr[T]) notifyAll() { notifyWord(&a.w) }
