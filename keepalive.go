package sptr

import (
	"sync"
	"unsafe"
)

// A cell packs its control block pointer into a plain uint64, which the
// garbage collector does not scan, so a cell can be a block's only
// owner. Every live block is pinned here from construction until its
// header is destroyed; the hot paths never touch the registry.
const pinShards = 32

type pinShard struct {
	mu sync.Mutex
	m  map[unsafe.Pointer]struct{}
}

var pinTab [pinShards]pinShard

func pinShardFor(p unsafe.Pointer) *pinShard {
	return &pinTab[uintptr(p)>>4%pinShards]
}

func pin(p unsafe.Pointer) {
	sh := pinShardFor(p)
	sh.mu.Lock()
	if sh.m == nil {
		sh.m = make(map[unsafe.Pointer]struct{})
	}
	sh.m[p] = struct{}{}
	sh.mu.Unlock()
}

// unpin releases a block to the collector. It is idempotent: the strong
// and weak release paths of the plain flavours can race to the header
// teardown, and the loser still holds a live pointer, so the double
// call is harmless here.
func unpin(p unsafe.Pointer) {
	sh := pinShardFor(p)
	sh.mu.Lock()
	delete(sh.m, p)
	sh.mu.Unlock()
}
