package sptr

import (
	"sync"
	"unsafe"

	"go.uber.org/atomic"
)

// Waiting on a word parks the goroutine on a shard of mutex/cond pairs
// hashed by the word's address. Only Wait and Notify ever touch these
// locks; the lock-free operations never do.
const waitShards = 32

type waitShard struct {
	mu   sync.Mutex
	cond sync.Cond
}

var waitTab = func() *[waitShards]waitShard {
	t := new([waitShards]waitShard)
	for i := range t {
		t[i].cond.L = &t[i].mu
	}
	return t
}()

func waitShardFor(w *atomic.Uint64) *waitShard {
	return &waitTab[uintptr(unsafe.Pointer(w))>>3%waitShards]
}

// waitWord blocks while the word equals old. The shard lock closes the
// race between the recheck and the sleep: a notifier broadcasts under
// the same lock, so a change published before our check cannot have its
// wakeup land in the gap.
func waitWord(w *atomic.Uint64, old uint64) {
	sh := waitShardFor(w)
	sh.mu.Lock()
	for w.Load() == old {
		sh.cond.Wait()
	}
	sh.mu.Unlock()
}

// notifyWord wakes every waiter hashed to the word's shard. Shards are
// shared between addresses, so a single targeted wake is not possible;
// woken goroutines recheck their own words and go back to sleep if
// theirs did not change. notifyOne and notifyAll therefore both
// broadcast, which satisfies the at-least-one contract of notifyOne.
func notifyWord(w *atomic.Uint64) {
	sh := waitShardFor(w)
	sh.mu.Lock()
	sh.cond.Broadcast()
	sh.mu.Unlock()
}
