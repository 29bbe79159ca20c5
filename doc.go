// package sptr provides lock-free shared-ownership handles and an atomic
// cell for publishing them between goroutines.
//
// Consider a configuration value that many readers consult on a hot path
// while a writer occasionally swaps in a replacement. A mutex-based
// implementation might be:
//
//	var (
//		mu  sync.RWMutex
//		cfg *Config
//	)
//
//	func Read() *Config {
//		mu.RLock()
//		c := cfg
//		mu.RUnlock()
//		return c
//	}
//
//	func Replace(c *Config) {
//		mu.Lock()
//		cfg = c
//		mu.Unlock()
//	}
//
// This serializes readers through the lock's word, and it gives no answer
// to the harder question: when is it safe to tear down the resources the
// old value owns? Using the types in this package, both problems are
// solved without a lock:
//
//	var cell sptr.AtomicShared[Config]
//
//	func Read() {
//		c := cell.Load()
//		use(c.Get())
//		c.Release()
//	}
//
//	func Replace(c Config) {
//		s := sptr.Make(c)
//		cell.Store(s)
//		s.Release()
//	}
//
// Load bumps a small counter packed into the same word as the published
// pointer, so observing the pointer and pinning it are a single atomic
// operation. The pinned counts are settled against the control block's
// global counters lazily, and the value's destructor hooks run exactly
// once, when the last strong reference disappears; weak handles keep
// only the control block alive.
//
// Shared and Weak are value types. Each owned handle must be Released
// exactly once; Clone mints a new owned handle. Cycles of Shared handles
// are never collected, break them with Weak.
package sptr
