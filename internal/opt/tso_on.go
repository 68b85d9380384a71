//go:build (amd64 || 386) && !race

package opt

import "sync/atomic"

// IsTSO_ reports whether stores become visible to other cores in program
// order. On x86 the publishing atomic store already orders every earlier
// payload store, so WriteBarrier emits nothing.
const IsTSO_ = true

// WriteBarrier orders all earlier stores before any later store.
//
//go:nosplit
func WriteBarrier() {}

// CAS atomically replaces *addr with new iff it equals old.
//
//go:nosplit
func CAS(addr *int32, old, new int32) bool {
	return atomic.CompareAndSwapInt32(addr, old, new)
}
