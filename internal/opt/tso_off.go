//go:build !(amd64 || 386) || race

package opt

import "sync/atomic"

// IsTSO_ under race detector, or on weakly ordered architectures (arm64,
// ppc64, riscv64, ...), stores may be reordered by the hardware.
const IsTSO_ = false

// fence is the target of the read-modify-write used as a full barrier.
var fence uint32

// WriteBarrier orders all earlier stores before any later store. Go exposes
// no bare fence, but every sync/atomic read-modify-write is a full barrier
// (DMB ISH / sync / fence rw,rw).
//
//go:nosplit
func WriteBarrier() {
	atomic.AddUint32(&fence, 0)
}

// CAS atomically replaces *addr with new iff it equals old.
//
//go:nosplit
func CAS(addr *int32, old, new int32) bool {
	return atomic.CompareAndSwapInt32(addr, old, new)
}
