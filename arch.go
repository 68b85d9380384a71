package smelt

import "github.com/llxisdsh/smelt/internal/opt"

// Arch is the narrow set of architecture primitives the queues and the
// sleep/wakeup path rely on. The default implementation is selected at
// build time; tests may substitute their own.
type Arch interface {
	// WriteBarrier makes every store issued before the call visible to any
	// core that observes a store issued after it.
	WriteBarrier()
	// CAS atomically replaces *addr with new iff it equals old.
	CAS(addr *int32, old, new int32) bool
}

type hostArch struct{}

func (hostArch) WriteBarrier() { opt.WriteBarrier() }

func (hostArch) CAS(addr *int32, old, new int32) bool { return opt.CAS(addr, old, new) }

// DefaultArch returns the primitives for the architecture the binary was
// built for.
func DefaultArch() Arch { return hostArch{} }

// IsTSO reports whether the host keeps stores in program order, in which
// case WriteBarrier compiles to nothing.
func IsTSO() bool { return opt.IsTSO_ }
