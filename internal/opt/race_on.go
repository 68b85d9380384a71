//go:build race

package opt

import (
	_ "unsafe" // for linkname
)

const Race_ = true

// Sema is a zero-allocation semaphore.
// Under the race detector it still parks on the runtime semaphore, the
// detector understands semacquire/semrelease as a synchronization edge.
type Sema uint32

func (s *Sema) Acquire() {
	runtime_semacquire((*uint32)(s))
}

func (s *Sema) Release() {
	runtime_semrelease((*uint32)(s), false, 0)
}

//go:linkname runtime_semacquire sync.runtime_Semacquire
func runtime_semacquire(s *uint32)

//go:linkname runtime_semrelease sync.runtime_Semrelease
func runtime_semrelease(s *uint32, handoff bool, skipframes int)
