//go:build !linux

// Package affinity pins OS threads to cores.
package affinity

import (
	"fmt"
	"runtime"
)

// Supported reports whether Pin can restrict the calling thread.
const Supported = false

// Pin is a no-op on platforms without sched_setaffinity.
func Pin(core int) error {
	if core < 0 {
		return fmt.Errorf("affinity: invalid core %d", core)
	}
	return nil
}

// Current reports every logical CPU.
func Current() ([]int, error) {
	cores := make([]int, runtime.NumCPU())
	for i := range cores {
		cores[i] = i
	}
	return cores, nil
}
