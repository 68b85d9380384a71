//go:build linux

// Package affinity pins OS threads to cores.
package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// cpuSetSize is CPU_SETSIZE from <sched.h>.
const cpuSetSize = 1024

// Supported reports whether Pin can restrict the calling thread.
const Supported = true

// Pin restricts the calling OS thread to core. The caller must hold the
// thread with runtime.LockOSThread, otherwise the scheduler may move the
// goroutine to an unpinned thread.
func Pin(core int) error {
	if core < 0 {
		return fmt.Errorf("affinity: invalid core %d", core)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: pin to core %d: %w", core, err)
	}
	return nil
}

// Current returns the cores the calling thread may run on.
func Current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("affinity: %w", err)
	}
	cores := make([]int, 0, set.Count())
	for i := 0; i < cpuSetSize; i++ {
		if set.IsSet(i) {
			cores = append(cores, i)
		}
	}
	return cores, nil
}
