//go:build linux

package affinity

import (
	"testing"

	"golang.org/x/sys/unix"
)

func restore(t *testing.T, cores []int) {
	t.Helper()
	var set unix.CPUSet
	set.Zero()
	for _, c := range cores {
		set.Set(c)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		t.Fatalf("restore affinity: %v", err)
	}
}
