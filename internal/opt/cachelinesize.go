//go:build !smelt_cachelinesize_32 && !smelt_cachelinesize_64 && !smelt_cachelinesize_128 && !smelt_cachelinesize_256

package opt

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize_ is used in structure padding to prevent false sharing.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize_ = unsafe.Sizeof(cpu.CacheLinePad{})

// Pad_ occupies one full cache line. Place it between fields that are
// written by different cores.
type Pad_ = cpu.CacheLinePad
