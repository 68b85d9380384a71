//go:build smelt_cachelinesize_32

package opt

const cacheLineSizeTag_ uintptr = 32
