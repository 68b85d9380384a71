//go:build smelt_cachelinesize_64

package opt

const cacheLineSizeTag_ uintptr = 64
