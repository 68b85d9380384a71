//go:build smelt_cachelinesize_128

package opt

const cacheLineSizeTag_ uintptr = 128
