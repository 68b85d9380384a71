//go:build smelt_cachelinesize_256

package opt

const cacheLineSizeTag_ uintptr = 256
