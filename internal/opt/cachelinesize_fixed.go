//go:build smelt_cachelinesize_32 || smelt_cachelinesize_64 || smelt_cachelinesize_128 || smelt_cachelinesize_256

package opt

// CacheLineSize_ is forced by a build tag, e.g.
// go build -tags=smelt_cachelinesize_128
const CacheLineSize_ = cacheLineSizeTag_

// Pad_ occupies one full cache line.
type Pad_ struct{ _ [CacheLineSize_]byte }
