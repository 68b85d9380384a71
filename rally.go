package smelt

import (
	"sync/atomic"

	"github.com/llxisdsh/smelt/internal/opt"
)

// rally holds a fixed party of goroutines until all have arrived. Run uses
// it as a start line so that no participant enters a collective while its
// peers are still being locked and pinned.
//
// Unlike ClusterBarrier it blocks on a semaphore: the wait happens once,
// before any core is dedicated to its participant.
type rally struct {
	_ noCopy
	// high 32 bits: generation, low 32 bits: arrivals
	state atomic.Uint64
	// generation g waits on sema[g%2], so a fast party of the next
	// generation cannot steal a wakeup
	sema [2]opt.Sema
}

// meet blocks until parties callers have called it. It returns the arrival
// index; parties-1 is the caller that released the others.
func (r *rally) meet(parties int) int {
	if parties <= 1 {
		return 0
	}
	var sp spinner
	for {
		s := r.state.Load()
		gen, count := s>>32, uint32(s)
		if count == uint32(parties)-1 {
			if r.state.CompareAndSwap(s, (gen+1)<<32) {
				for range count {
					r.sema[gen%2].Release()
				}
				return int(count)
			}
		} else if r.state.CompareAndSwap(s, s+1) {
			r.sema[gen%2].Acquire()
			return int(count)
		}
		sp.spin()
	}
}
