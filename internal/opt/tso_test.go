package opt

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"
)

func TestCAS(t *testing.T) {
	var v int32
	if !CAS(&v, 0, 1) {
		t.Fatal("CAS 0->1 failed")
	}
	if CAS(&v, 0, 2) {
		t.Fatal("CAS succeeded with stale expected value")
	}
	if v != 1 {
		t.Fatalf("v = %d, want 1", v)
	}
}

func TestCASSingleWinner(t *testing.T) {
	var v int32
	var wins atomic.Int32
	var wg sync.WaitGroup
	const n = 16
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			if CAS(&v, 0, 1) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if w := wins.Load(); w != 1 {
		t.Fatalf("winners = %d, want 1", w)
	}
}

// Message-passing litmus: payload stored before the barrier must be visible
// once the flag is observed.
func TestWriteBarrierPublish(t *testing.T) {
	iters := 10000
	if Race_ {
		iters = 1000
	}
	for range iters {
		var payload [7]uint64
		var flag atomic.Uint32
		done := make(chan struct{})
		go func() {
			defer close(done)
			for flag.Load() == 0 {
			}
			for i, v := range payload {
				if v != uint64(i+1) {
					t.Errorf("payload[%d] = %d", i, v)
					return
				}
			}
		}()
		for i := range payload {
			payload[i] = uint64(i + 1)
		}
		WriteBarrier()
		flag.Store(1)
		<-done
	}
}

func TestPadSize(t *testing.T) {
	if got := unsafe.Sizeof(Pad_{}); got != CacheLineSize_ {
		t.Fatalf("Pad_ size = %d, want %d", got, CacheLineSize_)
	}
	if CacheLineSize_ < 32 {
		t.Fatalf("CacheLineSize_ = %d", CacheLineSize_)
	}
}
