package smelt

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestDisseminationBarrier_Rounds(t *testing.T) {
	for n, want := range map[int]int{1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 64: 6} {
		if got := disseminationRounds(n); got != want {
			t.Errorf("rounds(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestDisseminationBarrier_Wait(t *testing.T) {
	rounds := barrierRounds()
	for _, n := range []int{1, 2, 3, 5, 8} {
		d, err := NewDisseminationBarrier(n)
		if err != nil {
			t.Fatal(err)
		}
		if d.NumNodes() != n || d.Rounds() != disseminationRounds(n) {
			t.Fatalf("n=%d rounds=%d", d.NumNodes(), d.Rounds())
		}
		arrived := make([]atomic.Int32, rounds)
		var wg sync.WaitGroup
		wg.Add(n)
		for i := range n {
			p, err := d.Node(i)
			if err != nil {
				t.Fatal(err)
			}
			if p.ID() != i {
				t.Fatal("ID")
			}
			go func() {
				defer wg.Done()
				for r := range rounds {
					arrived[r].Add(1)
					if err := p.Wait(); err != nil {
						t.Errorf("participant %d: %v", i, err)
						return
					}
					if got := arrived[r].Load(); got != int32(n) {
						t.Errorf("n=%d participant %d left round %d with %d arrivals", n, i, r, got)
					}
				}
			}()
		}
		wg.Wait()
		d.Destroy()
	}
}

func TestDisseminationBarrier_Errors(t *testing.T) {
	if _, err := NewDisseminationBarrier(0); !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("n=0 err = %v", err)
	}
	if _, err := NewDisseminationBarrier(10, WithMaxNodes(8)); !errors.Is(err, ErrTooManyNodes) {
		t.Errorf("too many err = %v", err)
	}
	if _, err := NewDisseminationBarrier(4, WithQueueSlots(1)); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("slots err = %v", err)
	}
	d, err := NewDisseminationBarrier(2, WithSpinBudget(200))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Node(2); !errors.Is(err, ErrNoSuchNode) {
		t.Errorf("Node(2) err = %v", err)
	}
	p, _ := d.Node(0)
	if err := p.Wait(); !errors.Is(err, ErrSpinBudget) {
		t.Errorf("lonely Wait err = %v", err)
	}
	d.Destroy()
	if err := p.Wait(); !errors.Is(err, ErrQueueDestroyed) {
		t.Errorf("Wait after Destroy err = %v", err)
	}
}
