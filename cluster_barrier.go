package smelt

import (
	"fmt"
	"sync/atomic"

	"github.com/llxisdsh/smelt/internal/opt"
)

// roundCounter is one arrival counter, alone on its cache line.
type roundCounter struct {
	n atomic.Int32
	_ [opt.CacheLineSize_ - 4]byte
}

// ClusterBarrier is a counting barrier over shared memory for the
// participants of one coherence domain. It stands in for the queue
// notifications of one tree layer.
//
// Every round has its own counter. Seats increment the counter of their
// current round and spin until it reaches the party count. Seat 0 is the
// sequentializer: after passing round r it clears the counter of round
// r-1, which no seat can still be reading and none can reach again before
// r+RoundMax-1.
//
// Rounds cycle through RoundMax counters, so RoundMax must be at least 3.
type ClusterBarrier struct {
	_       noCopy
	parties int32
	rounds  []roundCounter
	seats   []ClusterSeat
}

// ClusterSeat is one party's handle on a ClusterBarrier. Each seat is
// used by a single goroutine.
type ClusterSeat struct {
	_      noCopy
	b      *ClusterBarrier
	idx    int
	round  int
	budget int
}

// NewClusterBarrier returns a barrier for parties seats with roundMax
// round counters. spinBudget bounds every wait; zero waits forever.
func NewClusterBarrier(parties, roundMax, spinBudget int) (*ClusterBarrier, error) {
	if parties <= 0 {
		return nil, fmt.Errorf("%w: %d cluster parties", ErrInvalidConfig, parties)
	}
	if roundMax < MinRoundMax {
		return nil, fmt.Errorf("%w: round_max %d < %d", ErrInvalidConfig, roundMax, MinRoundMax)
	}
	b := &ClusterBarrier{
		parties: int32(parties),
		rounds:  make([]roundCounter, roundMax),
		seats:   make([]ClusterSeat, parties),
	}
	for i := range b.seats {
		s := &b.seats[i]
		s.b, s.idx, s.budget = b, i, max(spinBudget, 0)
	}
	return b, nil
}

// Parties returns the number of seats.
func (b *ClusterBarrier) Parties() int { return int(b.parties) }

// Seat returns seat i. Seat 0 is the sequentializer.
func (b *ClusterBarrier) Seat(i int) *ClusterSeat { return &b.seats[i] }

// Round returns the index of the counter the seat uses next.
func (s *ClusterSeat) Round() int { return s.round }

// Arrive blocks until every seat has arrived in the current round.
func (s *ClusterSeat) Arrive() error {
	b := s.b
	n := len(b.rounds)
	c := &b.rounds[s.round]
	if c.n.Add(1) != b.parties {
		sp := spinner{budget: s.budget}
		for c.n.Load() < b.parties {
			if !sp.spin() {
				return fmt.Errorf("%w: cluster seat %d round %d", ErrSpinBudget, s.idx, s.round)
			}
		}
	}
	if s.idx == 0 {
		b.rounds[(s.round+n-1)%n].n.Store(0)
	}
	s.round = (s.round + 1) % n
	return nil
}
