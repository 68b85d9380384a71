package smelt

import (
	"fmt"
	"math/bits"
)

// DisseminationBarrier is a barrier without a tree: in round r participant
// i notifies (i+2^r) mod n and waits for (i-2^r) mod n. After
// ceil(log2 n) rounds every participant has transitively heard from all
// others.
//
// Each round of each participant has a dedicated ring, so the barrier
// needs n*ceil(log2 n) rings and no shared counter.
type DisseminationBarrier struct {
	nodes []DisseminationNode
}

// DisseminationNode is one participant's handle.
type DisseminationNode struct {
	_    noCopy
	id   int
	send []Queue
	recv []Queue
}

// NewDisseminationBarrier builds a barrier for n participants. Only the
// queue options of the configuration (QueueSlots, SpinBudget, Arch and
// MaxNodes) are used.
func NewDisseminationBarrier(n int, opts ...func(*Config)) (*DisseminationBarrier, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d participants", ErrInvalidTopology, n)
	}
	if n > cfg.MaxNodes {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyNodes, n, cfg.MaxNodes)
	}
	rounds := disseminationRounds(n)
	qopts := []QueueOption{QueueArch(cfg.Arch), QueueSpinBudget(cfg.SpinBudget)}

	d := &DisseminationBarrier{nodes: make([]DisseminationNode, n)}
	for i := range d.nodes {
		d.nodes[i].id = i
		d.nodes[i].send = make([]Queue, rounds)
		d.nodes[i].recv = make([]Queue, rounds)
	}
	for r := range rounds {
		dist := 1 << r
		for i := range d.nodes {
			buf, err := NewBuffer(cfg.QueueSlots)
			if err != nil {
				return nil, err
			}
			to := (i + dist) % n
			if err = d.nodes[i].send[r].InitTx(buf, qopts...); err != nil {
				return nil, err
			}
			if err = d.nodes[to].recv[r].InitRx(buf, qopts...); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// disseminationRounds returns ceil(log2 n).
func disseminationRounds(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// NumNodes returns the number of participants.
func (d *DisseminationBarrier) NumNodes() int { return len(d.nodes) }

// Rounds returns the number of notification rounds per Wait.
func (d *DisseminationBarrier) Rounds() int {
	if len(d.nodes) == 0 {
		return 0
	}
	return len(d.nodes[0].send)
}

// Node returns the handle of participant i.
func (d *DisseminationBarrier) Node(i int) (*DisseminationNode, error) {
	if i < 0 || i >= len(d.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchNode, i)
	}
	return &d.nodes[i], nil
}

// Destroy releases every ring.
func (d *DisseminationBarrier) Destroy() {
	for i := range d.nodes {
		for r := range d.nodes[i].send {
			d.nodes[i].send[r].Destroy()
			d.nodes[i].recv[r].Destroy()
		}
	}
}

// ID returns the participant id.
func (p *DisseminationNode) ID() int { return p.id }

// Wait blocks until every participant has called Wait for this round.
func (p *DisseminationNode) Wait() error {
	for r := range p.send {
		if err := p.send[r].Notify(); err != nil {
			return err
		}
		if err := p.recv[r].RecvNotification(); err != nil {
			return err
		}
	}
	return nil
}
