package smelt

import "github.com/llxisdsh/smelt/internal/opt"

// QueuePair is one endpoint of a bidirectional link: a send queue on one
// ring and a receive queue on the other. The two cursors are written by
// the same goroutine but live on separate lines from the peer's endpoint.
type QueuePair struct {
	tx Queue
	_  opt.Pad_
	rx Queue
	_  opt.Pad_
}

// NewQueuePair allocates the two rings of a link and returns its two
// connected endpoints. Whatever a sends, b receives, and vice versa.
// With QueueSleepAfter and no explicit doorbell, each direction gets its
// own doorbell.
func NewQueuePair(capacity int, opts ...QueueOption) (a, b *QueuePair, err error) {
	ab, err := NewBuffer(capacity)
	if err != nil {
		return nil, nil, err
	}
	ba, err := NewBuffer(capacity)
	if err != nil {
		return nil, nil, err
	}
	abOpts, baOpts := ringOptions(opts), ringOptions(opts)

	a, b = &QueuePair{}, &QueuePair{}
	// writers first: InitTx establishes the empty state readers poll for
	if err = a.tx.InitTx(ab, abOpts...); err != nil {
		return nil, nil, err
	}
	if err = b.tx.InitTx(ba, baOpts...); err != nil {
		return nil, nil, err
	}
	if err = b.rx.InitRx(ab, abOpts...); err != nil {
		return nil, nil, err
	}
	if err = a.rx.InitRx(ba, baOpts...); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Tx returns the sending queue.
func (p *QueuePair) Tx() *Queue { return &p.tx }

// Rx returns the receiving queue.
func (p *QueuePair) Rx() *Queue { return &p.rx }

// Send publishes p to the peer.
func (p *QueuePair) Send(msg []byte) error { return p.tx.Send(msg) }

// Notify publishes a zero-payload message to the peer.
func (p *QueuePair) Notify() error { return p.tx.Notify() }

// Recv waits for the peer's next message.
func (p *QueuePair) Recv(dst []byte) (int, error) { return p.rx.Recv(dst) }

// RecvNotification waits for the peer's next message and drops it.
func (p *QueuePair) RecvNotification() error { return p.rx.RecvNotification() }

// Destroy destroys both queues of the endpoint.
func (p *QueuePair) Destroy() {
	p.tx.Destroy()
	p.rx.Destroy()
}

// ringOptions returns opts plus a fresh doorbell for one ring when
// sleeping is enabled and no doorbell was given.
func ringOptions(opts []QueueOption) []QueueOption {
	var cfg queueConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.sleepAfter > 0 && cfg.bell == nil {
		return append(opts[:len(opts):len(opts)], QueueDoorbell(NewDoorbell(cfg.arch)))
	}
	return opts
}
