package smelt

import "fmt"

// Channel connects one owner to one or more peers. With a single peer it
// is a QueuePair. With several, the owner's messages go out once through
// an SWMRQueue that every peer reads, and each peer answers on a ring of
// its own; the answer rings share one buffer the owner scans in peer
// order.
type Channel struct {
	_      noCopy
	pair   [2]*QueuePair // single peer: owner end, peer end
	fanout *SWMRQueue
	upTx   []Queue // peer i writes upTx[i]
	upRx   []Queue // the owner reads upRx[i]
	owner  ChannelOwner
	peers  []ChannelPeer
}

// ChannelOwner is the owner's end of a Channel.
type ChannelOwner struct {
	ch *Channel
}

// ChannelPeer is one peer's end of a Channel.
type ChannelPeer struct {
	ch  *Channel
	idx int
}

// NewChannel builds a channel from one owner to peers peers with
// capacity slots per ring.
func NewChannel(peers, capacity int, opts ...QueueOption) (*Channel, error) {
	if peers <= 0 {
		return nil, fmt.Errorf("%w: %d channel peers", ErrInvalidConfig, peers)
	}
	ch := &Channel{peers: make([]ChannelPeer, peers)}
	ch.owner.ch = ch
	for i := range ch.peers {
		ch.peers[i] = ChannelPeer{ch: ch, idx: i}
	}
	if peers == 1 {
		a, b, err := NewQueuePair(capacity, opts...)
		if err != nil {
			return nil, err
		}
		ch.pair = [2]*QueuePair{a, b}
		return ch, nil
	}

	fanout, err := NewSWMRQueue(capacity, peers, opts...)
	if err != nil {
		return nil, err
	}
	if capacity > MaxQueueSlots/peers {
		return nil, fmt.Errorf("%w: %d slots for %d peers", ErrInvalidCapacity, capacity, peers)
	}
	gather, err := NewBuffer(capacity * peers)
	if err != nil {
		return nil, err
	}
	ch.fanout = fanout
	ch.upTx = make([]Queue, peers)
	ch.upRx = make([]Queue, peers)
	for i := range peers {
		ring := gather[i*capacity : (i+1)*capacity : (i+1)*capacity]
		ropts := ringOptions(opts)
		if err := ch.upTx[i].InitTx(ring, ropts...); err != nil {
			return nil, err
		}
		if err := ch.upRx[i].InitRx(ring, ropts...); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

// Peers returns the number of peers.
func (ch *Channel) Peers() int { return len(ch.peers) }

// Owner returns the owner's end.
func (ch *Channel) Owner() *ChannelOwner { return &ch.owner }

// Peer returns peer i's end.
func (ch *Channel) Peer(i int) *ChannelPeer { return &ch.peers[i] }

// Destroy destroys every ring of the channel.
func (ch *Channel) Destroy() {
	if ch.fanout == nil {
		ch.pair[0].Destroy()
		ch.pair[1].Destroy()
		return
	}
	ch.fanout.Destroy()
	for i := range ch.upTx {
		ch.upTx[i].Destroy()
		ch.upRx[i].Destroy()
	}
}

// Send delivers p to every peer.
func (o *ChannelOwner) Send(p []byte) error {
	if ch := o.ch; ch.fanout != nil {
		return ch.fanout.Writer().Send(p)
	}
	return o.ch.pair[0].Send(p)
}

// Notify delivers a zero-payload message to every peer.
func (o *ChannelOwner) Notify() error {
	if ch := o.ch; ch.fanout != nil {
		return ch.fanout.Writer().Notify()
	}
	return o.ch.pair[0].Notify()
}

// CanSend reports whether Send would not wait.
func (o *ChannelOwner) CanSend() bool {
	if ch := o.ch; ch.fanout != nil {
		return ch.fanout.Writer().CanSend()
	}
	return o.ch.pair[0].tx.CanSend()
}

func (o *ChannelOwner) from(i int) (*Queue, error) {
	ch := o.ch
	if i < 0 || i >= len(ch.peers) {
		return nil, fmt.Errorf("%w: channel peer %d", ErrNoSuchNode, i)
	}
	if ch.fanout == nil {
		return &ch.pair[0].rx, nil
	}
	return &ch.upRx[i], nil
}

// RecvFrom waits for peer i's next message and copies it into dst.
func (o *ChannelOwner) RecvFrom(i int, dst []byte) (int, error) {
	q, err := o.from(i)
	if err != nil {
		return 0, err
	}
	return q.Recv(dst)
}

// RecvNotificationFrom waits for peer i's next message and drops it.
func (o *ChannelOwner) RecvNotificationFrom(i int) error {
	_, err := o.RecvFrom(i, nil)
	return err
}

// CanRecvFrom reports whether peer i has a message waiting.
func (o *ChannelOwner) CanRecvFrom(i int) bool {
	q, err := o.from(i)
	return err == nil && q.CanRecv()
}

// Send delivers p to the owner.
func (p *ChannelPeer) Send(msg []byte) error {
	if ch := p.ch; ch.fanout != nil {
		return ch.upTx[p.idx].Send(msg)
	}
	return p.ch.pair[1].Send(msg)
}

// Notify delivers a zero-payload message to the owner.
func (p *ChannelPeer) Notify() error {
	if ch := p.ch; ch.fanout != nil {
		return ch.upTx[p.idx].Notify()
	}
	return p.ch.pair[1].Notify()
}

// CanSend reports whether Send would not wait.
func (p *ChannelPeer) CanSend() bool {
	if ch := p.ch; ch.fanout != nil {
		return ch.upTx[p.idx].CanSend()
	}
	return p.ch.pair[1].tx.CanSend()
}

// Recv waits for the owner's next message and copies it into dst.
func (p *ChannelPeer) Recv(dst []byte) (int, error) {
	if ch := p.ch; ch.fanout != nil {
		return ch.fanout.Reader(p.idx).Recv(dst)
	}
	return p.ch.pair[1].Recv(dst)
}

// RecvNotification waits for the owner's next message and drops it.
func (p *ChannelPeer) RecvNotification() error {
	_, err := p.Recv(nil)
	return err
}

// CanRecv reports whether the owner has a message waiting.
func (p *ChannelPeer) CanRecv() bool {
	if ch := p.ch; ch.fanout != nil {
		return ch.fanout.Reader(p.idx).CanRecv()
	}
	return p.ch.pair[1].rx.CanRecv()
}
