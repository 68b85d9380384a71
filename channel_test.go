package smelt

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
)

func TestChannel_OneToOne(t *testing.T) {
	ch, err := NewChannel(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Destroy()
	if ch.fanout != nil {
		t.Fatal("single peer uses the fan-out queue")
	}
	o, p := ch.Owner(), ch.Peer(0)
	if !o.CanSend() || p.CanRecv() {
		t.Fatal("fresh channel state")
	}
	if err := o.Send([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	var buf [8]byte
	n, err := p.Recv(buf[:])
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("peer got %q, %v", buf[:n], err)
	}
	if err := p.Send([]byte("pong")); err != nil {
		t.Fatal(err)
	}
	if !o.CanRecvFrom(0) {
		t.Fatal("owner does not see the reply")
	}
	n, err = o.RecvFrom(0, buf[:])
	if err != nil || string(buf[:n]) != "pong" {
		t.Fatalf("owner got %q, %v", buf[:n], err)
	}
}

func TestChannel_OneToMany(t *testing.T) {
	const peers = 3
	ch, err := NewChannel(peers, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Destroy()
	if ch.Peers() != peers {
		t.Fatalf("Peers = %d", ch.Peers())
	}
	o := ch.Owner()
	if err := o.Send([]byte{42}); err != nil {
		t.Fatal(err)
	}
	for i := range peers {
		p := ch.Peer(i)
		var b [1]byte
		if _, err := p.Recv(b[:]); err != nil || b[0] != 42 {
			t.Fatalf("peer %d got %d, %v", i, b[0], err)
		}
		if err := p.Send([]byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	// replies come back on separate rings, read in any order
	for i := peers - 1; i >= 0; i-- {
		var b [1]byte
		if _, err := o.RecvFrom(i, b[:]); err != nil || b[0] != byte(i) {
			t.Fatalf("from %d got %d, %v", i, b[0], err)
		}
	}
	if _, err := o.RecvFrom(peers, nil); !errors.Is(err, ErrNoSuchNode) {
		t.Fatalf("RecvFrom(%d) = %v", peers, err)
	}
	if o.CanRecvFrom(-1) {
		t.Fatal("CanRecvFrom(-1)")
	}
}

func TestChannel_Errors(t *testing.T) {
	if _, err := NewChannel(0, 4); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("no peers: %v", err)
	}
	if _, err := NewChannel(2, 0); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("no slots: %v", err)
	}
	ch, err := NewChannel(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	ch.Destroy()
	if err := ch.Owner().Notify(); !errors.Is(err, ErrQueueDestroyed) {
		t.Fatalf("Notify after Destroy = %v", err)
	}
	if err := ch.Peer(1).Notify(); !errors.Is(err, ErrQueueDestroyed) {
		t.Fatalf("peer Notify after Destroy = %v", err)
	}
}

func TestChannel_RequestReply(t *testing.T) {
	const peers = 4
	rounds := barrierRounds()
	ch, err := NewChannel(peers, DefaultQueueSlots)
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Destroy()
	var wg sync.WaitGroup
	wg.Add(peers)
	for i := range peers {
		go func() {
			defer wg.Done()
			p := ch.Peer(i)
			var buf [8]byte
			for range rounds {
				if _, err := p.Recv(buf[:]); err != nil {
					t.Errorf("peer %d: %v", i, err)
					return
				}
				v := binary.LittleEndian.Uint64(buf[:])
				binary.LittleEndian.PutUint64(buf[:], v+uint64(i))
				if err := p.Send(buf[:]); err != nil {
					t.Errorf("peer %d: %v", i, err)
					return
				}
			}
		}()
	}
	o := ch.Owner()
	var buf [8]byte
	for r := range rounds {
		binary.LittleEndian.PutUint64(buf[:], uint64(r*10))
		if err := o.Send(buf[:]); err != nil {
			t.Fatal(err)
		}
		for i := range peers {
			if _, err := o.RecvFrom(i, buf[:]); err != nil {
				t.Fatal(err)
			}
			if got := binary.LittleEndian.Uint64(buf[:]); got != uint64(r*10+i) {
				t.Fatalf("round %d peer %d replied %d", r, i, got)
			}
		}
	}
	wg.Wait()
}
