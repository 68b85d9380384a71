package smelt

import (
	"errors"
	"testing"
)

func TestQueuePair_BothDirections(t *testing.T) {
	a, b, err := NewQueuePair(3)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Send([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	if err := b.Send([]byte("pong")); err != nil {
		t.Fatal(err)
	}
	var buf [8]byte
	n, err := b.Recv(buf[:])
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("b got %q, %v", buf[:n], err)
	}
	n, err = a.Recv(buf[:])
	if err != nil || string(buf[:n]) != "pong" {
		t.Fatalf("a got %q, %v", buf[:n], err)
	}
	if err := a.Notify(); err != nil {
		t.Fatal(err)
	}
	if err := b.RecvNotification(); err != nil {
		t.Fatal(err)
	}
	if a.Tx().Direction() != Send || a.Rx().Direction() != Recv {
		t.Fatal("endpoint directions")
	}
}

func TestQueuePair_InvalidCapacity(t *testing.T) {
	if _, _, err := NewQueuePair(0); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("err = %v", err)
	}
}

func TestQueuePair_Destroy(t *testing.T) {
	a, b, err := NewQueuePair(3)
	if err != nil {
		t.Fatal(err)
	}
	a.Destroy()
	if err := a.Notify(); !errors.Is(err, ErrQueueDestroyed) {
		t.Fatalf("Notify = %v", err)
	}
	// the peer keeps its own cursors
	if err := b.Notify(); err != nil {
		t.Fatalf("peer Notify = %v", err)
	}
}
