package smelt

import (
	"bytes"
	"errors"
	"testing"
)

func TestMessage_Bounds(t *testing.T) {
	if _, err := NewMessage(MaxMessageSize + 1); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewMessage(-1); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("err = %v", err)
	}
	if _, err := MessageOf(make([]byte, MaxMessageSize+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("err = %v", err)
	}
	m, err := NewMessage(MaxMessageSize)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 || m.Cap() != MaxMessageSize {
		t.Fatalf("len=%d cap=%d", m.Len(), m.Cap())
	}
}

func TestMessage_WriteRead(t *testing.T) {
	m, err := NewMessage(4)
	if err != nil {
		t.Fatal(err)
	}
	if n := m.Write([]byte("abcdef")); n != 4 {
		t.Fatalf("Write stored %d", n)
	}
	if !bytes.Equal(m.Bytes(), []byte("abcd")) {
		t.Fatalf("Bytes = %q", m.Bytes())
	}
	out := make([]byte, 8)
	if n := m.Read(out); n != 4 || string(out[:n]) != "abcd" {
		t.Fatalf("Read = %d %q", n, out[:n])
	}
	m.Reset()
	if m.Len() != 0 {
		t.Fatal("Reset kept contents")
	}

	c, err := MessageOf([]byte("xyz"))
	if err != nil {
		t.Fatal(err)
	}
	if string(c.Bytes()) != "xyz" || c.Cap() != 3 {
		t.Fatalf("MessageOf = %q cap %d", c.Bytes(), c.Cap())
	}
}
