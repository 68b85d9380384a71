package smelt

import "fmt"

// MaxMessageSize is the largest payload a collective operation carries.
const MaxMessageSize = SlotPayloadSize

// Message is a caller-owned payload buffer. The collectives copy it in
// and out of the rings; its contents are never interpreted.
type Message struct {
	data []byte
	n    int
}

// NewMessage returns an empty message able to hold size bytes.
func NewMessage(size int) (*Message, error) {
	if size < 0 || size > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}
	return &Message{data: make([]byte, size)}, nil
}

// MessageOf returns a message holding a copy of p.
func MessageOf(p []byte) (*Message, error) {
	m, err := NewMessage(len(p))
	if err != nil {
		return nil, err
	}
	m.n = copy(m.data, p)
	return m, nil
}

// Write replaces the contents with p, truncated to the capacity.
// It returns the number of bytes stored.
func (m *Message) Write(p []byte) int {
	m.n = copy(m.data, p)
	return m.n
}

// Read copies the contents into p and returns the number of bytes copied.
func (m *Message) Read(p []byte) int {
	return copy(p, m.data[:m.n])
}

// Bytes returns the contents. The slice aliases the message.
func (m *Message) Bytes() []byte { return m.data[:m.n] }

// Len returns the number of bytes held.
func (m *Message) Len() int { return m.n }

// Cap returns the maximum number of bytes the message can hold.
func (m *Message) Cap() int { return len(m.data) }

// Reset empties the message.
func (m *Message) Reset() { m.n = 0 }

// buf returns the full backing store for receiving into.
func (m *Message) buf() []byte { return m.data }

// setLen records the length after a receive.
func (m *Message) setLen(n int) { m.n = n }
