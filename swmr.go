package smelt

import (
	"fmt"
	"sync/atomic"

	"github.com/llxisdsh/smelt/internal/opt"
)

// swmrTag is the first word of a fan-out slot:
//
//	bits  0-7   payload length
//	bits  8-15  kind
//	bits 16-63  sequence, pos+1
//
// Freshly allocated slots hold zero, a sequence no message carries.
type swmrTag uint64

func makeSWMRTag(kind uint8, n int, pos uint64) swmrTag {
	return swmrTag((pos+1)<<16 | uint64(kind)<<8 | uint64(n))
}

func (t swmrTag) len() int    { return int(uint8(t)) }
func (t swmrTag) seq() uint64 { return uint64(t) >> 16 }

// readerCursor is one reader's published position, alone on its line.
type readerCursor struct {
	pos atomic.Uint64
	_   [opt.CacheLineSize_ - 8]byte
}

// SWMRQueue is a single-writer, multi-reader ring: every message the
// writer publishes is read by every reader. Slots are never cleared.
// Readers publish how far they got and the writer only reuses a slot
// once the slowest reader has moved past it.
//
// Readers always poll; doorbell options are ignored.
type SWMRQueue struct {
	_         noCopy
	slots     Buffer
	size      uint64
	cursors   []readerCursor
	writer    SWMRWriter
	readers   []SWMRReader
	destroyed atomic.Bool
}

// SWMRWriter is the writing end of an SWMRQueue, owned by one goroutine.
type SWMRWriter struct {
	_      noCopy
	q      *SWMRQueue
	arch   Arch
	budget int
	pos    uint64
	limit  uint64 // pos may advance freely below limit
}

// SWMRReader is one reading end of an SWMRQueue, owned by one goroutine.
type SWMRReader struct {
	_      noCopy
	q      *SWMRQueue
	idx    int
	budget int
	pos    uint64
}

// NewSWMRQueue allocates a ring of capacity slots read by readers
// readers.
func NewSWMRQueue(capacity, readers int, opts ...QueueOption) (*SWMRQueue, error) {
	if readers <= 0 {
		return nil, fmt.Errorf("%w: %d readers", ErrInvalidConfig, readers)
	}
	buf, err := NewBuffer(capacity)
	if err != nil {
		return nil, err
	}
	cfg := queueConfig{arch: DefaultArch()}
	for _, o := range opts {
		o(&cfg)
	}
	q := &SWMRQueue{
		slots:   buf,
		size:    uint64(capacity),
		cursors: make([]readerCursor, readers),
		readers: make([]SWMRReader, readers),
	}
	for i := range buf {
		buf[i].tag.Store(0)
	}
	w := &q.writer
	w.q, w.arch, w.budget, w.limit = q, cfg.arch, cfg.budget, q.size
	for i := range q.readers {
		r := &q.readers[i]
		r.q, r.idx, r.budget = q, i, cfg.budget
	}
	return q, nil
}

// Cap returns the number of slots.
func (q *SWMRQueue) Cap() int { return int(q.size) }

// Readers returns the number of reading ends.
func (q *SWMRQueue) Readers() int { return len(q.readers) }

// Writer returns the writing end.
func (q *SWMRQueue) Writer() *SWMRWriter { return &q.writer }

// Reader returns reading end i.
func (q *SWMRQueue) Reader(i int) *SWMRReader { return &q.readers[i] }

// Destroy marks the queue unusable. Later operations on any end fail
// with ErrQueueDestroyed.
func (q *SWMRQueue) Destroy() { q.destroyed.Store(true) }

// slowest returns the position of the reader furthest behind.
func (q *SWMRQueue) slowest() uint64 {
	low := q.cursors[0].pos.Load()
	for i := 1; i < len(q.cursors); i++ {
		low = min(low, q.cursors[i].pos.Load())
	}
	return low
}

// CanSend reports whether a slot is free for the next message.
func (w *SWMRWriter) CanSend() bool {
	if w.q.destroyed.Load() {
		return false
	}
	return w.pos < w.limit || w.pos < w.q.slowest()+w.q.size
}

func (w *SWMRWriter) publish(kind uint8, p []byte) error {
	q := w.q
	if w.pos >= w.limit {
		w.limit = q.slowest() + q.size
		if w.pos >= w.limit {
			return ErrQueueFull
		}
	}
	s := &q.slots[w.pos%q.size]
	copy(s.payload[:], p)
	w.arch.WriteBarrier()
	s.tag.Store(uint64(makeSWMRTag(kind, len(p), w.pos)))
	w.pos++
	return nil
}

func (w *SWMRWriter) trySend(kind uint8, p []byte) error {
	if w.q.destroyed.Load() {
		return ErrQueueDestroyed
	}
	if len(p) > SlotPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(p))
	}
	return w.publish(kind, p)
}

func (w *SWMRWriter) send(kind uint8, p []byte) error {
	if err := w.trySend(kind, p); err != ErrQueueFull {
		return err
	}
	sp := spinner{budget: w.budget}
	for sp.spin() {
		if err := w.publish(kind, p); err != ErrQueueFull {
			return err
		}
	}
	return ErrSpinBudget
}

// TrySend publishes p to every reader without waiting. It returns
// ErrQueueFull while the slowest reader is a full ring behind.
func (w *SWMRWriter) TrySend(p []byte) error { return w.trySend(tagKindData, p) }

// Send publishes p to every reader.
func (w *SWMRWriter) Send(p []byte) error { return w.send(tagKindData, p) }

// Notify publishes a zero-payload message to every reader.
func (w *SWMRWriter) Notify() error { return w.send(tagKindNotify, nil) }

// CanRecv reports whether the next message has been published.
func (r *SWMRReader) CanRecv() bool {
	if r.q.destroyed.Load() {
		return false
	}
	t := swmrTag(r.q.slots[r.pos%r.q.size].tag.Load())
	return t.seq() == r.pos+1
}

func (r *SWMRReader) consume(dst []byte) (int, error) {
	q := r.q
	s := &q.slots[r.pos%q.size]
	t := swmrTag(s.tag.Load())
	switch seq := t.seq(); {
	case seq == r.pos+1:
	case seq <= r.pos:
		return 0, ErrQueueEmpty
	default:
		return 0, fmt.Errorf("%w: sequence %d at pos %d", ErrStaleRound, seq, r.pos)
	}
	n := copy(dst, s.payload[:min(t.len(), SlotPayloadSize)])
	r.pos++
	q.cursors[r.idx].pos.Store(r.pos)
	return n, nil
}

// TryRecv copies the next message into dst. It returns ErrQueueEmpty if
// the writer has not published it yet.
func (r *SWMRReader) TryRecv(dst []byte) (int, error) {
	if r.q.destroyed.Load() {
		return 0, ErrQueueDestroyed
	}
	return r.consume(dst)
}

// Recv waits for the next message and copies it into dst. Payload bytes
// beyond len(dst) are dropped.
func (r *SWMRReader) Recv(dst []byte) (int, error) {
	if r.q.destroyed.Load() {
		return 0, ErrQueueDestroyed
	}
	sp := spinner{budget: r.budget}
	for {
		n, err := r.consume(dst)
		if err != ErrQueueEmpty {
			return n, err
		}
		if !sp.spin() {
			return 0, ErrSpinBudget
		}
	}
}

// RecvNotification waits for the next message and discards its payload.
func (r *SWMRReader) RecvNotification() error {
	_, err := r.Recv(nil)
	return err
}
