package smelt

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/llxisdsh/smelt/internal/opt"
)

// SlotPayloadSize is the number of payload bytes carried by one slot: the
// slot size minus the tag word.
const SlotPayloadSize = opt.SlotSize_ - 8

// MaxQueueSlots is the largest capacity a Queue accepts.
const MaxQueueSlots = 1<<16 - 1

// slotTag is the first word of a slot.
//
// Layout of an occupied tag:
//
//	bits  0-31  lap sequence (pos mod 2*capacity)
//	bits 32-39  payload length
//	bits 40-47  kind
//
// The all-ones word marks an empty slot and can never be produced by an
// occupied tag because kind is at most tagKindData.
type slotTag uint64

const (
	tagEmpty slotTag = ^slotTag(0)

	tagKindNotify = 1
	tagKindData   = 2
)

func makeTag(kind uint8, n int, seq uint64) slotTag {
	return slotTag(uint64(kind)<<40 | uint64(n)<<32 | seq&0xFFFFFFFF)
}

func (t slotTag) empty() bool { return t == tagEmpty }
func (t slotTag) kind() uint8 { return uint8(t >> 40) }
func (t slotTag) len() int    { return int(uint8(t >> 32)) }
func (t slotTag) seq() uint64 { return uint64(t) & 0xFFFFFFFF }

// valid reports whether t is a well formed occupied tag for lap seq.
func (t slotTag) valid(seq uint64) bool {
	k := t.kind()
	return (k == tagKindNotify || k == tagKindData) &&
		t.len() <= SlotPayloadSize &&
		t.seq() == seq&0xFFFFFFFF
}

// SlotState is the observable state of a slot.
type SlotState uint8

const (
	// SlotEmpty: drained, the writer may publish into it.
	SlotEmpty SlotState = iota
	// SlotNotify holds a zero-payload message.
	SlotNotify
	// SlotData holds a payload message.
	SlotData
	// SlotInvalid holds a word no writer publishes, e.g. memory that was
	// never initialized by InitTx.
	SlotInvalid
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotNotify:
		return "notify"
	case SlotData:
		return "data"
	default:
		return "invalid"
	}
}

// Slot is one cache line of a ring: the tag word followed by the payload.
// The tag is always written last by the writer and first by the reader.
type Slot struct {
	tag     atomic.Uint64
	payload [SlotPayloadSize]byte
}

// Slot must be exactly one slot line.
var _ = [1]struct{}{}[unsafe.Sizeof(Slot{})-opt.SlotSize_]

// State returns the tagged state of the slot.
func (s *Slot) State() SlotState {
	t := slotTag(s.tag.Load())
	switch {
	case t.empty():
		return SlotEmpty
	case t.kind() == tagKindNotify && t.len() == 0:
		return SlotNotify
	case t.kind() == tagKindData && t.len() <= SlotPayloadSize:
		return SlotData
	default:
		return SlotInvalid
	}
}

// Buffer is the memory backing one ring. Both peers address the same
// Buffer; neither Queue owns it.
type Buffer []Slot

// NewBuffer allocates capacity slots aligned to the slot size.
func NewBuffer(capacity int) (Buffer, error) {
	if capacity <= 0 || capacity > MaxQueueSlots {
		return nil, fmt.Errorf("%w: %d slots", ErrInvalidCapacity, capacity)
	}
	raw := make([]byte, (capacity+1)*opt.SlotSize_)
	off := (opt.SlotSize_ - int(uintptr(unsafe.Pointer(&raw[0]))%opt.SlotSize_)) % opt.SlotSize_
	return unsafe.Slice((*Slot)(unsafe.Pointer(&raw[off])), capacity), nil
}

// Direction says which side of a ring a Queue drives.
type Direction uint8

const (
	// Send is the writer side.
	Send Direction = iota + 1
	// Recv is the reader side.
	Recv
)

func (d Direction) String() string {
	switch d {
	case Send:
		return "send"
	case Recv:
		return "recv"
	default:
		return "none"
	}
}

// queueConfig collects the QueueOption values.
type queueConfig struct {
	arch       Arch
	budget     int
	sleepAfter int
	bell       *Doorbell
}

// QueueOption configures a Queue at init time.
type QueueOption func(*queueConfig)

// QueueArch overrides the architecture primitives.
func QueueArch(a Arch) QueueOption {
	return func(c *queueConfig) {
		if a != nil {
			c.arch = a
		}
	}
}

// QueueSpinBudget bounds blocking operations to n polls. Zero (default)
// spins until the peer makes progress.
func QueueSpinBudget(n int) QueueOption {
	return func(c *queueConfig) {
		c.budget = max(n, 0)
	}
}

// QueueSleepAfter lets a blocked receiver sleep on its doorbell after n
// empty polls. It has no effect without a doorbell or with a spin budget:
// a budgeted receiver only polls.
func QueueSleepAfter(n int) QueueOption {
	return func(c *queueConfig) {
		c.sleepAfter = max(n, 0)
	}
}

// QueueDoorbell attaches the doorbell shared by both peers of the ring.
func QueueDoorbell(d *Doorbell) QueueOption {
	return func(c *queueConfig) {
		c.bell = d
	}
}

// Queue is one side of a fast-forward queue: a single-writer,
// single-reader ring of slots in which the slot tag doubles as the
// full/empty flag. The writer never reads the reader's cursor and vice
// versa; the only shared state is the slots themselves.
//
// A Queue is owned by exactly one goroutine.
type Queue struct {
	_          noCopy
	slots      Buffer
	size       uint64
	pos        uint64
	dir        Direction
	destroyed  bool
	arch       Arch
	budget     int
	sleepAfter int
	bell       *Doorbell
}

func (q *Queue) init(dir Direction, buf Buffer, opts []QueueOption) error {
	if len(buf) == 0 || len(buf) > MaxQueueSlots {
		return fmt.Errorf("%w: %d slots", ErrInvalidCapacity, len(buf))
	}
	cfg := queueConfig{arch: DefaultArch()}
	for _, o := range opts {
		o(&cfg)
	}
	*q = Queue{
		slots:      buf,
		size:       uint64(len(buf)),
		dir:        dir,
		arch:       cfg.arch,
		budget:     cfg.budget,
		sleepAfter: cfg.sleepAfter,
		bell:       cfg.bell,
	}
	return nil
}

// InitTx makes q the writer of buf and marks every slot empty. It must be
// called exactly once, before the first message, and before the reader
// starts polling.
func (q *Queue) InitTx(buf Buffer, opts ...QueueOption) error {
	if err := q.init(Send, buf, opts); err != nil {
		return err
	}
	for i := range buf {
		buf[i].tag.Store(uint64(tagEmpty))
	}
	return nil
}

// InitRx makes q the reader of buf. The slots are left untouched; clearing
// them is the writer's job.
func (q *Queue) InitRx(buf Buffer, opts ...QueueOption) error {
	return q.init(Recv, buf, opts)
}

// Destroy releases the buffer reference. Later operations fail with
// ErrQueueDestroyed.
func (q *Queue) Destroy() {
	*q = Queue{destroyed: true}
}

// Cap returns the number of slots.
func (q *Queue) Cap() int { return int(q.size) }

// Direction returns the side q drives.
func (q *Queue) Direction() Direction { return q.dir }

// Pos returns the number of messages sent or received so far.
func (q *Queue) Pos() uint64 { return q.pos }

func (q *Queue) check(want Direction) error {
	if q.destroyed {
		return ErrQueueDestroyed
	}
	if q.dir != want {
		return fmt.Errorf("%w: %s on %s queue", ErrWrongDirection, want, q.dir)
	}
	return nil
}

// next returns the slot at the cursor.
func (q *Queue) next() *Slot {
	return &q.slots[q.pos%q.size]
}

// lap is the sequence tagged into the slot at the cursor.
func (q *Queue) lap() uint64 {
	return q.pos % (2 * q.size)
}

// CanSend reports whether the slot at the cursor has been drained.
func (q *Queue) CanSend() bool {
	if q.check(Send) != nil {
		return false
	}
	return slotTag(q.next().tag.Load()).empty()
}

func (q *Queue) publish(kind uint8, p []byte) error {
	s := q.next()
	if !slotTag(s.tag.Load()).empty() {
		return ErrQueueFull
	}
	copy(s.payload[:], p)
	q.arch.WriteBarrier()
	s.tag.Store(uint64(makeTag(kind, len(p), q.lap())))
	q.pos++
	if q.bell != nil {
		q.bell.Ring()
	}
	return nil
}

func (q *Queue) trySend(kind uint8, p []byte) error {
	if err := q.check(Send); err != nil {
		return err
	}
	if len(p) > SlotPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(p))
	}
	return q.publish(kind, p)
}

func (q *Queue) send(kind uint8, p []byte) error {
	if err := q.trySend(kind, p); err != ErrQueueFull {
		return err
	}
	sp := spinner{budget: q.budget}
	for sp.spin() {
		if err := q.publish(kind, p); err != ErrQueueFull {
			return err
		}
	}
	return ErrSpinBudget
}

// TrySend publishes p without waiting. It returns ErrQueueFull if the
// reader has not drained the slot at the cursor yet.
func (q *Queue) TrySend(p []byte) error {
	return q.trySend(tagKindData, p)
}

// Send publishes p, spinning until the slot at the cursor is drained.
func (q *Queue) Send(p []byte) error {
	return q.send(tagKindData, p)
}

// TryNotify publishes a zero-payload message without waiting.
func (q *Queue) TryNotify() error {
	return q.trySend(tagKindNotify, nil)
}

// Notify publishes a zero-payload message.
func (q *Queue) Notify() error {
	return q.send(tagKindNotify, nil)
}

// CanRecv reports whether the slot at the cursor holds a message.
func (q *Queue) CanRecv() bool {
	if q.check(Recv) != nil {
		return false
	}
	return !slotTag(q.next().tag.Load()).empty()
}

func (q *Queue) consume(dst []byte) (int, error) {
	s := q.next()
	t := slotTag(s.tag.Load())
	if t.empty() {
		return 0, ErrQueueEmpty
	}
	if !t.valid(q.lap()) {
		return 0, fmt.Errorf("%w: tag %#x at pos %d", ErrStaleRound, uint64(t), q.pos)
	}
	n := copy(dst, s.payload[:t.len()])
	s.tag.Store(uint64(tagEmpty))
	q.pos++
	return n, nil
}

// TryRecv copies the message at the cursor into dst and frees the slot.
// It returns ErrQueueEmpty if nothing has been published.
func (q *Queue) TryRecv(dst []byte) (int, error) {
	if err := q.check(Recv); err != nil {
		return 0, err
	}
	return q.consume(dst)
}

// Recv waits for the next message and copies it into dst. Payload bytes
// beyond len(dst) are dropped.
func (q *Queue) Recv(dst []byte) (int, error) {
	if err := q.check(Recv); err != nil {
		return 0, err
	}
	sp := spinner{budget: q.budget}
	for {
		n, err := q.consume(dst)
		if err != ErrQueueEmpty {
			return n, err
		}
		if q.bell != nil && q.budget == 0 && q.sleepAfter > 0 && sp.n >= q.sleepAfter {
			q.bell.Sleep(q.CanRecv)
			sp.n = 0
			continue
		}
		if !sp.spin() {
			return 0, ErrSpinBudget
		}
	}
}

// RecvNotification waits for the next message and discards its payload.
func (q *Queue) RecvNotification() error {
	_, err := q.Recv(nil)
	return err
}
