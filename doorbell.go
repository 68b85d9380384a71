package smelt

import (
	"sync/atomic"

	"github.com/llxisdsh/smelt/internal/opt"
)

const (
	bellAwake    int32 = 0
	bellSleeping int32 = 1
)

// Doorbell lets the reader of a ring stop spinning and sleep until the
// writer publishes. It is the only place where a participant blocks in
// the kernel or runtime instead of polling.
//
// Protocol:
//
//	Sleeper                              Ringer
//	-------                              ------
//	CAS awake->sleeping                  publish message
//	re-check condition                   load state
//	  met:  CAS sleeping->awake          sleeping? CAS sleeping->awake
//	        (lost it? consume wakeup)              release sema
//	  else: acquire sema
//
// Both sides touch the state with sequentially consistent atomics, so at
// least one of them observes the other's write and no wakeup is lost.
//
// A Doorbell supports one sleeper at a time.
type Doorbell struct {
	_     noCopy
	state int32
	sema  opt.Sema
	arch  Arch
}

// NewDoorbell returns a doorbell using the given primitives, or the host's
// when a is nil.
func NewDoorbell(a Arch) *Doorbell {
	if a == nil {
		a = DefaultArch()
	}
	return &Doorbell{arch: a}
}

// Sleep blocks until ready reports true. ready is re-evaluated after every
// state change, never trusted from before the CAS.
func (d *Doorbell) Sleep(ready func() bool) {
	for !ready() {
		if !d.arch.CAS(&d.state, bellAwake, bellSleeping) {
			continue
		}
		if ready() {
			if d.arch.CAS(&d.state, bellSleeping, bellAwake) {
				return
			}
			// A ringer already claimed the wakeup and will release.
			d.sema.Acquire()
			return
		}
		d.sema.Acquire()
	}
}

// Ring wakes the sleeper, if any.
func (d *Doorbell) Ring() {
	if atomic.LoadInt32(&d.state) == bellSleeping &&
		d.arch.CAS(&d.state, bellSleeping, bellAwake) {
		d.sema.Release()
	}
}

// Sleeping reports whether a reader is currently parked.
func (d *Doorbell) Sleeping() bool {
	return atomic.LoadInt32(&d.state) == bellSleeping
}
