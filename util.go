package smelt

import (
	"runtime"
	_ "unsafe" // for linkname
)

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
// Note that it must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// yieldEvery is the number of PAUSE bursts between scheduler hints.
// Participants are expected to own their core; the hint only matters when
// the machine is oversubscribed, e.g. under `go test`.
const yieldEvery = 64

// spinner drives a busy-poll loop. The zero value spins forever.
type spinner struct {
	budget int // max polls, 0 = unbounded
	n      int
}

// spin burns one poll. It reports false once the budget is exhausted.
func (s *spinner) spin() bool {
	s.n++
	if s.budget > 0 && s.n > s.budget {
		return false
	}
	if s.n%yieldEvery == 0 {
		runtime.Gosched()
	} else {
		runtime_doSpin()
	}
	return true
}

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()
