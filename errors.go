package smelt

import "errors"

// Configuration errors are returned at construction time and make the
// affected context unusable.
var (
	ErrInvalidCapacity = errors.New("smelt: invalid queue capacity")
	ErrInvalidTopology = errors.New("smelt: inconsistent topology")
	ErrTooManyNodes    = errors.New("smelt: participant count exceeds maximum")
	ErrInvalidConfig   = errors.New("smelt: invalid configuration")
)

// Usage errors are detected before any shared memory is touched.
var (
	ErrNotRoot              = errors.New("smelt: broadcast from non-root participant")
	ErrRootReceive          = errors.New("smelt: root cannot receive a broadcast")
	ErrWrongDirection       = errors.New("smelt: operation does not match queue direction")
	ErrMessageTooLarge      = errors.New("smelt: message exceeds slot payload")
	ErrCollectiveInProgress = errors.New("smelt: collective already in progress on this participant")
	ErrNoSuchNode           = errors.New("smelt: no such participant")
	ErrDuplicateName        = errors.New("smelt: context name already registered")
	ErrContextDestroyed     = errors.New("smelt: context destroyed")
	ErrQueueDestroyed       = errors.New("smelt: queue destroyed")
)

// Transport state.
var (
	// ErrQueueFull is returned by non-blocking sends when the next slot
	// has not been drained by the reader yet.
	ErrQueueFull = errors.New("smelt: queue full")
	// ErrQueueEmpty is returned by non-blocking receives.
	ErrQueueEmpty = errors.New("smelt: queue empty")
	// ErrStaleRound means the reader found a message from another lap of
	// the ring: the peers disagree on buffer identity or capacity.
	ErrStaleRound = errors.New("smelt: stale round in queue slot")
	// ErrSpinBudget is returned only when a spin budget was configured and
	// the peer did not make progress within it.
	ErrSpinBudget = errors.New("smelt: spin budget exhausted")
)
