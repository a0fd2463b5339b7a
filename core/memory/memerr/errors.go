package memerr

import "errors"

// --- Error Definitions ---

var (
	ErrInvalidPointer     = errors.New("invalid pointer")
	ErrInvalidSize        = errors.New("invalid allocation size")
	ErrInvalidConfig      = errors.New("invalid memory configuration")
	ErrUnknownPolicy      = errors.New("unknown eviction policy")
	ErrLookaheadRequired  = errors.New("optimal policy requires a lookahead view of the operation stream")
	ErrNoEvictablePage    = errors.New("eviction requested but no page is resident")
	ErrInvalidVictim      = errors.New("eviction policy selected a page that is not resident")
	ErrEvictionQueueEmpty = errors.New("eviction queue is empty")
)
