package graph

import (
	"errors"
	"time"
)

// Server-side traversal limits. Caller-supplied depths are clamped, never
// trusted; exceeding the row cap or the query timeout surfaces as
// ErrQueryLimitExceeded, which callers treat as "degrade to vector-only".
const (
	MaxHops         = 3
	MaxPathDepth    = 6
	DefaultRowCap   = 2000
	DefaultTimeout  = 5 * time.Second
	DefaultPageSize = 20
)

// ErrQueryLimitExceeded indicates a traversal hit the row cap or timed out.
// Recoverable: callers fall back to non-graph retrieval.
var ErrQueryLimitExceeded = errors.New("graph query limit exceeded")

// ErrMissingKB indicates a graph operation was attempted without a knowledge
// base ID. This is a programming-contract violation, not a data error.
var ErrMissingKB = errors.New("kb_id is required")

// ClampHops bounds a caller-requested hop count to [1, MaxHops].
func ClampHops(requested int) int {
	if requested < 1 {
		return 1
	}
	if requested > MaxHops {
		return MaxHops
	}
	return requested
}

// ClampDepth bounds a caller-requested path depth to [1, MaxPathDepth].
func ClampDepth(requested int) int {
	if requested < 1 {
		return 1
	}
	if requested > MaxPathDepth {
		return MaxPathDepth
	}
	return requested
}
