package queue

import "errors"

// Error kinds for the event queue (§4.1, §7). Hot-path failures in
// Capture always fail-silent with a diagnostic rather than propagate —
// these sentinels exist for callers that want to distinguish a degraded
// write (still durable, via overflow) from a truly dropped event.
var (
	// ErrQueueLocked means the primary file was locked by another writer;
	// the event was still written, via the overflow sidecar.
	ErrQueueLocked = errors.New("queue: primary locked, wrote to overflow")

	// ErrQueueCorrupt means a single line failed to decode; it is skipped,
	// never fatal to the read/consume operation it was encountered in.
	ErrQueueCorrupt = errors.New("queue: corrupt line skipped")

	// ErrQueueUnavailable means neither the primary nor overflow lock could
	// be acquired within the combined ~550ms budget; the event was dropped.
	ErrQueueUnavailable = errors.New("queue: unavailable, event dropped")
)
