package predictloop

import (
	"sync"

	"unified-thinking/pkg/cache"
)

// seenSet is the outcome phase's own cursor into the event queue (§4.8:
// "tracked by its own cursor"). It is identity-based (by trace ID) rather
// than position-based: the queue's offsetLines parameter is relative to
// the consumption head, which the pipeline (C7) advances independently
// and unpredictably relative to this loop's cadence, so a line-offset
// cursor would skew under concurrent consumption. A bounded ring of
// recently-seen trace IDs is consumption-agnostic at the cost of a fixed
// dedup window.
type seenSet struct {
	mu   sync.Mutex
	ring *cache.Ring[string]
	set  map[string]bool
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{ring: cache.NewRing[string](capacity), set: make(map[string]bool, capacity)}
}

func (s *seenSet) seen(traceID string) bool {
	if traceID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set[traceID]
}

func (s *seenSet) mark(traceID string) {
	if traceID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set[traceID] {
		return
	}
	// Ring doesn't expose which element a push evicts, so the lookup set
	// is rebuilt from the ring's post-push contents rather than tracked
	// incrementally.
	s.ring.Push(traceID)
	s.rebuildLocked()
}

func (s *seenSet) rebuildLocked() {
	items := s.ring.Items()
	s.set = make(map[string]bool, len(items))
	for _, id := range items {
		s.set[id] = true
	}
}
