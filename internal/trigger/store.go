package trigger

import (
	"sync"

	"niftyflow/internal/metrics"
)

// runStore retains the most recent run events. It is safe for concurrent use.
type runStore struct {
	mu    sync.RWMutex
	items []metrics.RunEvent
	limit int
}

func newRunStore(limit int) *runStore {
	if limit <= 0 {
		limit = 50
	}
	return &runStore{limit: limit}
}

func (s *runStore) handle(event metrics.RunEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, event)
	if len(s.items) > s.limit {
		s.items = append([]metrics.RunEvent(nil), s.items[len(s.items)-s.limit:]...)
	}
}

// snapshot returns the retained events, newest last.
func (s *runStore) snapshot() []metrics.RunEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]metrics.RunEvent, len(s.items))
	copy(out, s.items)
	return out
}
