package search

import (
	"sync"
	"time"
)

// Query is an issued search, stamped so its response can be matched later.
type Query struct {
	Text     string
	IssuedAt time.Time
	seq      uint64
}

// Sequencer tracks the most recently issued query.
// Responses are applied only if their query is still the latest issued
// (last-issued-wins), regardless of arrival order.
type Sequencer struct {
	clock  Clock
	mu     sync.Mutex
	latest uint64
}

// NewSequencer creates a Sequencer. A nil clock uses the system clock.
func NewSequencer(clock Clock) *Sequencer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Sequencer{clock: clock}
}

// Issue stamps a new query and makes it the latest.
func (s *Sequencer) Issue(text string) Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return Query{Text: text, IssuedAt: s.clock.Now(), seq: s.latest}
}

// Current reports whether q is still the most recently issued query.
func (s *Sequencer) Current(q Query) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return q.seq != 0 && q.seq == s.latest
}
