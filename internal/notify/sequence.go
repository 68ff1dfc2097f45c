package notify

import (
	"sync"
	"sync/atomic"
)

// Sequencer hands out increasing request numbers. One instance is shared
// by every request stream that writes the same state.
type Sequencer struct {
	n atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.n.Add(1)
}

// slot remembers the newest sequence applied to one piece of state.
type slot struct {
	mu   sync.Mutex
	last uint64
}

// apply runs fn if seq is not older than the last applied sequence.
func (s *slot) apply(seq uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.last {
		return false
	}
	s.last = seq
	fn()
	return true
}
