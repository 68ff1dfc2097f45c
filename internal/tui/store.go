package tui

import (
	"sync"

	"github.com/emilythestrangee/devcove/internal/alert"
	"github.com/emilythestrangee/devcove/internal/notify"
	"github.com/emilythestrangee/devcove/internal/vote"
)

// snapshot is what one frame draws.
type snapshot struct {
	votes        map[vote.Target]vote.ButtonState
	badge        int
	badgeVisible bool
	panelOpen    bool
	rows         []notify.Row
	alert        *alert.Alert
}

// Store receives every component's render calls from any goroutine and
// wakes the program with a coalesced redraw signal. It never blocks the
// caller, so components can render while the program is busy.
type Store struct {
	mu    sync.Mutex
	state snapshot

	changed chan struct{}
	closed  chan struct{}
	once    sync.Once
}

func NewStore() *Store {
	return &Store{
		state:   snapshot{votes: make(map[vote.Target]vote.ButtonState)},
		changed: make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
}

func (s *Store) RenderVote(target vote.Target, state vote.ButtonState) {
	s.update(func(st *snapshot) { st.votes[target] = state })
}

func (s *Store) SetBadge(count int, visible bool) {
	s.update(func(st *snapshot) {
		st.badge = count
		st.badgeVisible = visible
	})
}

func (s *Store) RenderPanel(open bool, rows []notify.Row) {
	s.update(func(st *snapshot) {
		st.panelOpen = open
		st.rows = append([]notify.Row(nil), rows...)
	})
}

func (s *Store) Display(a alert.Alert) {
	s.update(func(st *snapshot) { st.alert = &a })
}

func (s *Store) Hide() {
	s.update(func(st *snapshot) { st.alert = nil })
}

// Close releases anything waiting for a redraw.
func (s *Store) Close() {
	s.once.Do(func() { close(s.closed) })
}

func (s *Store) update(fn func(*snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	out.votes = make(map[vote.Target]vote.ButtonState, len(s.state.votes))
	for k, v := range s.state.votes {
		out.votes[k] = v
	}
	out.rows = append([]notify.Row(nil), s.state.rows...)
	if s.state.alert != nil {
		a := *s.state.alert
		out.alert = &a
	}
	return out
}

// wait blocks until the next change. It returns false once closed.
func (s *Store) wait() bool {
	select {
	case <-s.changed:
		return true
	case <-s.closed:
		return false
	}
}
