package alert

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSurface struct {
	mu        sync.Mutex
	displayed []Alert
	hides     int
}

func (s *recordingSurface) Display(a Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayed = append(s.displayed, a)
}

func (s *recordingSurface) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hides++
}

func (s *recordingSurface) hideCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hides
}

func TestShow_Defaults(t *testing.T) {
	surface := &recordingSurface{}
	p := NewPresenter(surface)

	p.Show(Alert{Message: "saved"})
	defer p.Dismiss()

	got, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, DefaultDuration, got.Duration)
	assert.Equal(t, Info, got.Severity)
	require.Len(t, surface.displayed, 1)
	assert.Equal(t, "saved", surface.displayed[0].Message)
}

func TestDismiss_RunsCallbackOnce(t *testing.T) {
	surface := &recordingSurface{}
	p := NewPresenter(surface)
	var calls int32

	p.Show(Alert{Message: "hi", Duration: 50 * time.Millisecond, OnDismiss: func() {
		atomic.AddInt32(&calls, 1)
	}})

	assert.True(t, p.Dismiss())
	assert.False(t, p.Dismiss())

	// the timer must not fire the callback a second time
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, surface.hideCount())
	_, ok := p.Current()
	assert.False(t, ok)
}

func TestTimeout_Dismisses(t *testing.T) {
	surface := &recordingSurface{}
	p := NewPresenter(surface)
	var calls int32

	p.Show(Alert{Message: "bye", Duration: 20 * time.Millisecond, OnDismiss: func() {
		atomic.AddInt32(&calls, 1)
	}})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, p.Dismiss())
	assert.Equal(t, 1, surface.hideCount())
}

func TestShow_ReplacesInsteadOfStacking(t *testing.T) {
	surface := &recordingSurface{}
	p := NewPresenter(surface)
	var first, second int32

	p.Show(Alert{Message: "one", Severity: Warning, Duration: time.Hour, OnDismiss: func() {
		atomic.AddInt32(&first, 1)
	}})
	p.Show(Alert{Message: "two", Severity: Error, Duration: time.Hour, OnDismiss: func() {
		atomic.AddInt32(&second, 1)
	}})

	got, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "two", got.Message)
	assert.Equal(t, Error, got.Severity)
	assert.Equal(t, int32(1), atomic.LoadInt32(&first), "replaced alert counts as dismissed")
	assert.Zero(t, atomic.LoadInt32(&second))
	assert.Zero(t, surface.hideCount(), "replacement redraws without hiding")

	require.True(t, p.Dismiss())
	assert.Equal(t, int32(1), atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestShow_ReplacedTimerDoesNotHideNewAlert(t *testing.T) {
	surface := &recordingSurface{}
	p := NewPresenter(surface)

	p.Show(Alert{Message: "short", Duration: 10 * time.Millisecond})
	p.Show(Alert{Message: "long", Duration: time.Hour})
	defer p.Dismiss()

	time.Sleep(50 * time.Millisecond)
	got, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "long", got.Message)
	assert.Zero(t, surface.hideCount())
}

func TestShow_CallbackMayShowAgain(t *testing.T) {
	surface := &recordingSurface{}
	p := NewPresenter(surface)

	p.Show(Alert{Message: "first", Duration: time.Hour, OnDismiss: func() {
		p.Show(Alert{Message: "follow-up", Duration: time.Hour})
	}})
	require.True(t, p.Dismiss())

	got, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "follow-up", got.Message)
	p.Dismiss()
}
