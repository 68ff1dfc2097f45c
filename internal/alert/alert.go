// Package alert shows one transient message at a time. An alert goes away
// on explicit dismissal or when its duration runs out, whichever comes
// first, and its callback runs exactly once.
package alert

import (
	"sync"
	"time"
)

// DefaultDuration applies when an alert does not set its own.
const DefaultDuration = 2 * time.Second

type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Link is an inline call to action rendered after the message.
type Link struct {
	Text string
	URL  string
}

type Alert struct {
	Message  string
	Link     *Link
	Severity Severity
	Duration time.Duration
	// OnDismiss runs once when the alert leaves the screen, including
	// when a newer alert replaces it.
	OnDismiss func()
}

// Surface draws and removes alerts.
type Surface interface {
	Display(a Alert)
	Hide()
}

type Presenter struct {
	surface Surface

	mu      sync.Mutex
	current *shown
}

// shown tracks one displayed alert. done guards the callback.
type shown struct {
	alert Alert
	timer *time.Timer
	done  bool
}

func NewPresenter(surface Surface) *Presenter {
	return &Presenter{surface: surface}
}

// Show displays a, replacing whatever is currently shown.
func (p *Presenter) Show(a Alert) {
	if a.Duration <= 0 {
		a.Duration = DefaultDuration
	}
	if a.Severity == "" {
		a.Severity = Info
	}

	p.mu.Lock()
	replaced := p.current
	if replaced != nil {
		replaced.timer.Stop()
		replaced.done = true
	}
	s := &shown{alert: a}
	s.timer = time.AfterFunc(a.Duration, func() { p.expire(s) })
	p.current = s
	p.surface.Display(a)
	p.mu.Unlock()

	if replaced != nil && replaced.alert.OnDismiss != nil {
		replaced.alert.OnDismiss()
	}
}

// Dismiss removes the current alert. It reports false when nothing was shown.
func (p *Presenter) Dismiss() bool {
	p.mu.Lock()
	s := p.current
	p.mu.Unlock()
	if s == nil {
		return false
	}
	return p.expire(s)
}

// Current returns the alert on screen, if any.
func (p *Presenter) Current() (Alert, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Alert{}, false
	}
	return p.current.alert, true
}

// expire closes s unless it was already closed or replaced.
func (p *Presenter) expire(s *shown) bool {
	p.mu.Lock()
	if s.done {
		p.mu.Unlock()
		return false
	}
	s.done = true
	s.timer.Stop()
	if p.current == s {
		p.current = nil
		p.surface.Hide()
	}
	p.mu.Unlock()

	if s.alert.OnDismiss != nil {
		s.alert.OnDismiss()
	}
	return true
}
