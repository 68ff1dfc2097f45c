package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emilythestrangee/devcove/internal/models"
)

// Region is where a click landed relative to the panel.
type Region int

const (
	RegionOutside Region = iota
	RegionPanel
	RegionToggle
)

// PanelView draws the dropdown. rows is nil when the panel is closed.
type PanelView interface {
	RenderPanel(open bool, rows []Row)
}

type Panel struct {
	fetcher Fetcher
	seq     *Sequencer
	badge   *Badge
	view    PanelView
	log     *slog.Logger
	now     func() time.Time
	list    slot

	mu   sync.Mutex
	open bool
	rows []Row
}

type PanelOption func(*Panel)

func WithPanelLogger(log *slog.Logger) PanelOption {
	return func(p *Panel) { p.log = log }
}

// WithClock replaces time.Now for relative timestamps.
func WithClock(now func() time.Time) PanelOption {
	return func(p *Panel) { p.now = now }
}

// NewPanel builds a closed panel. Fetches on open also update badge.
func NewPanel(fetcher Fetcher, seq *Sequencer, badge *Badge, view PanelView, opts ...PanelOption) *Panel {
	p := &Panel{
		fetcher: fetcher,
		seq:     seq,
		badge:   badge,
		view:    view,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "notification_panel")
	return p
}

func (p *Panel) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Rows returns what the panel currently shows.
func (p *Panel) Rows() []Row {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Row(nil), p.rows...)
}

// Toggle closes an open panel, or opens a closed one and loads it. The
// load blocks until the fetch settles.
func (p *Panel) Toggle(ctx context.Context) {
	p.mu.Lock()
	if p.open {
		p.closeLocked()
		p.mu.Unlock()
		return
	}
	p.open = true
	p.rows = []Row{{Kind: RowLoading}}
	rows := p.rows
	p.mu.Unlock()
	p.view.RenderPanel(true, rows)

	p.load(ctx)
}

func (p *Panel) load(ctx context.Context) {
	seq := p.seq.Next()
	snap, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.log.Error("failed to load notifications", "error", err)
		p.show(seq, []Row{{Kind: RowError}})
		return
	}
	p.badge.Apply(seq, snap.Count)
	p.ApplyList(seq, snap.Notifications)
}

// ApplyList replaces the rows with list when the panel is open and seq is
// not older than the rows already shown.
func (p *Panel) ApplyList(seq uint64, list []models.NotificationView) bool {
	return p.show(seq, Rows(list, p.now()))
}

func (p *Panel) show(seq uint64, rows []Row) bool {
	var applied bool
	p.list.apply(seq, func() {
		p.mu.Lock()
		if !p.open {
			p.mu.Unlock()
			return
		}
		p.rows = rows
		p.mu.Unlock()
		applied = true
		p.view.RenderPanel(true, rows)
	})
	return applied
}

// Close hides the panel. The badge is left alone.
func (p *Panel) Close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return false
	}
	p.closeLocked()
	return true
}

func (p *Panel) closeLocked() {
	p.open = false
	p.rows = nil
	p.view.RenderPanel(false, nil)
}

// HandleClick routes a click. Clicks inside the panel are swallowed,
// clicks on the toggle toggle, anything else closes.
func (p *Panel) HandleClick(ctx context.Context, region Region) {
	switch region {
	case RegionPanel:
	case RegionToggle:
		p.Toggle(ctx)
	default:
		p.Close()
	}
}

// HandleKey closes the panel on Escape.
func (p *Panel) HandleKey(key string) bool {
	if key != "esc" {
		return false
	}
	return p.Close()
}
