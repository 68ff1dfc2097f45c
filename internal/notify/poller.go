package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the poll period when none is configured.
const DefaultInterval = 30 * time.Second

var ErrAlreadyRunning = errors.New("poller already running")

// Poller refreshes the badge on a fixed interval and feeds the panel
// while it is open. Failed ticks keep the last badge and the schedule.
type Poller struct {
	fetcher  Fetcher
	seq      *Sequencer
	badge    *Badge
	panel    *Panel
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(fetcher Fetcher, seq *Sequencer, badge *Badge, panel *Panel, interval time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		fetcher:  fetcher,
		seq:      seq,
		badge:    badge,
		panel:    panel,
		interval: interval,
		log:      log.With("component", "notification_poller"),
	}
}

// Start polls once right away and then every interval until Stop or ctx
// is done.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	return nil
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	_ = p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Refresh(ctx)
		}
	}
}

// Stop disarms the poller and waits for an in-flight tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Refresh runs one tick now.
func (p *Poller) Refresh(ctx context.Context) error {
	seq := p.seq.Next()
	snap, err := p.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("notification poll failed", "error", err)
		}
		return err
	}

	p.badge.Apply(seq, snap.Count)
	if p.panel != nil && p.panel.IsOpen() {
		p.panel.ApplyList(seq, snap.Notifications)
	}
	return nil
}
