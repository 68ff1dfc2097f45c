// Package intent decouples input handling from the controllers. Front
// ends emit intents; one Dispatcher consumes them and drives the vote,
// panel, mark-read and alert components.
package intent

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/devcove/internal/models"
	"github.com/emilythestrangee/devcove/internal/notify"
	"github.com/emilythestrangee/devcove/internal/vote"
)

type Intent interface {
	intent()
}

type VoteRequested struct {
	Target    vote.Target
	Direction models.Direction
}

type PanelToggled struct{}

type Clicked struct {
	Region notify.Region
}

type KeyPressed struct {
	Key string
}

type MarkAllReadRequested struct{}

type AlertDismissed struct{}

func (VoteRequested) intent()        {}
func (PanelToggled) intent()         {}
func (Clicked) intent()              {}
func (KeyPressed) intent()           {}
func (MarkAllReadRequested) intent() {}
func (AlertDismissed) intent()       {}

type VoteClicker interface {
	Click(ctx context.Context, target vote.Target, dir models.Direction) vote.Outcome
}

type PanelController interface {
	Toggle(ctx context.Context)
	HandleClick(ctx context.Context, region notify.Region)
	HandleKey(key string) bool
}

type MarkAllReader interface {
	MarkAllRead(ctx context.Context) error
}

type Dismisser interface {
	Dismiss() bool
}

type Deps struct {
	Votes    VoteClicker
	Panel    PanelController
	MarkRead MarkAllReader
	Alerts   Dismisser
	Logger   *slog.Logger
}

// DefaultBuffer is how many intents may queue before Emit blocks.
const DefaultBuffer = 64

type Dispatcher struct {
	deps  Deps
	log   *slog.Logger
	queue chan Intent
	done  chan struct{}
}

func NewDispatcher(deps Deps, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		deps:  deps,
		log:   log.With("component", "dispatcher"),
		queue: make(chan Intent, buffer),
		done:  make(chan struct{}),
	}
}

// Emit queues i. It returns false once the dispatcher has stopped.
func (d *Dispatcher) Emit(i Intent) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.queue <- i:
		return true
	case <-d.done:
		return false
	}
}

// Run consumes intents until ctx is done, then waits for every request
// it started.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case i := <-d.queue:
			d.handle(gctx, g, i)
		}
	}
}

// handle runs input-only work inline and network-bound work on g.
// Handlers never return errors so one failure cannot cancel the rest.
func (d *Dispatcher) handle(ctx context.Context, g *errgroup.Group, i Intent) {
	switch i := i.(type) {
	case VoteRequested:
		g.Go(func() error {
			outcome := d.deps.Votes.Click(ctx, i.Target, i.Direction)
			d.log.Debug("vote settled", "target", i.Target.String(), "outcome", outcome.String())
			return nil
		})
	case PanelToggled:
		g.Go(func() error {
			d.deps.Panel.Toggle(ctx)
			return nil
		})
	case Clicked:
		if i.Region == notify.RegionToggle {
			g.Go(func() error {
				d.deps.Panel.HandleClick(ctx, i.Region)
				return nil
			})
			return
		}
		d.deps.Panel.HandleClick(ctx, i.Region)
	case KeyPressed:
		d.deps.Panel.HandleKey(i.Key)
	case MarkAllReadRequested:
		g.Go(func() error {
			_ = d.deps.MarkRead.MarkAllRead(ctx)
			return nil
		})
	case AlertDismissed:
		d.deps.Alerts.Dismiss()
	default:
		d.log.Warn("unknown intent", "type", fmt.Sprintf("%T", i))
	}
}
