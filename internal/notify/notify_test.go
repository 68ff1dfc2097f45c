package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/emilythestrangee/devcove/internal/models"
)

// journal records view and client activity in the order it happened.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type badgeState struct {
	count   int
	visible bool
}

type fakeBadgeView struct {
	j      *journal
	mu     sync.Mutex
	states []badgeState
}

func (v *fakeBadgeView) SetBadge(count int, visible bool) {
	v.mu.Lock()
	v.states = append(v.states, badgeState{count, visible})
	v.mu.Unlock()
	if v.j != nil {
		v.j.add("badge")
	}
}

func (v *fakeBadgeView) last() (badgeState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.states) == 0 {
		return badgeState{}, false
	}
	return v.states[len(v.states)-1], true
}

func (v *fakeBadgeView) renders() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.states)
}

type panelRender struct {
	open bool
	rows []Row
}

type fakePanelView struct {
	j       *journal
	mu      sync.Mutex
	renders []panelRender
}

func (v *fakePanelView) RenderPanel(open bool, rows []Row) {
	v.mu.Lock()
	v.renders = append(v.renders, panelRender{open, rows})
	v.mu.Unlock()
	if v.j != nil {
		if open {
			v.j.add("panel:open")
		} else {
			v.j.add("panel:closed")
		}
	}
}

func (v *fakePanelView) last() panelRender {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renders[len(v.renders)-1]
}

// reply is one scripted fetch result. gate, when set, holds the reply back.
type reply struct {
	snap Snapshot
	err  error
	gate chan struct{}
}

type fakeFetcher struct {
	j       *journal
	mu      sync.Mutex
	replies []reply
	calls   int
	// fallback answers once the script runs out.
	fallback reply
	entered  chan int
}

func (f *fakeFetcher) Fetch(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	r := f.fallback
	if i < len(f.replies) {
		r = f.replies[i]
	}
	f.mu.Unlock()

	if f.j != nil {
		f.j.add("fetch")
	}
	if f.entered != nil {
		f.entered <- i
	}
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
	return r.snap, r.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errBoom = errors.New("boom")

func views(n int, base time.Time) []models.NotificationView {
	out := make([]models.NotificationView, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.NotificationView{
			ID:        i + 1,
			Sender:    "bob",
			Type:      models.NotificationVote,
			CreatedAt: base,
			ActionURL: "/posts/1",
		})
	}
	return out
}
