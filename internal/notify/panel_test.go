package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newPanel(fetcher Fetcher) (*Panel, *fakePanelView, *fakeBadgeView, *Sequencer) {
	seq := &Sequencer{}
	bv := &fakeBadgeView{}
	pv := &fakePanelView{}
	p := NewPanel(fetcher, seq, NewBadge(bv), pv, WithClock(func() time.Time { return fixedNow }))
	return p, pv, bv, seq
}

func TestPanel_OpenShowsLoadingThenList(t *testing.T) {
	fetcher := &fakeFetcher{replies: []reply{{snap: Snapshot{Count: 2, Notifications: views(2, fixedNow.Add(-5*time.Minute))}}}}
	p, pv, bv, _ := newPanel(fetcher)

	p.Toggle(context.Background())

	require.True(t, p.IsOpen())
	require.Len(t, pv.renders, 2)
	assert.Equal(t, []Row{{Kind: RowLoading}}, pv.renders[0].rows)
	rows := pv.last().rows
	require.Len(t, rows, 2)
	assert.Equal(t, "5m ago", rows[0].When)
	assert.True(t, rows[0].Unread)

	badge, _ := bv.last()
	assert.Equal(t, badgeState{count: 2, visible: true}, badge)
}

func TestPanel_OpenWithNoNotifications(t *testing.T) {
	fetcher := &fakeFetcher{replies: []reply{{snap: Snapshot{Count: 0}}}}
	p, _, _, _ := newPanel(fetcher)

	p.Toggle(context.Background())

	rows := p.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, RowPlaceholder, rows[0].Kind)
}

func TestPanel_OpenFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{replies: []reply{{err: errBoom}}}
	p, _, bv, _ := newPanel(fetcher)

	p.Toggle(context.Background())

	assert.True(t, p.IsOpen())
	assert.Equal(t, []Row{{Kind: RowError}}, p.Rows())
	assert.Equal(t, "Could not load notifications", p.Rows()[0].Label())
	assert.Zero(t, bv.renders(), "badge untouched by a failed fetch")
}

func TestPanel_ToggleTwiceCloses(t *testing.T) {
	fetcher := &fakeFetcher{fallback: reply{snap: Snapshot{Count: 1, Notifications: views(1, fixedNow)}}}
	p, pv, bv, _ := newPanel(fetcher)

	p.Toggle(context.Background())
	p.Toggle(context.Background())

	assert.False(t, p.IsOpen())
	assert.Nil(t, p.Rows())
	assert.False(t, pv.last().open)
	assert.Equal(t, 1, fetcher.callCount(), "closing does not fetch")
	badge, _ := bv.last()
	assert.Equal(t, 1, badge.count, "closing keeps the badge")
}

func TestPanel_Clicks(t *testing.T) {
	fetcher := &fakeFetcher{fallback: reply{snap: Snapshot{}}}
	p, _, _, _ := newPanel(fetcher)
	ctx := context.Background()

	p.HandleClick(ctx, RegionToggle)
	require.True(t, p.IsOpen())

	p.HandleClick(ctx, RegionPanel)
	assert.True(t, p.IsOpen(), "clicks inside the panel keep it open")

	p.HandleClick(ctx, RegionOutside)
	assert.False(t, p.IsOpen())

	p.HandleClick(ctx, RegionOutside)
	assert.False(t, p.IsOpen())
}

func TestPanel_Escape(t *testing.T) {
	fetcher := &fakeFetcher{fallback: reply{snap: Snapshot{}}}
	p, _, _, _ := newPanel(fetcher)

	assert.False(t, p.HandleKey("esc"), "nothing to close")
	p.Toggle(context.Background())
	assert.False(t, p.HandleKey("enter"))
	assert.True(t, p.IsOpen())
	assert.True(t, p.HandleKey("esc"))
	assert.False(t, p.IsOpen())
}

func TestPanel_ApplyListWhileClosedIsDropped(t *testing.T) {
	p, pv, _, seq := newPanel(&fakeFetcher{})

	assert.False(t, p.ApplyList(seq.Next(), views(3, fixedNow)))
	assert.Empty(t, pv.renders)
}

func TestPanel_StaleResponseDiscarded(t *testing.T) {
	slow := make(chan struct{})
	fetcher := &fakeFetcher{
		replies: []reply{{snap: Snapshot{Count: 9, Notifications: views(9, fixedNow)}, gate: slow}},
		entered: make(chan int, 1),
	}
	p, _, bv, seq := newPanel(fetcher)

	done := make(chan struct{})
	go func() {
		p.Toggle(context.Background())
		close(done)
	}()
	<-fetcher.entered

	// a poll issued after the open fetch lands first
	newer := seq.Next()
	p.badge.Apply(newer, 1)
	require.True(t, p.ApplyList(newer, views(1, fixedNow)))

	close(slow)
	<-done

	assert.Len(t, p.Rows(), 1)
	badge, _ := bv.last()
	assert.Equal(t, 1, badge.count)
}
