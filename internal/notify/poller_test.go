package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoller(fetcher Fetcher, interval time.Duration) (*Poller, *Panel, *fakeBadgeView, *fakePanelView) {
	seq := &Sequencer{}
	bv := &fakeBadgeView{}
	pv := &fakePanelView{}
	badge := NewBadge(bv)
	panel := NewPanel(fetcher, seq, badge, pv, WithClock(func() time.Time { return fixedNow }))
	return NewPoller(fetcher, seq, badge, panel, interval, nil), panel, bv, pv
}

func TestRefresh_UpdatesBadgeOnlyWhenClosed(t *testing.T) {
	fetcher := &fakeFetcher{fallback: reply{snap: Snapshot{Count: 3, Notifications: views(3, fixedNow)}}}
	p, panel, bv, pv := newPoller(fetcher, time.Hour)

	require.NoError(t, p.Refresh(context.Background()))

	badge, _ := bv.last()
	assert.Equal(t, badgeState{count: 3, visible: true}, badge)
	assert.Empty(t, pv.renders)
	assert.False(t, panel.IsOpen())
}

func TestRefresh_FeedsOpenPanel(t *testing.T) {
	fetcher := &fakeFetcher{replies: []reply{
		{snap: Snapshot{Count: 0}},
		{snap: Snapshot{Count: 2, Notifications: views(2, fixedNow)}},
	}}
	p, panel, _, _ := newPoller(fetcher, time.Hour)

	panel.Toggle(context.Background())
	require.Equal(t, RowPlaceholder, panel.Rows()[0].Kind)

	require.NoError(t, p.Refresh(context.Background()))
	assert.Len(t, panel.Rows(), 2)
}

func TestRefresh_FailureKeepsBadge(t *testing.T) {
	fetcher := &fakeFetcher{replies: []reply{
		{snap: Snapshot{Count: 4}},
		{err: errBoom},
	}}
	p, _, bv, _ := newPoller(fetcher, time.Hour)

	require.NoError(t, p.Refresh(context.Background()))
	assert.ErrorIs(t, p.Refresh(context.Background()), errBoom)

	badge, _ := bv.last()
	assert.Equal(t, badgeState{count: 4, visible: true}, badge)
	assert.Equal(t, 1, bv.renders())
}

func TestStart_TicksSurviveFailures(t *testing.T) {
	fetcher := &fakeFetcher{
		replies: []reply{
			{snap: Snapshot{Count: 2}},
			{err: errBoom},
			{err: errBoom},
		},
		fallback: reply{snap: Snapshot{Count: 5}},
	}
	p, _, bv, _ := newPoller(fetcher, 10*time.Millisecond)

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.Eventually(t, func() bool {
		badge, ok := bv.last()
		return ok && badge.count == 5
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, fetcher.callCount(), 4)
}

func TestStart_ImmediateFirstTick(t *testing.T) {
	fetcher := &fakeFetcher{fallback: reply{snap: Snapshot{Count: 1}}}
	p, _, bv, _ := newPoller(fetcher, time.Hour)

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.Eventually(t, func() bool { return bv.renders() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStartStop(t *testing.T) {
	fetcher := &fakeFetcher{fallback: reply{snap: Snapshot{}}}
	p, _, _, _ := newPoller(fetcher, 5*time.Millisecond)

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.Running())
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyRunning)

	p.Stop()
	assert.False(t, p.Running())
	calls := fetcher.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, fetcher.callCount(), "no ticks after Stop")

	p.Stop()
	require.NoError(t, p.Start(context.Background()), "restart after stop")
	p.Stop()
}

func TestStop_CancelsInFlightTick(t *testing.T) {
	fetcher := &fakeFetcher{
		replies: []reply{{gate: make(chan struct{})}},
		entered: make(chan int, 1),
	}
	p, _, _, _ := newPoller(fetcher, time.Hour)

	require.NoError(t, p.Start(context.Background()))
	<-fetcher.entered
	p.Stop()
	assert.False(t, p.Running())
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(&fakeFetcher{}, &Sequencer{}, NewBadge(&fakeBadgeView{}), nil, 0, nil)
	assert.Equal(t, DefaultInterval, p.interval)
}
