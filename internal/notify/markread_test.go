package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	j   *journal
	err error
}

func (f *fakeMarker) MarkAllRead(context.Context) error {
	if f.j != nil {
		f.j.add("mark")
	}
	return f.err
}

func newMarkReadRig(markErr error) (*MarkReader, *Panel, *journal) {
	j := &journal{}
	fetcher := &fakeFetcher{j: j, fallback: reply{snap: Snapshot{Count: 0}}}
	seq := &Sequencer{}
	badge := NewBadge(&fakeBadgeView{j: j})
	panel := NewPanel(fetcher, seq, badge, &fakePanelView{j: j}, WithClock(func() time.Time { return fixedNow }))
	poller := NewPoller(fetcher, seq, badge, panel, time.Hour, nil)
	return NewMarkReader(&fakeMarker{j: j, err: markErr}, panel, poller, nil), panel, j
}

func TestMarkAllRead_ClosesThenRefreshes(t *testing.T) {
	m, panel, j := newMarkReadRig(nil)
	panel.Toggle(context.Background())
	require.True(t, panel.IsOpen())
	before := len(j.list())

	require.NoError(t, m.MarkAllRead(context.Background()))

	assert.False(t, panel.IsOpen())
	assert.Equal(t, []string{"mark", "panel:closed", "fetch", "badge"}, j.list()[before:])
}

func TestMarkAllRead_FailureKeepsPanelOpen(t *testing.T) {
	m, panel, j := newMarkReadRig(errBoom)
	panel.Toggle(context.Background())
	before := len(j.list())

	assert.ErrorIs(t, m.MarkAllRead(context.Background()), errBoom)

	assert.True(t, panel.IsOpen())
	assert.Equal(t, []string{"mark"}, j.list()[before:], "no retry and no refresh")
}
