package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadge_VisibleOnlyWithUnread(t *testing.T) {
	view := &fakeBadgeView{}
	b := NewBadge(view)
	var seq Sequencer

	b.Apply(seq.Next(), 3)
	got, _ := view.last()
	assert.Equal(t, badgeState{count: 3, visible: true}, got)
	assert.Equal(t, "3", BadgeLabel(b.Count()))

	b.Apply(seq.Next(), 0)
	got, _ = view.last()
	assert.Equal(t, badgeState{count: 0, visible: false}, got)

	b.Apply(seq.Next(), -2)
	got, _ = view.last()
	assert.Equal(t, badgeState{count: 0, visible: false}, got)
}

func TestBadge_DiscardsStaleSequence(t *testing.T) {
	view := &fakeBadgeView{}
	b := NewBadge(view)
	var seq Sequencer

	older, newer := seq.Next(), seq.Next()
	assert.True(t, b.Apply(newer, 5))
	assert.False(t, b.Apply(older, 1))

	assert.Equal(t, 5, b.Count())
	assert.Equal(t, 1, view.renders())
}

func TestSequencer_Monotonic(t *testing.T) {
	var seq Sequencer
	prev := seq.Next()
	for i := 0; i < 100; i++ {
		next := seq.Next()
		assert.Greater(t, next, prev)
		prev = next
	}
}
