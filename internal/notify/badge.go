package notify

import (
	"strconv"
	"sync"
)

// BadgeView draws the unread counter.
type BadgeView interface {
	SetBadge(count int, visible bool)
}

// Badge is the unread counter. It is visible exactly when count > 0.
type Badge struct {
	view BadgeView
	slot slot

	mu    sync.Mutex
	count int
}

func NewBadge(view BadgeView) *Badge {
	return &Badge{view: view}
}

// Apply shows count unless a newer sequence already reached the badge.
func (b *Badge) Apply(seq uint64, count int) bool {
	if count < 0 {
		count = 0
	}
	return b.slot.apply(seq, func() {
		b.mu.Lock()
		b.count = count
		b.mu.Unlock()
		b.view.SetBadge(count, count > 0)
	})
}

func (b *Badge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// BadgeLabel is the text shown in a visible badge.
func BadgeLabel(count int) string {
	if count <= 0 {
		return ""
	}
	if count > 99 {
		return "99+"
	}
	return strconv.Itoa(count)
}
