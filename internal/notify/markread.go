package notify

import (
	"context"
	"log/slog"
)

// Refresher reloads the unread count.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// MarkReader runs mark-all-read: on success the panel closes and then the
// count is refreshed. Failures leave the panel open and are not retried.
type MarkReader struct {
	client  MarkAllReader
	panel   *Panel
	refresh Refresher
	log     *slog.Logger
}

func NewMarkReader(client MarkAllReader, panel *Panel, refresh Refresher, log *slog.Logger) *MarkReader {
	if log == nil {
		log = slog.Default()
	}
	return &MarkReader{
		client:  client,
		panel:   panel,
		refresh: refresh,
		log:     log.With("component", "mark_read"),
	}
}

func (m *MarkReader) MarkAllRead(ctx context.Context) error {
	if err := m.client.MarkAllRead(ctx); err != nil {
		m.log.Error("failed to mark notifications as read", "error", err)
		return err
	}

	m.panel.Close()
	if err := m.refresh.Refresh(ctx); err != nil {
		m.log.Warn("count refresh after mark-all-read failed", "error", err)
	}
	return nil
}
