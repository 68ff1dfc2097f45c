package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/emilythestrangee/devcove/internal/models"
)

type RowKind int

const (
	RowNotification RowKind = iota
	RowPlaceholder
	RowLoading
	RowError
)

const (
	placeholderText = "No new notifications"
	loadingText     = "Loading..."
	loadFailedText  = "Could not load notifications"
)

// Row is one line of the panel.
type Row struct {
	Kind RowKind
	// The fields below are set for RowNotification only.
	ID     int
	Icon   string
	Sender string
	Text   string
	When   string
	URL    string
	Unread bool
}

// Label is the full text of the row.
func (r Row) Label() string {
	switch r.Kind {
	case RowPlaceholder:
		return placeholderText
	case RowLoading:
		return loadingText
	case RowError:
		return loadFailedText
	default:
		return fmt.Sprintf("%s %s %s", r.Icon, r.Sender, r.Text)
	}
}

func Icon(t models.NotificationType) string {
	switch t {
	case models.NotificationComment:
		return "💬"
	case models.NotificationVote:
		return "👍"
	case models.NotificationFollow:
		return "➕"
	case models.NotificationMention:
		return "📣"
	default:
		return "🔔"
	}
}

func Text(t models.NotificationType) string {
	switch t {
	case models.NotificationComment:
		return "commented on your post."
	case models.NotificationVote:
		return "upvoted your post."
	case models.NotificationFollow:
		return "started following you."
	case models.NotificationMention:
		return "mentioned you."
	default:
		return "sent you a notification."
	}
}

// Describe is the row text for n. Votes carry their target in the stored
// message, so they are not always about a post.
func Describe(n models.NotificationView) string {
	if n.Type == models.NotificationVote && n.Message != "" {
		return strings.TrimSuffix(n.Message, ".") + "."
	}
	return Text(n.Type)
}

// FormatRelative renders created relative to now.
func FormatRelative(created, now time.Time) string {
	diff := now.Sub(created)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	default:
		return created.Local().Format("Jan 2, 2006")
	}
}

// Rows renders a snapshot. An empty list is a single placeholder row.
func Rows(list []models.NotificationView, now time.Time) []Row {
	if len(list) == 0 {
		return []Row{{Kind: RowPlaceholder}}
	}
	rows := make([]Row, 0, len(list))
	for _, n := range list {
		rows = append(rows, Row{
			Kind:   RowNotification,
			ID:     n.ID,
			Icon:   Icon(n.Type),
			Sender: n.Sender,
			Text:   Describe(n),
			When:   FormatRelative(n.CreatedAt, now),
			URL:    n.ActionURL,
			Unread: !n.IsRead,
		})
	}
	return rows
}
