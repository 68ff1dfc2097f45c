package models

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationComment NotificationType = "comment"
	NotificationVote    NotificationType = "vote"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
)

// Notification model - one event delivered to a recipient.
type Notification struct {
	ID          int              `gorm:"primaryKey" json:"id"`
	RecipientID int              `gorm:"not null;index:idx_notification_recipient_read" json:"recipient_id"`
	Recipient   User             `gorm:"foreignKey:RecipientID" json:"-"`
	SenderID    int              `gorm:"not null" json:"sender_id"`
	Sender      User             `gorm:"foreignKey:SenderID" json:"sender"`
	Type        NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Message     string           `gorm:"type:text" json:"message"`
	PostID      *int             `json:"post_id,omitempty"`
	CommentID   *int             `json:"comment_id,omitempty"`
	IsRead      bool             `gorm:"default:false;index:idx_notification_recipient_read" json:"is_read"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// ActionURL is where clicking the notification leads.
func (n *Notification) ActionURL() string {
	switch {
	case n.PostID != nil:
		return fmt.Sprintf("/posts/%d", *n.PostID)
	case n.Type == NotificationFollow:
		return fmt.Sprintf("/users/%d", n.SenderID)
	default:
		return "/notifications"
	}
}

// View flattens a notification into the shape served to clients.
func (n *Notification) View() NotificationView {
	return NotificationView{
		ID:        n.ID,
		Sender:    n.Sender.Username,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		ActionURL: n.ActionURL(),
	}
}

// NotificationView is a notification as served by the API.
type NotificationView struct {
	ID        int              `json:"id"`
	Sender    string           `json:"sender"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	ActionURL string           `json:"action_url"`
}

// NotificationCountResponse is the body of GET /api/notifications/count.
type NotificationCountResponse struct {
	Count         int                `json:"count"`
	Notifications []NotificationView `json:"notifications"`
}

// MarkAllReadResponse is the body of POST /api/notifications/mark-all-read.
type MarkAllReadResponse struct {
	Success      bool   `json:"success"`
	UpdatedCount int64  `json:"updated_count"`
	Error        string `json:"error,omitempty"`
}
