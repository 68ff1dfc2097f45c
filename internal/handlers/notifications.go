package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/devcove/internal/cache"
	"github.com/emilythestrangee/devcove/internal/metrics"
	"github.com/emilythestrangee/devcove/internal/models"
)

const (
	// recentNotifications is how many rows the count endpoint ships.
	recentNotifications = 5
	notificationsPerPage = 20
	// voteNotificationWindow suppresses repeat upvote notifications from
	// one sender on one target.
	voteNotificationWindow = 5 * time.Minute
)

// Notifier records notifications and keeps the unread cache honest.
type Notifier struct {
	unread  cache.UnreadCounter
	metrics *metrics.Metrics
}

func NewNotifier(unread cache.UnreadCounter, m *metrics.Metrics) *Notifier {
	return &Notifier{unread: unread, metrics: m}
}

// Create inserts n inside tx. Self-notifications are skipped and reported
// as not created. Callers must Invalidate the recipient after commit.
func (n *Notifier) Create(tx *gorm.DB, notif *models.Notification) (bool, error) {
	if notif.RecipientID == notif.SenderID {
		return false, nil
	}
	if err := tx.Create(notif).Error; err != nil {
		return false, err
	}
	n.metrics.ObserveNotification(string(notif.Type))
	return true, nil
}

// voteScope matches the upvote notifications sender sent recipient about
// one target. commentID is nil for post votes.
func voteScope(tx *gorm.DB, recipientID, senderID, postID int, commentID *int) *gorm.DB {
	q := tx.Model(&models.Notification{}).
		Where("recipient_id = ? AND sender_id = ? AND type = ? AND post_id = ?",
			recipientID, senderID, models.NotificationVote, postID)
	if commentID == nil {
		return q.Where("comment_id IS NULL")
	}
	return q.Where("comment_id = ?", *commentID)
}

// CreateVote records an upvote notification unless the same sender already
// notified the recipient about the same target within the window.
func (n *Notifier) CreateVote(tx *gorm.DB, notif *models.Notification, now time.Time) (bool, error) {
	if notif.RecipientID == notif.SenderID || notif.PostID == nil {
		return false, nil
	}
	var recent int64
	err := voteScope(tx, notif.RecipientID, notif.SenderID, *notif.PostID, notif.CommentID).
		Where("created_at >= ?", now.Add(-voteNotificationWindow)).
		Count(&recent).Error
	if err != nil {
		return false, err
	}
	if recent > 0 {
		return false, nil
	}
	return n.Create(tx, notif)
}

// RetractVote deletes the upvote notifications of a withdrawn upvote and
// reports whether any were removed.
func (n *Notifier) RetractVote(tx *gorm.DB, recipientID, senderID, postID int, commentID *int) (bool, error) {
	if recipientID == senderID {
		return false, nil
	}
	res := voteScope(tx, recipientID, senderID, postID, commentID).Delete(&models.Notification{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Invalidate drops cached unread counts. Cache failures are logged only;
// the next miss reads postgres.
func (n *Notifier) Invalidate(ctx context.Context, userIDs ...int) {
	for _, id := range userIDs {
		if err := n.unread.Invalidate(ctx, id); err != nil {
			slog.Warn("unread cache invalidation failed", "user_id", id, "error", err)
		}
	}
}

type NotificationHandler struct {
	db       *gorm.DB
	unread   cache.UnreadCounter
	metrics  *metrics.Metrics
	notifier *Notifier
}

func NewNotificationHandler(db *gorm.DB, unread cache.UnreadCounter, m *metrics.Metrics) *NotificationHandler {
	return &NotificationHandler{
		db:       db,
		unread:   unread,
		metrics:  m,
		notifier: NewNotifier(unread, m),
	}
}

func (h *NotificationHandler) unreadCount(ctx context.Context, userID int) (int, error) {
	n, outcome, err := cache.ReadThrough(ctx, h.unread, userID, func(ctx context.Context) (int, error) {
		var count int64
		err := h.db.WithContext(ctx).Model(&models.Notification{}).
			Where("recipient_id = ? AND is_read = ?", userID, false).
			Count(&count).Error
		return int(count), err
	})
	h.metrics.ObserveUnreadCache(string(outcome))
	return n, err
}

func views(list []models.Notification) []models.NotificationView {
	out := make([]models.NotificationView, 0, len(list))
	for i := range list {
		out = append(out, list[i].View())
	}
	return out
}

// Count returns the unread count and the newest notifications.
func (h *NotificationHandler) Count(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	count, err := h.unreadCount(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	var recent []models.Notification
	err = h.db.WithContext(ctx).Preload("Sender").
		Where("recipient_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(recentNotifications).
		Find(&recent).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, models.NotificationCountResponse{
		Count:         count,
		Notifications: views(recent),
	})
}

// List returns one page of the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	base := h.db.WithContext(c.Request.Context()).Model(&models.Notification{}).Where("recipient_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	var list []models.Notification
	err = base.Preload("Sender").
		Order("created_at desc, id desc").
		Offset((page - 1) * notificationsPerPage).
		Limit(notificationsPerPage).
		Find(&list).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": views(list),
		"page":          page,
		"total":         total,
		"has_next":      int64(page*notificationsPerPage) < total,
	})
}

// MarkAllRead flips every unread notification of the caller.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	now := time.Now().UTC()
	result := h.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, models.MarkAllReadResponse{Error: "Failed to mark notifications as read"})
		return
	}

	h.notifier.Invalidate(ctx, userID)
	h.metrics.ObserveMarkedRead(result.RowsAffected)

	c.JSON(http.StatusOK, models.MarkAllReadResponse{Success: true, UpdatedCount: result.RowsAffected})
}

// MarkRead flips a single notification and returns where it points.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var notif models.Notification
	err := h.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, userID).First(&notif).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notification"})
		return
	}

	if !notif.IsRead {
		now := time.Now().UTC()
		err := h.db.WithContext(ctx).Model(&notif).
			Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification as read"})
			return
		}
		h.notifier.Invalidate(ctx, userID)
		h.metrics.ObserveMarkedRead(1)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "action_url": notif.ActionURL()})
}

// ClearAll deletes every notification of the caller.
func (h *NotificationHandler) ClearAll(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result := h.db.WithContext(ctx).Where("recipient_id = ?", userID).Delete(&models.Notification{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear notifications"})
		return
	}
	h.notifier.Invalidate(ctx, userID)

	c.JSON(http.StatusOK, gin.H{"success": true, "deleted_count": result.RowsAffected})
}
