package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/devcove/internal/cache"
	"github.com/emilythestrangee/devcove/internal/events"
	"github.com/emilythestrangee/devcove/internal/metrics"
	"github.com/emilythestrangee/devcove/internal/middleware"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	DB      *gorm.DB
	Tokens  *middleware.Tokens
	Unread  cache.UnreadCounter
	Events  events.Publisher
	Metrics *metrics.Metrics
}

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Post         *PostHandler
	Comment      *CommentHandler
	User         *UserHandler
	Vote         *VoteHandler
	Notification *NotificationHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(deps Deps) *Handler {
	if deps.Unread == nil {
		deps.Unread = cache.Nop{}
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	notifier := NewNotifier(deps.Unread, deps.Metrics)

	return &Handler{
		Auth:         NewAuthHandler(deps.DB, deps.Tokens),
		Post:         NewPostHandler(deps.DB),
		Comment:      NewCommentHandler(deps.DB, notifier),
		User:         NewUserHandler(deps.DB, notifier),
		Vote:         NewVoteHandler(deps.DB, notifier, deps.Events, deps.Metrics),
		Notification: NewNotificationHandler(deps.DB, deps.Unread, deps.Metrics),
	}
}

// requireUser writes a 401 and returns false when no user is attached.
func requireUser(c *gin.Context) (int, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return userID, true
}

// paramID parses a positive integer path parameter, writing a 400 on failure.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
