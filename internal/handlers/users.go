package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/devcove/internal/middleware"
	"github.com/emilythestrangee/devcove/internal/models"
)

var errAlreadyFollowing = errors.New("already following")

type UserHandler struct {
	db       *gorm.DB
	notifier *Notifier
}

func NewUserHandler(db *gorm.DB, notifier *Notifier) *UserHandler {
	return &UserHandler{db: db, notifier: notifier}
}

// GetUserProfile returns a user's profile
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var followerCount, followingCount int64
	h.db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&followerCount)
	h.db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&followingCount)

	// Check if current user follows this user
	isFollowing := false
	if currentUserID, ok := middleware.UserID(c); ok {
		var follow models.Follow
		err := h.db.Where("follower_id = ? AND following_id = ?", currentUserID, userID).First(&follow).Error
		isFollowing = err == nil
	}

	c.JSON(http.StatusOK, gin.H{
		"user":            user.Summary(),
		"follower_count":  followerCount,
		"following_count": followingCount,
		"is_following":    isFollowing,
	})
}

// FollowUser follows a user and notifies them.
func (h *UserHandler) FollowUser(c *gin.Context) {
	followerID, ok := requireUser(c)
	if !ok {
		return
	}
	followingID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if followingID == followerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot follow yourself"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var followingUser models.User
		if err := tx.First(&followingUser, followingID).Error; err != nil {
			return err
		}

		var existingFollow models.Follow
		err := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).First(&existingFollow).Error
		if err == nil {
			return errAlreadyFollowing
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		follow := models.Follow{FollowerID: followerID, FollowingID: followingUser.ID}
		if err := tx.Create(&follow).Error; err != nil {
			if isUniqueViolation(err) {
				return errAlreadyFollowing
			}
			return err
		}

		_, err = h.notifier.Create(tx, &models.Notification{
			RecipientID: followingUser.ID,
			SenderID:    followerID,
			Type:        models.NotificationFollow,
			Message:     "started following you",
		})
		return err
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	case errors.Is(err, errAlreadyFollowing):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Already following this user"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to follow user"})
		return
	}

	h.notifier.Invalidate(c.Request.Context(), followingID)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully followed user"})
}

// UnfollowUser unfollows a user
func (h *UserHandler) UnfollowUser(c *gin.Context) {
	followerID, ok := requireUser(c)
	if !ok {
		return
	}
	followingID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.db.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&models.Follow{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unfollow"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully unfollowed user"})
}

// GetFollowers returns a user's followers
func (h *UserHandler) GetFollowers(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var follows []models.Follow
	if err := h.db.Where("following_id = ?", userID).Preload("Follower").Find(&follows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch followers"})
		return
	}

	followers := make([]models.UserSummary, 0, len(follows))
	for _, follow := range follows {
		s := follow.Follower.Summary()
		s.Email = ""
		followers = append(followers, s)
	}

	c.JSON(http.StatusOK, followers)
}
