package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/devcove/internal/middleware"
	"github.com/emilythestrangee/devcove/internal/models"
)

type CommentHandler struct {
	db       *gorm.DB
	notifier *Notifier
}

func NewCommentHandler(db *gorm.DB, notifier *Notifier) *CommentHandler {
	return &CommentHandler{db: db, notifier: notifier}
}

func (h *CommentHandler) view(comment *models.Comment, viewerID int) (models.CommentView, error) {
	t, err := countVotes(h.db, models.TargetComment, comment.ID)
	if err != nil {
		return models.CommentView{}, err
	}
	return models.CommentView{
		ID:              comment.ID,
		Body:            comment.Body,
		AuthorID:        comment.AuthorID,
		Author:          comment.Author.Username,
		PostID:          comment.PostID,
		ParentCommentID: comment.ParentCommentID,
		Score:           t.Score(),
		UserVote:        userVote(h.db, viewerID, models.TargetComment, comment.ID),
		CreatedAt:       comment.CreatedAt,
	}, nil
}

// GetComments returns all comments for a post with calculated votes
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var comments []models.Comment
	if err := h.db.Where("post_id = ?", postID).Preload("Author").Order("created_at desc").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	viewerID, _ := middleware.UserID(c)
	responses := make([]models.CommentView, 0, len(comments))
	for i := range comments {
		v, err := h.view(&comments[i], viewerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
			return
		}
		responses = append(responses, v)
	}

	c.JSON(http.StatusOK, responses)
}

// CreateComment creates a new comment on a post and notifies the post author.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	authorID, ok := requireUser(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		comment   models.Comment
		recipient int
	)
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			return err
		}

		if input.ParentCommentID != nil {
			var parent models.Comment
			if err := tx.Where("id = ? AND post_id = ?", *input.ParentCommentID, post.ID).First(&parent).Error; err != nil {
				return err
			}
		}

		comment = models.Comment{
			Body:            input.Body,
			PostID:          post.ID,
			AuthorID:        authorID,
			ParentCommentID: input.ParentCommentID,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}

		pid := post.ID
		created, err := h.notifier.Create(tx, &models.Notification{
			RecipientID: post.AuthorID,
			SenderID:    authorID,
			Type:        models.NotificationComment,
			Message:     "commented on your post",
			PostID:      &pid,
		})
		if err != nil {
			return err
		}
		if created {
			recipient = post.AuthorID
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	if recipient != 0 {
		h.notifier.Invalidate(c.Request.Context(), recipient)
	}

	h.db.Preload("Author").First(&comment, comment.ID)
	v, err := h.view(&comment, authorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comment"})
		return
	}
	c.JSON(http.StatusCreated, v)
}

// DeleteComment deletes a comment and its votes (owner only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	authorID, ok := requireUser(c)
	if !ok {
		return
	}
	commentID, ok := paramID(c, "commentId")
	if !ok {
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	if comment.AuthorID != authorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&comment).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
