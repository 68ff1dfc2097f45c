package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/devcove/internal/middleware"
	"github.com/emilythestrangee/devcove/internal/models"
)

type PostHandler struct {
	db *gorm.DB
}

func NewPostHandler(db *gorm.DB) *PostHandler {
	return &PostHandler{db: db}
}

func (h *PostHandler) view(post *models.Post, viewerID int) (models.PostView, error) {
	t, err := countVotes(h.db, models.TargetPost, post.ID)
	if err != nil {
		return models.PostView{}, err
	}
	var comments int64
	if err := h.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error; err != nil {
		return models.PostView{}, err
	}

	return models.PostView{
		ID:        post.ID,
		Title:     post.Title,
		Body:      post.Body,
		AuthorID:  post.AuthorID,
		Author:    post.Author.Username,
		Upvotes:   t.Up,
		Downvotes: t.Down,
		Score:     t.Score(),
		UserVote:  userVote(h.db, viewerID, models.TargetPost, post.ID),
		Comments:  comments,
		CreatedAt: post.CreatedAt,
	}, nil
}

// GetPosts lists posts newest first with their scores. When the caller is
// signed in each post carries the caller's own vote.
func (h *PostHandler) GetPosts(c *gin.Context) {
	var posts []models.Post
	if err := h.db.Preload("Author").Order("created_at desc").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	viewerID, _ := middleware.UserID(c)

	// If no posts, return empty array not null
	responses := make([]models.PostView, 0, len(posts))
	for i := range posts {
		v, err := h.view(&posts[i], viewerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
			return
		}
		responses = append(responses, v)
	}

	c.JSON(http.StatusOK, responses)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var post models.Post
	if err := h.db.Preload("Author").First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	viewerID, _ := middleware.UserID(c)
	v, err := h.view(&post, viewerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}
	c.JSON(http.StatusOK, v)
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	authorID, ok := requireUser(c)
	if !ok {
		return
	}

	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	post := models.Post{
		Title:    input.Title,
		Body:     input.Body,
		AuthorID: authorID,
	}
	if err := h.db.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	// Reload with author information
	h.db.Preload("Author").First(&post, post.ID)

	v, err := h.view(&post, authorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}
	c.JSON(http.StatusCreated, v)
}

// DeletePost deletes a post (PROTECTED - requires ownership)
func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}

	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own posts"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var commentIDs []int
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", post.ID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
