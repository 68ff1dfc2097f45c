package models

import "time"

type Comment struct {
	ID              int       `gorm:"primaryKey" json:"id"`
	Body            string    `gorm:"not null" json:"body"`
	AuthorID        int       `gorm:"not null;index" json:"author_id"`
	Author          User      `gorm:"foreignKey:AuthorID" json:"author"`
	PostID          int       `gorm:"not null;index" json:"post_id"`
	ParentCommentID *int      `json:"parent_comment_id,omitempty"`
	Votes           []Vote    `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateCommentRequest struct {
	Body            string `json:"body" binding:"required"`
	ParentCommentID *int   `json:"parent_comment_id,omitempty"`
}

// CommentView is a comment with its vote tally and the caller's own vote.
type CommentView struct {
	ID              int       `json:"id"`
	Body            string    `json:"body"`
	AuthorID        int       `json:"author_id"`
	Author          string    `json:"author"`
	PostID          int       `json:"post_id"`
	ParentCommentID *int      `json:"parent_comment_id,omitempty"`
	Score           int       `json:"score"`
	UserVote        Direction `json:"user_vote,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
