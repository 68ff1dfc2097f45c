package models

import "time"

type Post struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	AuthorID  int       `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	Votes     []Vote    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreatePostRequest struct {
	Title string `json:"title" binding:"required,max=300"`
	Body  string `json:"body"`
}

// PostView is a post with its vote tally and the caller's own vote.
type PostView struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  int       `json:"author_id"`
	Author    string    `json:"author"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	Score     int       `json:"score"`
	UserVote  Direction `json:"user_vote,omitempty"`
	Comments  int64     `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}
