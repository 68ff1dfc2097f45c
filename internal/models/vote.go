package models

import (
	"fmt"
	"time"
)

// Vote model - tracks individual user votes on posts and comments.
// Exactly one of PostID / CommentID is set.
type Vote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_vote_user_post;uniqueIndex:idx_vote_user_comment" json:"user_id"`
	PostID    *int      `gorm:"uniqueIndex:idx_vote_user_post" json:"post_id,omitempty"`
	CommentID *int      `gorm:"uniqueIndex:idx_vote_user_comment" json:"comment_id,omitempty"`
	VoteType  int       `gorm:"not null" json:"vote_type"` // 1 or -1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TargetType names what a vote is attached to.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Direction is the wire form of a vote direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// VoteType converts a direction into the stored +1/-1 value.
func (d Direction) VoteType() (int, error) {
	switch d {
	case DirectionUp:
		return 1, nil
	case DirectionDown:
		return -1, nil
	default:
		return 0, fmt.Errorf("invalid vote direction %q", string(d))
	}
}

// VoteAction is the outcome of a vote mutation.
type VoteAction string

const (
	VoteApplied VoteAction = "applied"
	VoteRemoved VoteAction = "removed"
	VoteChanged VoteAction = "changed"
)

// VoteRequest is the body of POST /api/vote.
type VoteRequest struct {
	TargetType TargetType `json:"target_type" binding:"required,oneof=post comment"`
	TargetID   int        `json:"target_id" binding:"required,gt=0"`
	Direction  Direction  `json:"direction" binding:"required,oneof=up down"`
}

// VoteResponse is the body returned by POST /api/vote. Error is set instead
// of the other fields when the server rejects the vote.
type VoteResponse struct {
	Success   bool       `json:"success"`
	Score     int        `json:"score"`
	Action    VoteAction `json:"action,omitempty"`
	Direction Direction  `json:"direction,omitempty"`
	Error     string     `json:"error,omitempty"`
}
