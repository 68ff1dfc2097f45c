package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/emilythestrangee/devcove/internal/events"
	"github.com/emilythestrangee/devcove/internal/metrics"
	"github.com/emilythestrangee/devcove/internal/models"
)

var errTargetNotFound = errors.New("vote target not found")

// publishTimeout bounds how long a vote response waits on the event broker.
var publishTimeout = 2 * time.Second

type VoteHandler struct {
	db       *gorm.DB
	notifier *Notifier
	events   events.Publisher
	metrics  *metrics.Metrics
}

func NewVoteHandler(db *gorm.DB, notifier *Notifier, publisher events.Publisher, m *metrics.Metrics) *VoteHandler {
	return &VoteHandler{db: db, notifier: notifier, events: publisher, metrics: m}
}

// tally holds the vote counts of one target.
type tally struct {
	Up   int
	Down int
}

func (t tally) Score() int { return t.Up - t.Down }

func targetColumn(kind models.TargetType) string {
	if kind == models.TargetComment {
		return "comment_id"
	}
	return "post_id"
}

func countVotes(db *gorm.DB, kind models.TargetType, id int) (tally, error) {
	var t tally
	err := db.Model(&models.Vote{}).
		Select("COALESCE(SUM(CASE WHEN vote_type = 1 THEN 1 ELSE 0 END), 0) AS up, "+
			"COALESCE(SUM(CASE WHEN vote_type = -1 THEN 1 ELSE 0 END), 0) AS down").
		Where(targetColumn(kind)+" = ?", id).
		Scan(&t).Error
	return t, err
}

// userVote returns the caller's current direction on a target, or "".
func userVote(db *gorm.DB, userID int, kind models.TargetType, id int) models.Direction {
	if userID == 0 {
		return ""
	}
	var v models.Vote
	err := db.Where("user_id = ? AND "+targetColumn(kind)+" = ?", userID, id).First(&v).Error
	if err != nil {
		return ""
	}
	if v.VoteType > 0 {
		return models.DirectionUp
	}
	return models.DirectionDown
}

// decideVote applies the toggle rules: no prior vote applies, the same
// direction removes, the opposite direction changes. next is 0 on removal.
func decideVote(existing *models.Vote, requested int) (next int, action models.VoteAction) {
	switch {
	case existing == nil:
		return requested, models.VoteApplied
	case existing.VoteType == requested:
		return 0, models.VoteRemoved
	default:
		return requested, models.VoteChanged
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// voteTarget is what the vote lands on: the owner to notify and the post
// the notification should link to.
type voteTarget struct {
	ownerID int
	postID  int
}

func loadTarget(tx *gorm.DB, kind models.TargetType, id int) (voteTarget, error) {
	if kind == models.TargetComment {
		var comment models.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return voteTarget{}, errTargetNotFound
			}
			return voteTarget{}, err
		}
		return voteTarget{ownerID: comment.AuthorID, postID: comment.PostID}, nil
	}

	var post models.Post
	if err := tx.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return voteTarget{}, errTargetNotFound
		}
		return voteTarget{}, err
	}
	return voteTarget{ownerID: post.AuthorID, postID: post.ID}, nil
}

// Vote toggles the caller's vote on a post or comment and returns the new score.
func (h *VoteHandler) Vote(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.ObserveVoteRejected("invalid")
		c.JSON(http.StatusBadRequest, models.VoteResponse{Error: "Invalid vote request"})
		return
	}
	requested, err := req.Direction.VoteType()
	if err != nil {
		h.metrics.ObserveVoteRejected("invalid")
		c.JSON(http.StatusBadRequest, models.VoteResponse{Error: "Invalid vote direction"})
		return
	}

	ctx := c.Request.Context()
	var (
		action   models.VoteAction
		score    int
		notified int
	)
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := loadTarget(tx, req.TargetType, req.TargetID)
		if err != nil {
			return err
		}

		var existing models.Vote
		err = tx.Where("user_id = ? AND "+targetColumn(req.TargetType)+" = ?", userID, req.TargetID).
			First(&existing).Error
		var prior *models.Vote
		switch {
		case err == nil:
			prior = &existing
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		var next int
		next, action = decideVote(prior, requested)
		switch action {
		case models.VoteApplied:
			vote := models.Vote{UserID: userID, VoteType: next}
			targetID := req.TargetID
			if req.TargetType == models.TargetComment {
				vote.CommentID = &targetID
			} else {
				vote.PostID = &targetID
			}
			err = tx.Create(&vote).Error
		case models.VoteRemoved:
			err = tx.Delete(&existing).Error
		case models.VoteChanged:
			err = tx.Model(&existing).Update("vote_type", next).Error
		}
		if err != nil {
			return err
		}

		t, err := countVotes(tx, req.TargetType, req.TargetID)
		if err != nil {
			return err
		}
		score = t.Score()

		var commentID *int
		if req.TargetType == models.TargetComment {
			id := req.TargetID
			commentID = &id
		}
		switch {
		case action == models.VoteRemoved && existing.VoteType > 0:
			removed, err := h.notifier.RetractVote(tx, target.ownerID, userID, target.postID, commentID)
			if err != nil {
				return err
			}
			if removed {
				notified = target.ownerID
			}
		case action != models.VoteRemoved && req.Direction == models.DirectionUp:
			postID := target.postID
			created, err := h.notifier.CreateVote(tx, &models.Notification{
				RecipientID: target.ownerID,
				SenderID:    userID,
				Type:        models.NotificationVote,
				Message:     fmt.Sprintf("upvoted your %s", req.TargetType),
				PostID:      &postID,
				CommentID:   commentID,
			}, time.Now().UTC())
			if err != nil {
				return err
			}
			if created {
				notified = target.ownerID
			}
		}
		return nil
	})

	switch {
	case errors.Is(err, errTargetNotFound):
		h.metrics.ObserveVoteRejected("not_found")
		msg := "Post not found"
		if req.TargetType == models.TargetComment {
			msg = "Comment not found"
		}
		c.JSON(http.StatusNotFound, models.VoteResponse{Error: msg})
		return
	case isUniqueViolation(err):
		h.metrics.ObserveVoteRejected("conflict")
		c.JSON(http.StatusConflict, models.VoteResponse{Error: "Vote already in progress, try again"})
		return
	case err != nil:
		slog.Error("vote failed", "user_id", userID, "target_type", req.TargetType, "target_id", req.TargetID, "error", err)
		c.JSON(http.StatusInternalServerError, models.VoteResponse{Error: "Failed to vote"})
		return
	}

	if notified != 0 {
		h.notifier.Invalidate(ctx, notified)
	}
	h.metrics.ObserveVote(string(req.TargetType), string(action))

	event := events.VoteEvent{
		UserID:     userID,
		TargetType: string(req.TargetType),
		TargetID:   req.TargetID,
		Direction:  string(req.Direction),
		Action:     string(action),
		Score:      score,
		VotedAt:    time.Now().UTC(),
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	if err := h.events.PublishVote(publishCtx, event); err != nil {
		slog.Warn("vote event not published", "key", event.Key(), "error", err)
	}
	cancel()

	c.JSON(http.StatusOK, models.VoteResponse{
		Success:   true,
		Score:     score,
		Action:    action,
		Direction: req.Direction,
	})
}
