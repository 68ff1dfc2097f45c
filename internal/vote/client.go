// Package vote keeps the on-screen projection of each vote target in step
// with the server: one request per target at a time, state replaced only
// from confirmed responses.
package vote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/emilythestrangee/devcove/internal/apiclient"
	"github.com/emilythestrangee/devcove/internal/models"
)

// Target identifies a votable post or comment.
type Target struct {
	Kind models.TargetType
	ID   int
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// Valid reports whether t names something the server can vote on.
func (t Target) Valid() bool {
	return (t.Kind == models.TargetPost || t.Kind == models.TargetComment) && t.ID > 0
}

func validDirection(d models.Direction) bool {
	return d == models.DirectionUp || d == models.DirectionDown
}

type Action string

const (
	Applied Action = "applied"
	Removed Action = "removed"
	Changed Action = "changed"
)

// ParseAction reads the action field of a vote response. Older servers
// answer "created" and "updated" for applied and changed.
func ParseAction(s string) (Action, error) {
	switch s {
	case "applied", "created":
		return Applied, nil
	case "removed":
		return Removed, nil
	case "changed", "updated":
		return Changed, nil
	default:
		return "", fmt.Errorf("unknown vote action %q", s)
	}
}

// Result is a settled vote.
type Result struct {
	Score  int
	Action Action
}

// Client issues vote mutations. It never retries.
type Client struct {
	api  *apiclient.Client
	path string
}

func NewClient(api *apiclient.Client, path string) *Client {
	return &Client{api: api, path: path}
}

// Vote sends one mutation. Errors are *apiclient.ApplicationError for a
// server error payload, apiclient.ErrSessionExpired, apiclient.ErrNoCredential,
// or a transport failure.
func (c *Client) Vote(ctx context.Context, target Target, dir models.Direction) (Result, error) {
	var resp models.VoteResponse
	err := c.api.Do(ctx, http.MethodPost, c.path, models.VoteRequest{
		TargetType: target.Kind,
		TargetID:   target.ID,
		Direction:  dir,
	}, &resp)
	if err != nil {
		return Result{}, err
	}

	if resp.Error != "" {
		return Result{}, &apiclient.ApplicationError{Status: http.StatusOK, Message: resp.Error}
	}
	if !resp.Success {
		return Result{}, errors.New("vote response was not successful")
	}

	action, err := ParseAction(string(resp.Action))
	if err != nil {
		return Result{}, err
	}
	return Result{Score: resp.Score, Action: action}, nil
}
