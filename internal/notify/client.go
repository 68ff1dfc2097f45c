// Package notify keeps the unread badge and the notification panel in
// step with the server. Every fetch replaces the previous snapshot; a
// shared sequence drops responses that lost a race to a newer one.
package notify

import (
	"context"
	"errors"
	"net/http"

	"github.com/emilythestrangee/devcove/internal/apiclient"
	"github.com/emilythestrangee/devcove/internal/models"
)

// Snapshot is one count/list fetch.
type Snapshot struct {
	Count         int
	Notifications []models.NotificationView
}

// Fetcher loads the current snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// MarkAllReader clears the unread state on the server.
type MarkAllReader interface {
	MarkAllRead(ctx context.Context) error
}

type Client struct {
	api      *apiclient.Client
	listPath string
	markPath string
}

func NewClient(api *apiclient.Client, listPath, markPath string) *Client {
	return &Client{api: api, listPath: listPath, markPath: markPath}
}

func (c *Client) Fetch(ctx context.Context) (Snapshot, error) {
	var resp models.NotificationCountResponse
	if err := c.api.Do(ctx, http.MethodGet, c.listPath, nil, &resp); err != nil {
		return Snapshot{}, err
	}
	if resp.Count < 0 {
		return Snapshot{}, errors.New("server returned a negative unread count")
	}
	if resp.Notifications == nil {
		resp.Notifications = []models.NotificationView{}
	}
	return Snapshot{Count: resp.Count, Notifications: resp.Notifications}, nil
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	var resp models.MarkAllReadResponse
	if err := c.api.Do(ctx, http.MethodPost, c.markPath, nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		if resp.Error != "" {
			return &apiclient.ApplicationError{Status: http.StatusOK, Message: resp.Error}
		}
		return errors.New("mark all read was not successful")
	}
	return nil
}
