// Package apiclient is the HTTP boundary between the sync core and the
// forum API. It attaches credentials and sorts failures into the error
// kinds the controllers react to.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	csrfCookie = "csrftoken"
	csrfHeader = "X-CSRFToken"
)

var (
	// ErrSessionExpired is returned for 401 and 403 responses.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoCredential is returned before any request is made when a
	// mutation is attempted without a CSRF token.
	ErrNoCredential = errors.New("missing csrf credential")
)

// ApplicationError is a structured error payload returned by the server.
type ApplicationError struct {
	Status  int
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// StatusError is a non-2xx response without a usable error payload.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// Credentials authenticate a request. BearerToken identifies the user and
// CSRFToken is sent both as a cookie and a header on mutations.
type Credentials struct {
	BearerToken string
	CSRFToken   string
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	creds Credentials
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, creds Credentials) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		creds: creds,
	}
}

func (c *Client) Credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// Authenticated reports whether a bearer token is configured.
func (c *Client) Authenticated() bool {
	return c.Credentials().BearerToken != ""
}

// FetchCSRF asks the server for a fresh CSRF token and keeps it.
func (c *Client) FetchCSRF(ctx context.Context, path string) error {
	var out struct {
		Token string `json:"csrf_token"`
	}
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return err
	}
	if out.Token == "" {
		return errors.New("server returned an empty csrf token")
	}

	c.mu.Lock()
	c.creds.CSRFToken = out.Token
	c.mu.Unlock()
	return nil
}

// Do sends a JSON request and decodes a 2xx body into out. out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	creds := c.Credentials()
	mutating := method != http.MethodGet && method != http.MethodHead
	if mutating && creds.CSRFToken == "" {
		return ErrNoCredential
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.BearerToken)
	}
	if mutating {
		req.Header.Set(csrfHeader, creds.CSRFToken)
		req.AddCookie(&http.Cookie{Name: csrfCookie, Value: creds.CSRFToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readError classifies a non-2xx response.
func readError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrSessionExpired
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return &ApplicationError{Status: resp.StatusCode, Message: payload.Error}
	}
	return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}
