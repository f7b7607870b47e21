package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clinicportal/clinic/internal/platform/apperr"
)

var (
	ErrTransport = apperr.Transport("feed_transport", "feed request failed")
	ErrNotFound  = apperr.NotFound("feed_not_found", "resource not found")
)

// Client talks to the notification and appointment endpoints of a clinic
// server. It implements FeedSource, Confirmer and Prober.
type Client struct {
	BaseURL string
	Token   string
	// DevRole and DevUser are sent as X-Dev-Role / X-Dev-User for servers
	// running development auth.
	DevRole string
	DevUser string

	http *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/notifications/feed")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decode feed: %v", ErrTransport, err)
	}
	return &snap, nil
}

func (c *Client) ConfirmRead(ctx context.Context, id int64) error {
	return c.post(ctx, fmt.Sprintf("/api/v1/notifications/%d/read", id))
}

func (c *Client) ConfirmAllRead(ctx context.Context) error {
	return c.post(ctx, "/api/v1/notifications/read-all")
}

// ProbeAppointment reports whether the request is still awaiting a decision.
// Requests already approved or rejected count as not found.
func (c *Client) ProbeAppointment(ctx context.Context, id int64) ProbeResult {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/appointment-requests/%d?status=pending", id))
	if err != nil {
		return ProbeTransportError
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Status != "" && body.Status != "pending" {
			return ProbeNotFound
		}
		return ProbeFound
	case http.StatusNotFound:
		return ProbeNotFound
	}
	io.Copy(io.Discard, resp.Body)
	return ProbeTransportError
}

func (c *Client) post(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodPost, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return checkStatus(resp)
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.DevRole != "" {
		req.Header.Set("X-Dev-Role", c.DevRole)
	}
	if c.DevUser != "" {
		req.Header.Set("X-Dev-User", c.DevUser)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL.Path)
	}
	return fmt.Errorf("%w: %s returned %d", ErrTransport, resp.Request.URL.Path, resp.StatusCode)
}
