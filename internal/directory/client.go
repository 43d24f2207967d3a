package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// Config carries the remote directory settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the platform user database. Without an API key it runs in
// mock mode: reads return empty, writes log and succeed.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: cfg.BaseURL, apiKey: cfg.APIKey, http: hc}
}

// Configured reports whether the client can reach a real directory.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// FetchActive returns every active user, oldest registration first.
func (c *Client) FetchActive(ctx context.Context) ([]Candidate, error) {
	if !c.Configured() {
		log.Info().Msg("directory not configured, no active users")
		return nil, nil
	}
	q := url.Values{}
	q.Set("status", "eq."+StatusActive)
	q.Set("order", "registered_at.asc")
	return c.fetch(ctx, q)
}

// FetchPendingOverdue returns pending users whose last notification is older
// than the given age. The age filter runs client side, the directory query
// language has no timestamp arithmetic.
func (c *Client) FetchPendingOverdue(ctx context.Context, olderThan time.Duration) ([]Candidate, error) {
	if !c.Configured() {
		return nil, nil
	}
	q := url.Values{}
	q.Set("status", "eq."+StatusPending)
	q.Set("order", "notified_at.asc")
	users, err := c.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	var overdue []Candidate
	for _, u := range users {
		t, ok := ParseTimestamp(u.NotifiedAt)
		if !ok {
			continue
		}
		if t.UTC().Before(cutoff) {
			overdue = append(overdue, u)
		}
	}
	return overdue, nil
}

// SetStatus updates a user's status, optionally stamping notified_at.
func (c *Client) SetStatus(ctx context.Context, id, status string, notifiedAt *time.Time) error {
	if !c.Configured() {
		log.Info().Str("user", id).Str("status", status).Msg("mock directory update")
		return nil
	}
	payload := map[string]string{"status": status}
	if notifiedAt != nil {
		payload["notified_at"] = notifiedAt.UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	u := c.base + "/platform/v1/db/users?id=eq." + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("updating user %s: status %d", id, resp.StatusCode)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, q url.Values) ([]Candidate, error) {
	u := c.base + "/platform/v1/db/users?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetching users: status %d", resp.StatusCode)
	}

	var envelope struct {
		Data []Candidate `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	return envelope.Data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
