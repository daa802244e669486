// Package sync pulls changes from a remote todoflow server into the
// local store on a fixed interval.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thuale/todoflow/internal/model"
)

// ErrUnauthorized indicates the remote rejected the bearer token.
var ErrUnauthorized = errors.New("sync: unauthorized")

// ChangeSet is the payload returned by the remote changes endpoint.
type ChangeSet struct {
	Todos       []model.Todo             `json:"todos"`
	Completions []model.CompletionRecord `json:"completions"`
	ServerTime  time.Time                `json:"server_time"`
}

// Client talks to a remote todoflow server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given server base URL. The token
// may be empty when the remote does not require authentication.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// GetChanges fetches todos and completion records updated since the
// given time. A zero since fetches everything.
func (c *Client) GetChanges(ctx context.Context, since time.Time) (ChangeSet, error) {
	endpoint := c.baseURL + "/api/sync/changes"
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ChangeSet{}, fmt.Errorf("building changes request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ChangeSet{}, fmt.Errorf("fetching changes: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return ChangeSet{}, ErrUnauthorized
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ChangeSet{}, fmt.Errorf("changes request failed: %s: %s",
			resp.Status, strings.TrimSpace(string(body)))
	}

	var cs ChangeSet
	if err := json.NewDecoder(resp.Body).Decode(&cs); err != nil {
		return ChangeSet{}, fmt.Errorf("decoding changes: %w", err)
	}
	return cs, nil
}
