// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sloperunner/engine/pkg/core"
)

// DefaultTimeout bounds every client request.
const DefaultTimeout = 30 * time.Second

// Client talks to the leaderboard API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status %d: %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// New creates a new API client. A non-positive timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Healthcheck checks if the leaderboard server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Leaderboard fetches the ranked list.
func (c *Client) Leaderboard(ctx context.Context) ([]core.LeaderboardEntry, error) {
	var entries []core.LeaderboardEntry
	if err := c.getJSON(ctx, "/api/leaderboard", &entries); err != nil {
		return nil, fmt.Errorf("leaderboard request failed: %w", err)
	}
	if entries == nil {
		entries = []core.LeaderboardEntry{}
	}
	return entries, nil
}

// Qualifies asks the server whether score would enter the list.
func (c *Client) Qualifies(ctx context.Context, score int) (bool, error) {
	var out QualifiesResponse
	path := "/api/qualifies?" + url.Values{"score": {strconv.Itoa(score)}}.Encode()
	if err := c.getJSON(ctx, path, &out); err != nil {
		return false, fmt.Errorf("qualifies request failed: %w", err)
	}
	return out.Qualifies, nil
}

// Submit sends a finished run and returns the updated list.
func (c *Client) Submit(ctx context.Context, name string, score int) ([]core.LeaderboardEntry, error) {
	s := float64(score)
	body, err := json.Marshal(SubmitRequest{Name: &name, Score: &s})
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/updateLeaderboard", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeStatusError(resp)
	}

	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode submit response: %w", err)
	}
	return out.UpdatedScores, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		statusErr.Message = body.Message
		statusErr.Detail = body.Error
	}
	return statusErr
}
