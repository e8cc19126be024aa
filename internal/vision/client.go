package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls the vision API from other stage processes.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

// NewClient creates a Client for baseURL (e.g. "http://localhost:3000").
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vision API %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Assignment is one routing entry as served by /api/routing.
type Assignment struct {
	ConversationID string `json:"conversationId"`
	AgentID        string `json:"agentId"`
}

// Assignments fetches the live routing table.
func (c *Client) Assignments(ctx context.Context) ([]Assignment, error) {
	var body struct {
		Assignments []Assignment `json:"assignments"`
	}
	if err := c.get(ctx, "/api/routing", &body); err != nil {
		return nil, err
	}
	return body.Assignments, nil
}

// Health reports the API's uptime in seconds.
func (c *Client) Health(ctx context.Context) (int, error) {
	var body struct {
		Status string `json:"status"`
		Uptime int    `json:"uptime"`
	}
	if err := c.get(ctx, "/health", &body); err != nil {
		return 0, err
	}
	if body.Status != "ok" {
		return 0, fmt.Errorf("vision API unhealthy: %s", body.Status)
	}
	return body.Uptime, nil
}
