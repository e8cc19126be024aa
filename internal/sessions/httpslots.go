package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPSlots talks to the vision API's response-slot endpoints:
//
//	POST /api/sessions/response  {requestId, output}   → stores
//	GET  /api/sessions/response?requestId=...          → reads-and-clears
//
// This is how the action stage polls when the slot store lives behind the
// dashboard process instead of being reachable directly.
type HTTPSlots struct {
	// APIKey, when set, is sent as a bearer token.
	APIKey string

	baseURL string
	client  *http.Client
}

// NewHTTPSlots points at the vision API base URL (e.g. http://localhost:3000).
func NewHTTPSlots(baseURL string) *HTTPSlots {
	return &HTTPSlots{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSlots) Put(ctx context.Context, requestID, output string) error {
	body, err := json.Marshal(map[string]string{
		"requestId": requestID,
		"output":    output,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/api/sessions/response", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store session response: status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSlots) Take(ctx context.Context, requestID string) (string, bool, error) {
	endpoint := s.baseURL + "/api/sessions/response?requestId=" + url.QueryEscape(requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("read session response: status %d", resp.StatusCode)
	}

	var data struct {
		Output *string `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", false, err
	}
	if data.Output == nil {
		return "", false, nil
	}
	return *data.Output, true, nil
}

func (s *HTTPSlots) authorize(req *http.Request) {
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
}

var _ Slots = (*HTTPSlots)(nil)
