package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (compatible; starfish/1.0)"

// WebSearcher answers websearch intents: search queries go to the Brave
// Search API, things that look like URLs are fetched directly.
type WebSearcher struct {
	APIKey     string
	MaxResults int
	MaxChars   int
	Client     *http.Client
}

// NewWebSearcher creates a WebSearcher. An empty apiKey falls back to
// BRAVE_API_KEY from the environment at call time.
func NewWebSearcher(apiKey string) *WebSearcher {
	return &WebSearcher{
		APIKey:     apiKey,
		MaxResults: 5,
		MaxChars:   8000,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

var urlPattern = regexp.MustCompile(`^https?://\S+$`)

// LooksLikeURL reports whether query should be fetched rather than searched.
func LooksLikeURL(query string) bool {
	return urlPattern.MatchString(strings.TrimSpace(query))
}

// Search queries Brave and returns a numbered result list.
func (w *WebSearcher) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("websearch requires params.query")
	}

	apiKey := w.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("BRAVE_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("BRAVE_API_KEY not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://api.search.brave.com/res/v1/web/search", nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", w.MaxResults))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", apiKey)

	resp, err := w.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()

	var data struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	if len(data.Web.Results) == 0 {
		return fmt.Sprintf("No results for: %s", query), nil
	}

	lines := []string{fmt.Sprintf("Results for: %s\n", query)}
	for i, item := range data.Web.Results {
		if i >= w.MaxResults {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s\n   %s", i+1, item.Title, item.URL))
		if item.Description != "" {
			lines = append(lines, "   "+item.Description)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// FetchURL downloads rawURL and returns its body as bounded plain text.
func (w *WebSearcher) FetchURL(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("invalid URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	maxChars := w.MaxChars
	if maxChars <= 0 {
		maxChars = 8000
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxChars)*4))
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	text := stripTags(string(body))
	if len(text) > maxChars {
		text = text[:maxChars] + "\n... (truncated)"
	}
	return text, nil
}

var (
	scriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</\s*(script|style)\s*>`)
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	blankPattern  = regexp.MustCompile(`\n{3,}`)
)

// stripTags reduces an HTML page to readable text. Crude but dependency-free
// and good enough for feeding search context to a model.
func stripTags(html string) string {
	text := scriptPattern.ReplaceAllString(html, "")
	text = tagPattern.ReplaceAllString(text, "\n")
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(text)
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return blankPattern.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}
