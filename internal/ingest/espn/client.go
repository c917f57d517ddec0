package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	BaseURL       = "https://site.api.espn.com/apis/site/v2/sports"
	BasketballNBA = "basketball/nba"

	// ESPN rejects requests that do not look like a browser.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	requestTimeout = 20 * time.Second
	summaryKey     = "espn:summary:"
)

// Cache is the subset of cache.RedisCache the client needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Client handles ESPN API requests
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
}

// New creates a new ESPN API client with a custom base URL
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	log.Printf("[espn-client] New() called with baseURL: %s", baseURL)
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// NewClient creates a new ESPN API client with default settings
func NewClient() *Client {
	return New(BaseURL)
}

// WithCache enables caching of final-game summaries. A nil cache disables it.
func (c *Client) WithCache(cache Cache, ttl time.Duration) *Client {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

// FetchScoreboard fetches games for a specific date
// If date is zero, fetches ESPN's "today" (includes games within ~24 hours)
func (c *Client) FetchScoreboard(ctx context.Context, date time.Time) (map[string]interface{}, error) {
	var url string
	if date.IsZero() {
		url = fmt.Sprintf("%s/%s/scoreboard", c.baseURL, BasketballNBA)
	} else {
		url = fmt.Sprintf("%s/%s/scoreboard?dates=%s", c.baseURL, BasketballNBA, date.Format("20060102"))
	}

	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return decode(body)
}

// FetchSummary fetches the game summary with box score. Summaries of completed
// games never change, so they are served from the cache when one is set.
func (c *Client) FetchSummary(ctx context.Context, eventID string) (map[string]interface{}, error) {
	key := summaryKey + eventID
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, key); err == nil && cached != "" {
			if result, err := decode([]byte(cached)); err == nil {
				log.Printf("[espn-client] cache hit for summary %s", eventID)
				return result, nil
			}
		}
	}

	url := fmt.Sprintf("%s/%s/summary?event=%s", c.baseURL, BasketballNBA, eventID)
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	result, err := decode(body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && summaryCompleted(result) {
		if err := c.cache.Set(ctx, key, string(body), c.cacheTTL); err != nil {
			log.Printf("[espn-client] ⚠️  cache set %s: %v", key, err)
		}
	}
	return result, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	log.Printf("[espn-client] GET %s", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ESPN returned %d for %s: %s", resp.StatusCode, url, preview(body))
	}

	// Check if we got HTML error page
	if len(body) > 0 && body[0] == '<' {
		return nil, fmt.Errorf("ESPN returned HTML error page: %s", preview(body))
	}

	return body, nil
}

func decode(body []byte) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w (body: %s)", err, preview(body))
	}
	if result == nil {
		return nil, fmt.Errorf("decoding response: not an object (body: %s)", preview(body))
	}
	return result, nil
}

// summaryCompleted reads header.competitions[0].status.type.completed.
func summaryCompleted(summary map[string]interface{}) bool {
	competitions := extractArray(extractMap(summary, "header"), "competitions")
	if len(competitions) == 0 {
		return false
	}
	comp, ok := competitions[0].(map[string]interface{})
	if !ok {
		return false
	}
	completed, _ := extractMap(extractMap(comp, "status"), "type")["completed"].(bool)
	return completed
}

func preview(b []byte) string {
	return string(b[:min(len(b), 200)])
}
