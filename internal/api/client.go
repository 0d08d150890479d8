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

	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/config"
	"github.com/jmherbst/verifeed/internal/feed"
)

// Client talks to the card service's REST API.
type Client struct {
	baseURL            string
	userAgent          string
	fallbackConfidence float64
	http               *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:            strings.TrimRight(cfg.Server.BaseURL, "/"),
		userAgent:          cfg.Server.UserAgent,
		fallbackConfidence: cfg.Feed.FallbackConfidence,
		http:               &http.Client{Timeout: cfg.Server.HTTPTimeout},
	}
}

// PageQuery names the parameters of one cards-page request.
type PageQuery struct {
	Page   int
	Limit  int
	Sort   string
	Order  string
	Filter card.Verdict
	Search string
}

// Page is the decoded response of GET /api/cards.
type Page struct {
	Cards      []*card.Card
	Page       int
	HasMore    bool
	TotalCount int
	TotalPages int
}

type pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// FetchPage retrieves one page of cards.
func (c *Client) FetchPage(ctx context.Context, q PageQuery) (*Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}
	if q.Filter != "" {
		params.Set("filter", string(q.Filter))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	var resp struct {
		Cards      []*card.Card `json:"cards"`
		Pagination pagination   `json:"pagination"`
	}
	if err := c.get(ctx, "/api/cards?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	for _, item := range resp.Cards {
		item.Normalize(c.fallbackConfidence)
	}

	return &Page{
		Cards:      resp.Cards,
		Page:       resp.Pagination.Page,
		HasMore:    resp.Pagination.HasMore,
		TotalCount: resp.Pagination.TotalCount,
		TotalPages: resp.Pagination.TotalPages,
	}, nil
}

// GetCard retrieves one card with its untruncated body.
func (c *Client) GetCard(ctx context.Context, id string) (*card.Card, error) {
	if id == "" {
		return nil, fmt.Errorf("card id cannot be empty")
	}

	var resp struct {
		Card *card.Card `json:"card"`
	}
	if err := c.get(ctx, "/api/cards/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	if resp.Card == nil {
		return nil, fmt.Errorf("card %s: empty response", id)
	}
	resp.Card.Normalize(c.fallbackConfidence)
	return resp.Card, nil
}

// PredictText submits raw news text for classification and returns the
// resulting card.
func (c *Client) PredictText(ctx context.Context, text string) (*card.Card, error) {
	text = strings.TrimSpace(text)
	if len(text) < 10 {
		return nil, fmt.Errorf("text must be at least 10 characters long")
	}

	return c.submit(ctx, "/api/predict", map[string]string{"text": text})
}

// AnalyzeURL submits an article URL for fetching and classification.
func (c *Client) AnalyzeURL(ctx context.Context, articleURL string) (*card.Card, error) {
	if strings.TrimSpace(articleURL) == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}

	return c.submit(ctx, "/api/analyze-url", map[string]string{"url": articleURL})
}

func (c *Client) submit(ctx context.Context, path string, payload map[string]string) (*card.Card, error) {
	var resp struct {
		Success bool       `json:"success"`
		Card    *card.Card `json:"card"`
		Error   string     `json:"error"`
		Message string     `json:"message"`
	}
	if err := c.post(ctx, path, payload, &resp); err != nil {
		return nil, err
	}

	if !resp.Success || resp.Card == nil {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "prediction failed"
		}
		return nil, fmt.Errorf("%s", msg)
	}

	resp.Card.Normalize(c.fallbackConfidence)
	return resp.Card, nil
}

// VerdictStats aggregates confidence numbers for one predicted class.
type VerdictStats struct {
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	MinConfidence float64 `json:"min_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
}

// TagCount is one entry of the top-tags list.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats is the decoded response of GET /api/cards/stats.
type Stats struct {
	TotalPredictions int                     `json:"total_predictions"`
	ByVerdict        map[string]VerdictStats `json:"by_prediction"`
	TimeBased        map[string]int          `json:"time_based"`
	TopTags          []TagCount              `json:"top_tags"`
}

// FetchStats retrieves the aggregate dashboard counters.
func (c *Client) FetchStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.get(ctx, "/api/cards/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(req, v)
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil {
			if errBody.Error != "" {
				return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errBody.Error)
			}
			if errBody.Message != "" {
				return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errBody.Message)
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Fetch adapts a page request issued by a feed controller into an API
// call, mapping the view's sort key onto the server's sort parameters.
func (c *Client) Fetch(ctx context.Context, req feed.Request, limit int) (feed.PageResult, error) {
	q := PageQuery{
		Page:   req.Page,
		Limit:  limit,
		Filter: req.Query.Filter,
		Search: req.Query.Search,
	}

	switch req.Query.Sort {
	case feed.SortByConfidence:
		q.Sort, q.Order = "confidence", "desc"
	case feed.SortByAuthor:
		q.Sort, q.Order = "username", "asc"
	default:
		q.Sort, q.Order = "timestamp", "desc"
	}

	page, err := c.FetchPage(ctx, q)
	if err != nil {
		return feed.PageResult{}, err
	}
	return feed.PageResult{Cards: page.Cards, HasMore: page.HasMore}, nil
}
