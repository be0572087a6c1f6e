// Package naver wraps the Naver news search API.
package naver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/corpradar/backend/internal/models"
)

const (
	DefaultBaseURL = "https://openapi.naver.com/v1/search/news.json"
	DefaultTimeout = 10 * time.Second

	// MaxDisplay is the largest page size the API accepts.
	MaxDisplay = 100
	// MaxStart is the largest start offset the API accepts.
	MaxStart = 1000

	SortSim  = "sim"
	SortDate = "date"
)

var ErrMissingQuery = errors.New("naver: query is required")

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("naver search: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchParams mirrors the query parameters of the news search endpoint.
// Zero Display and Start fall back to the API defaults (10 and 1).
type SearchParams struct {
	Query   string
	Display int
	Start   int
	Sort    string
}

type searchResponse struct {
	Total   int                  `json:"total"`
	Start   int                  `json:"start"`
	Display int                  `json:"display"`
	Items   []models.RawNewsItem `json:"items"`
}

// Search returns the raw items of one result page.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]models.RawNewsItem, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, ErrMissingQuery
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(clamp(p.Display, 10, 1, MaxDisplay)))
	params.Set("start", strconv.Itoa(clamp(p.Start, 1, 1, MaxStart)))
	params.Set("sort", sortParam(p.Sort))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create naver request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("naver request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode naver response: %w", err)
	}
	if out.Items == nil {
		return []models.RawNewsItem{}, nil
	}
	return out.Items, nil
}

func sortParam(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), SortDate) {
		return SortDate
	}
	return SortSim
}

func clamp(v, def, lo, hi int) int {
	if v <= 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
