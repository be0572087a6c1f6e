// Package dart is a small OpenDART API client.
package dart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/corpradar/backend/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the OpenDART API.
	DefaultBaseURL = "https://opendart.fss.or.kr/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default request rate (requests per second).
	DefaultRateLimit = 5

	statementPath = "/fnlttSinglAcntAll.json"
)

// APIError is returned for non-200 responses.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dart %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Client calls the OpenDART API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
	limiter    *rate.Limiter
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// NewClient creates a new OpenDART client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchStatement returns the raw full financial statement response for one
// company, business year, report code and statement division. The body is
// returned as-is; a non-"000" DART status is logged and left to the caller.
func (c *Client) FetchStatement(ctx context.Context, corpCode string, year int, code models.ReportCode, fsDiv models.FsDiv) ([]byte, error) {
	params := url.Values{}
	params.Set("corp_code", corpCode)
	params.Set("bsns_year", strconv.Itoa(year))
	params.Set("reprt_code", string(code))
	params.Set("fs_div", string(fsDiv))

	body, err := c.get(ctx, statementPath, params)
	if err != nil {
		return nil, err
	}

	if status := gjson.GetBytes(body, "status"); status.Exists() && status.String() != "000" {
		c.log.Warn("dart api returned non-ok status",
			slog.String("corp_code", corpCode),
			slog.Int("year", year),
			slog.String("reprt_code", string(code)),
			slog.String("status", status.String()),
			slog.String("message", gjson.GetBytes(body, "message").String()),
		)
	}

	return body, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("dart rate limit wait: %w", err)
	}

	params.Set("crtfc_key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create dart request: %w", err)
	}

	c.log.Debug("dart api request", slog.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dart request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read dart response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	return body, nil
}

// SplitCompanyCode classifies a company identifier: an 8-digit DART corp code
// or a 6-digit exchange stock code. Anything else yields two empty strings.
func SplitCompanyCode(raw string) (corpCode, stockCode string) {
	s := strings.TrimSpace(raw)
	if !isDigits(s) {
		return "", ""
	}
	switch len(s) {
	case 8:
		return s, ""
	case 6:
		return "", s
	default:
		return "", ""
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
