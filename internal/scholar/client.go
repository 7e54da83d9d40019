package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/scholarcsv/scholar-harvest-service/internal/domain"
)

const (
	// DefaultBaseURL is the default SerpAPI endpoint.
	DefaultBaseURL = "https://serpapi.com/search"

	// DefaultRateLimit is the default rate limit in requests per second.
	// SerpAPI plans are quota based, so the client stays deliberately slow.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// engineName is the SerpAPI engine queried by this client.
	engineName = "google_scholar"

	// sourceName is the human-readable name for this source.
	sourceName = "SerpAPI"

	// maxResponseBody limits how much of a response body is read (10MB).
	maxResponseBody = 10 << 20
)

// Config contains configuration options for the SerpAPI client.
type Config struct {
	// BaseURL is the search endpoint URL.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int
}

// Client fetches Google Scholar result pages through SerpAPI. The API key is
// supplied per call rather than held by the client because every harvest
// request carries its own caller-provided credential.
type Client struct {
	httpClient *HTTPClient
	config     Config
}

// NewClient creates a new SerpAPI Google Scholar client.
// If httpClient is nil, a new one is created from the configuration settings.
func NewClient(cfg Config, httpClient *HTTPClient) *Client {
	// Apply defaults
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	if httpClient == nil {
		httpClient = NewHTTPClient(HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// FetchPage retrieves one page of Google Scholar results starting at the
// given offset. An HTTP 401 is reported as an error wrapping
// domain.ErrUnauthorized so callers can distinguish a rejected credential
// from every other upstream failure. A logical error field in an otherwise
// successful response is also returned as an error.
func (c *Client) FetchPage(ctx context.Context, apiKey, query string, start int) (*SearchResponse, error) {
	pageURL, err := c.buildPageURL(apiKey, query, start)
	if err != nil {
		return nil, fmt.Errorf("building page URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("executing request: %w", domain.ErrCancelled)
		}
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if searchResp.Error != "" {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, searchResp.Error, nil)
	}

	return &searchResp, nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// buildPageURL constructs the search URL with query parameters.
func (c *Client) buildPageURL(apiKey, query string, start int) (string, error) {
	pageURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	q := pageURL.Query()
	q.Set("engine", engineName)
	q.Set("q", query)
	q.Set("hl", "en")
	q.Set("start", strconv.Itoa(start))
	q.Set("api_key", apiKey)

	pageURL.RawQuery = q.Encode()
	return pageURL.String(), nil
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read the error body (limit to 1MB to prevent resource exhaustion)
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	message := string(body)
	if readErr != nil {
		message = "failed to read error response"
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "invalid API key", domain.ErrUnauthorized)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewRateLimitError(sourceName, retryAfter(resp))
	}

	// Try to parse as a JSON error body
	var errResp SearchResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
}

// retryAfter parses the Retry-After header as a delay in seconds. Zero means
// the upstream gave no usable hint.
func retryAfter(resp *http.Response) time.Duration {
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
