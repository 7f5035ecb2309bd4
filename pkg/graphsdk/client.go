package graphsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://graph.facebook.com"
	DefaultVersion = "v18.0"

	defaultTimeout = 10 * time.Second

	// Cap on how much of a response body is read.
	maxBodyBytes = 1 << 20
)

// Client talks to the Graph API.
type Client struct {
	BaseURL    string
	Version    string
	HTTPClient *http.Client

	// Limiter paces outgoing requests. Nil disables pacing.
	Limiter *rate.Limiter
}

// Option customises a Client created by NewClient.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.HTTPClient.Timeout = timeout
		}
	}
}

// WithRateLimit allows rps requests per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.Limiter = nil
			return
		}
		c.Limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// NewClient creates a Graph API client for the given base URL and API
// version, paced at 5 requests per second by default.
func NewClient(baseURL, version string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if version == "" {
		version = DefaultVersion
	}

	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Version: strings.Trim(version, "/"),
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		Limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// url builds the versioned endpoint URL for path.
func (c *Client) url(path string, query url.Values) string {
	u := c.BaseURL + "/" + c.Version + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get performs a GET and decodes a 200 response into target. Non-200
// responses become *APIError.
func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, query), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// The URL carries secrets, so only the cause is reported
		return fmt.Errorf("failed to send request to %s: %w", path, unwrapURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseErrorResponse(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// unwrapURLError strips *url.Error, whose message repeats the full request
// URL including query parameters.
func unwrapURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return urlErr.Err
	}
	return err
}
