// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lookup is the HTTP client for the remote lookup service that
// supplies book and webpage details.
//
//	GET {base}/isbn/{isbn}  -> {"author", "title", "publisher", "year"}
//	GET {base}/title/{url}  -> {"title"}
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/docman/internal/httputil"
	"github.com/pdiddy/docman/pkg/types"
)

var (
	// ErrStatus indicates the service answered with something other than HTTP 200.
	ErrStatus = errors.New("lookup service returned non-200 status")

	// ErrInvalidResponse indicates the body was not a JSON object.
	ErrInvalidResponse = errors.New("invalid response from lookup service")
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 1 << 20

// Client fetches records from the lookup service. It satisfies
// citation.Lookup.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	maxRetries int
	limiter    *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxRetries enables retries on HTTP 429.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRateLimit caps requests per second. Zero or less removes the cap.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a Client from cfg.
func NewFromConfig(cfg types.LookupConfig) *Client {
	return NewClient(cfg.BaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithAPIKey(cfg.APIKey),
		WithUserAgent(cfg.UserAgent),
		WithMaxRetries(cfg.MaxRetries),
		WithRateLimit(cfg.RateLimit),
	)
}

// Fetch issues GET {base}{resource} and decodes the JSON object it returns.
// resource must already be percent-encoded.
func (c *Client) Fetch(ctx context.Context, resource string) (map[string]any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+resource, nil)
	if err != nil {
		return nil, fmt.Errorf("creating lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("lookup request %s: %w", resource, err)
	}
	defer resp.Body.Close()

	slog.Debug("lookup", "resource", resource, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: HTTP %d for %s", ErrStatus, resp.StatusCode, resource)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading lookup response: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidResponse, resource, err)
	}
	rec, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s: body is %T, want object", ErrInvalidResponse, resource, v)
	}
	return rec, nil
}
