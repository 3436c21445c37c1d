// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docman/internal/citation"
	"github.com/pdiddy/docman/internal/httputil"
	"github.com/pdiddy/docman/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

const sampleBook = `{
  "author": "Brian W. Kernighan, Dennis M. Ritchie",
  "title": "The C Programming Language",
  "publisher": "Prentice Hall",
  "year": "1988"
}`

var _ citation.Lookup = (*Client)(nil)

func TestFetch(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       map[string]any
		wantErr    error
	}{
		{
			name:       "book record",
			statusCode: http.StatusOK,
			body:       sampleBook,
			want: map[string]any{
				"author":    "Brian W. Kernighan, Dennis M. Ritchie",
				"title":     "The C Programming Language",
				"publisher": "Prentice Hall",
				"year":      "1988",
			},
		},
		{
			name:       "numbers stay exact",
			statusCode: http.StatusOK,
			body:       `{"title": "T", "pages": 272}`,
			want:       map[string]any{"title": "T", "pages": json.Number("272")},
		},
		{
			name:       "not found",
			statusCode: http.StatusNotFound,
			body:       `{"error": "not found"}`,
			wantErr:    ErrStatus,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			body:       `oops`,
			wantErr:    ErrStatus,
		},
		{
			name:       "malformed JSON",
			statusCode: http.StatusOK,
			body:       `{"title": `,
			wantErr:    ErrInvalidResponse,
		},
		{
			name:       "array body",
			statusCode: http.StatusOK,
			body:       `["title"]`,
			wantErr:    ErrInvalidResponse,
		},
		{
			name:       "null body",
			statusCode: http.StatusOK,
			body:       `null`,
			wantErr:    ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			c := NewClient(ts.URL, WithHTTPClient(ts.Client()))
			got, err := c.Fetch(context.Background(), "/isbn/0131103628")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchSendsEncodedPathAndHeaders(t *testing.T) {
	var gotPath, gotAuth, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, `{"title": "Go"}`)
	}))
	defer ts.Close()

	page, err := citation.NewWebPage("go", "https://go.dev/doc?x=1", nil)
	require.NoError(t, err)

	c := NewClient(ts.URL+"/", WithHTTPClient(ts.Client()), WithAPIKey("secret"), WithUserAgent("docman-test/0.1"))
	line, err := page.Render(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, "[go] webpage: Go. Available at https://go.dev/doc?x=1", line)
	assert.Equal(t, "/title/https%3A%2F%2Fgo.dev%2Fdoc%3Fx%3D1", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "docman-test/0.1", gotUA)
}

func TestFetchNoRetryByDefault(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, WithHTTPClient(ts.Client())).Fetch(context.Background(), "/isbn/1")
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchRetriesWhenConfigured(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"title": "ok"}`)
	}))
	defer ts.Close()

	cfg := types.LookupConfig{BaseURL: ts.URL, MaxRetries: 2}
	got, err := NewFromConfig(cfg).Fetch(context.Background(), "/title/x")
	require.NoError(t, err)
	assert.Equal(t, "ok", got["title"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchRateLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"title": "ok"}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithHTTPClient(ts.Client()), WithRateLimit(20))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), "/title/x")
		require.NoError(t, err)
	}
	// Burst of one: the second and third calls each wait ~50ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestFetchRateLimitCancelled(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", WithRateLimit(0.001))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// The first token is available immediately; the second cannot arrive
	// before the deadline.
	_, _ = c.Fetch(ctx, "/title/x")
	_, err := c.Fetch(ctx, "/title/x")
	assert.Error(t, err)
}

func TestFetchNetworkError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err := c.Fetch(context.Background(), "/isbn/1")
	require.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := types.LookupConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 3 * time.Second, UserAgent: "ua"},
		BaseURL:    "http://lookup.test/",
		APIKey:     "k",
		MaxRetries: 1,
	}
	c := NewFromConfig(cfg)
	assert.Equal(t, "http://lookup.test", c.baseURL)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
	assert.Equal(t, "ua", c.userAgent)
	assert.Equal(t, "k", c.apiKey)
	assert.Equal(t, 1, c.maxRetries)
	assert.Nil(t, c.limiter)
}
