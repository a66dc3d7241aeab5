// Package fetch retrieves the form export over HTTP.
//
// One request is made per call. There are no retries and no caching; a
// non-success status is reported as koboload.ErrFetchFailed and the caller
// is expected to stop before touching the database.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vvka-141/koboload/pkg/koboload"
)

// Client performs authenticated retrievals of the export.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds a single retrieval. Zero leaves it unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.SetTransport(rt)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.http.SetHeader("User-Agent", ua)
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{http: resty.New()}
	c.http.SetHeader("User-Agent", koboload.ApplicationName)
	c.http.SetHeader("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")
	c.http.SetRetryCount(0)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch issues one GET to url with HTTP basic authentication.
// On a non-2xx status the returned FetchResult is still populated so the
// caller can report it, and the error wraps koboload.ErrFetchFailed.
func (c *Client) Fetch(ctx context.Context, url, username, password string) (*koboload.FetchResult, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(username, password).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w: %w", redactURL(url), redactError(err), koboload.ErrFetchFailed)
	}

	result := &koboload.FetchResult{
		StatusCode:  res.StatusCode(),
		Status:      res.Status(),
		ContentType: res.Header().Get("Content-Type"),
		Body:        res.Body(),
	}

	if !res.IsSuccess() {
		return result, fmt.Errorf("status code %d from %s: %w", res.StatusCode(), redactURL(url), koboload.ErrFetchFailed)
	}

	return result, nil
}

var _ koboload.Fetcher = (*Client)(nil)
