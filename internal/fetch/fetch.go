// Package fetch paces outbound HTTP requests: a politeness delay per
// source, a timeout on every call, and a retry for transient failures.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/newsriver/internal/retry"
)

// Client wraps an http.Client with per-source rate limiters.
type Client struct {
	http      *http.Client
	userAgent string
	retryCfg  retry.RetryConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(timeout time.Duration, userAgent string, retryCfg retry.RetryConfig) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		retryCfg:  retryCfg,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// SetDelay registers the politeness delay for a source. Zero means no pacing.
func (c *Client) SetDelay(source string, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if delay <= 0 {
		delete(c.limiters, source)
		return
	}
	c.limiters[source] = rate.NewLimiter(rate.Every(delay), 1)
}

func (c *Client) limiter(source string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiters[source]
}

// Get fetches a URL on behalf of a source, waiting out the source's
// politeness delay first. Non-2xx responses are errors.
func (c *Client) Get(ctx context.Context, source, url string) ([]byte, error) {
	if lim := c.limiter(source); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body []byte
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("http status %d for %s", resp.StatusCode, url)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// HTTPClient exposes the underlying client for libraries that fetch themselves.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// UserAgent returns the identifier sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}
