package docstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to a docstore REST server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client. Redirects are still not
// followed unless hc sets its own CheckRedirect.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		cp := *hc
		if cp.CheckRedirect == nil {
			cp.CheckRedirect = noRedirect
		}
		c.httpClient = &cp
	}
}

// WithBackoff sets the base delay between retries. It doubles on every attempt.
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) { c.backoff = d }
}

func NewClient(baseURL, token string, rps int, maxRetries int, opts ...ClientOption) *Client {
	if rps <= 0 {
		rps = 10
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout:       15 * time.Second,
			CheckRedirect: noRedirect,
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// noRedirect hands 3xx responses back to attempt, which treats them as errors.
func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func (c *Client) documentURL(collection, key string) string {
	return fmt.Sprintf("%s/v1/collections/%s/documents/%s",
		c.baseURL, url.PathEscape(collection), url.PathEscape(key))
}

// Get fetches a document. Missing documents yield ErrNotFound.
func (c *Client) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := validKey(collection, key); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, c.documentURL(collection, key), nil)
}

// Put creates or replaces a document.
func (c *Client) Put(ctx context.Context, collection, key string, doc []byte) error {
	if err := validKey(collection, key); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPut, c.documentURL(collection, key), doc)
	return err
}

// Delete removes a document. The server treats missing documents as deleted.
func (c *Client) Delete(ctx context.Context, collection, key string) error {
	if err := validKey(collection, key); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodDelete, c.documentURL(collection, key), nil)
	return err
}

func (c *Client) do(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: base, 2*base, 4*base...
			backoff := c.backoff * time.Duration(1<<uint(i-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		data, retry, err := c.attempt(ctx, method, u, body)
		if err == nil {
			return data, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, u string, body []byte) ([]byte, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, false, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return data, false, nil
}
