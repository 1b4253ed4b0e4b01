// Package fetch retrieves program pages over HTTP, with request
// pacing, retry with backoff, and an optional headless-browser
// renderer for pages that assemble their content in script.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/progscout/progscout/internal/utils"
)

// Fetcher retrieves the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
	Close() error
}

// maxBodySize caps how much of a response is read. Program pages are
// small; anything larger is not worth extracting from.
const maxBodySize = 8 << 20

// ClientConfig configures the HTTP fetcher.
type ClientConfig struct {
	Timeout       time.Duration
	UserAgent     string
	RetryAttempts int
	RetryDelay    time.Duration
	// RatePerSecond caps outgoing requests; zero disables pacing.
	RatePerSecond float64
	RateBurst     int
	Logger        utils.Logger
}

// Client is an HTTP page fetcher.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	attempts   int
	retryDelay time.Duration
	logger     utils.Logger
}

// NewClient creates an HTTP fetcher.
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "ProgScout/1.0 (+https://github.com/progscout/progscout)"
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}
	if config.Logger == nil {
		config.Logger = utils.NewLogger()
	}

	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:  config.UserAgent,
		limiter:    rate.NewLimiter(limit, config.RateBurst),
		attempts:   config.RetryAttempts,
		retryDelay: config.RetryDelay,
		logger:     config.Logger,
	}
}

// Fetch retrieves a page, retrying transient failures with
// exponential backoff.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	if _, err := url.ParseRequestURI(pageURL); err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", pageURL, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		html, retryable, err := c.fetchOnce(ctx, pageURL)
		if err == nil {
			return html, nil
		}
		lastErr = err
		if !retryable || attempt == c.attempts {
			break
		}

		c.logger.WithFields(map[string]interface{}{
			"url":     pageURL,
			"attempt": attempt + 1,
		}).Warnf("fetch failed, retrying: %v", err)

		select {
		case <-time.After(backoff(c.retryDelay, attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (c *Client) fetchOnce(ctx context.Context, pageURL string) (html string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", retryableStatus(resp.StatusCode),
			fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", true, fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), false, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff returns the delay before the given retry attempt:
// exponential with jitter, capped at 30 seconds.
func backoff(base time.Duration, attempt int) time.Duration {
	delay := base * time.Duration(1<<uint(attempt))
	delay += time.Duration(rand.Int63n(int64(base)))
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
