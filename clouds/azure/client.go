// Package azure - Shared REST client for Azure orchestration services
// Handles bearer authentication, client-side rate limiting and retries.
// Backends build on it and own only URL layout and wire conversion.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pipeline-cost/internal/errors"
)

// ClientConfig configures the REST client
type ClientConfig struct {
	// RequestsPerSecond limits outgoing calls; 0 disables limiting
	RequestsPerSecond float64

	// Burst is the limiter burst size
	Burst int

	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// HTTPTimeout bounds a single call
	HTTPTimeout time.Duration

	// BaseBackoff is the first retry delay; it doubles per attempt
	BaseBackoff time.Duration

	// MaxBackoff caps the retry delay, including Retry-After hints
	MaxBackoff time.Duration

	// UserAgent is sent with every request
	UserAgent string
}

// DefaultClientConfig returns production defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestsPerSecond: 5,
		Burst:             5,
		MaxRetries:        4,
		HTTPTimeout:       60 * time.Second,
		BaseBackoff:       500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		UserAgent:         "pipeline-cost",
	}
}

// Client posts JSON queries to an Azure endpoint
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenSource
	config     ClientConfig
	logger     *zap.Logger
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client authenticating with tokens
func NewClient(tokens TokenSource, config ClientConfig, opts ...ClientOption) *Client {
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultClientConfig().MaxBackoff
	}

	c := &Client{
		httpClient: &http.Client{Timeout: config.HTTPTimeout},
		limiter:    rate.NewLimiter(limit, burst),
		tokens:     tokens,
		config:     config,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON sends body to url and decodes the JSON response into out.
// Throttling (429) and server errors are retried with exponential backoff,
// honoring Retry-After when the service sends one.
func (c *Client) PostJSON(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.TypeInternal, "failed to encode request", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt, lastErr)
			c.logger.Debug("retrying request",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retry, err := c.do(ctx, url, payload, out)
		if err == nil {
			return nil
		}
		if !retry || ctx.Err() != nil {
			return err
		}
		lastErr = err
	}

	return errors.Wrapf(errors.TypeNetwork, lastErr, "giving up after %d attempts", c.config.MaxRetries+1).
		WithContext("url", url)
}

// retryAfterError carries the service's Retry-After hint
type retryAfterError struct {
	err   error
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

func (c *Client) do(ctx context.Context, url string, payload []byte, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, errors.Wrap(errors.TypeInput, "invalid request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return false, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, errors.Wrap(errors.TypeNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, errors.Wrap(errors.TypeNetwork, "failed to read response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		statusErr := errors.Newf(errors.TypeNetwork, "%s: %s", resp.Status, snippet(data)).
			WithContext("status", resp.StatusCode)
		return true, &retryAfterError{err: statusErr, after: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, errors.Newf(errors.TypeUpstream, "%s: %s", resp.Status, snippet(data)).
			WithContext("status", resp.StatusCode)
	}

	if out == nil || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Wrap(errors.TypeUpstream, "failed to decode response", err)
	}
	return false, nil
}

func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	var ra *retryAfterError
	if lastErr != nil && asRetryAfter(lastErr, &ra) && ra.after >= 0 {
		return min(ra.after, c.config.MaxBackoff)
	}
	delay := time.Duration(float64(c.config.BaseBackoff) * math.Pow(2, float64(attempt-1)))
	return min(delay, c.config.MaxBackoff)
}

func asRetryAfter(err error, target **retryAfterError) bool {
	ra, ok := err.(*retryAfterError)
	if ok {
		*target = ra
	}
	return ok
}

// parseRetryAfter reads delta-seconds or an HTTP date; -1 means absent
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return -1
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(time.Until(t), 0)
	}
	return -1
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func snippet(data []byte) string {
	const limit = 512
	s := string(bytes.TrimSpace(data))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
