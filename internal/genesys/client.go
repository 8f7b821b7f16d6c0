package genesys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Retry and backoff tuning.
const (
	maxAttempts    = 5
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 8 * time.Second
	backoffFactor  = 1.8
	maxRetryDelay  = 60 * time.Second
	jitterCeiling  = 200 * time.Millisecond
	userAgent      = "extaudit/0.1"
	acceptJSONType = "application/json"
)

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// (genesys package) per Go convention "accept interfaces, return structs".
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource returning a fixed bearer token, for tokens
// supplied directly via environment or flag.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", fmt.Errorf("genesys: empty access token")
	}

	return string(t), nil
}

// Client is an HTTP client for the Genesys Cloud platform API. It handles
// request construction, bearer authentication, rate-limit tracking with
// preemptive throttling, retry with exponential backoff, and error
// classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger

	// rate is the last-observed rate-limit telemetry. The client threads
	// this single value through each call; access is strictly sequential
	// within an audit run, so no locking is needed.
	rate RateLimitState

	// sleepFunc is called for throttle and retry waits. Defaults to
	// timeSleep. Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a platform API client. baseURL is the regional API
// endpoint, e.g. "https://api.mypurecloud.com".
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		rate:       RateLimitState{Limit: Unknown, Remaining: Unknown},
		sleepFunc:  timeSleep,
	}
}

// BaseURL returns the API endpoint the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RateLimit returns the last-observed rate-limit telemetry.
func (c *Client) RateLimit() RateLimitState {
	return c.rate
}

// Do executes an HTTP request against the platform API. The path is appended
// to the client's base URL. For non-nil bodies, Content-Type is set to
// application/json. The caller is responsible for closing the response body
// on success.
//
// Responses with status 429 or 5xx are retried with exponential backoff,
// honoring Retry-After when present. Any other failure status returns an
// *APIError immediately, carrying the response body as diagnostic context.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	url := c.baseURL + path
	backoff := baseBackoff

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("genesys: request canceled: %w", err)
		}

		if err := c.preThrottle(ctx); err != nil {
			return nil, fmt.Errorf("genesys: request canceled: %w", err)
		}

		resp, err := c.doOnce(ctx, method, url, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("genesys: request canceled: %w", ctx.Err())
			}

			return nil, fmt.Errorf("genesys: %s %s: %w", method, path, err)
		}

		c.rate = captureRateLimit(c.rate, resp.Header, time.Now())

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}

		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Int("attempt", attempt),
			slog.Bool("retryable", isRetryable(resp.StatusCode)),
		)

		if !isRetryable(resp.StatusCode) || attempt == maxAttempts {
			return nil, apiErr
		}

		lastErr = apiErr

		delay := retryDelay(resp, backoff)
		if err := c.sleepFunc(ctx, delay); err != nil {
			return nil, fmt.Errorf("genesys: request canceled: %w", err)
		}

		backoff = nextBackoff(backoff)
	}

	return nil, lastErr
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", acceptJSONType)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", acceptJSONType)
	}

	return c.httpClient.Do(req)
}

// preThrottle sleeps before a request when the remaining rate-limit budget
// is nearly exhausted, waiting out the reset window plus a small margin.
func (c *Client) preThrottle(ctx context.Context) error {
	delay := c.rate.throttleDelay(time.Now())
	if delay <= 0 {
		return nil
	}

	c.logger.Warn("rate limit low, throttling before request",
		slog.Int("remaining", c.rate.Remaining),
		slog.Int("limit", c.rate.Limit),
		slog.Time("reset_at", c.rate.ResetAt),
		slog.Duration("delay", delay),
	)

	return c.sleepFunc(ctx, delay)
}

// retryDelay computes the wait before the next attempt: the larger of the
// Retry-After hint and the current backoff floor, capped at maxRetryDelay,
// plus 0-200ms of random jitter.
func retryDelay(resp *http.Response, backoff time.Duration) time.Duration {
	delay := backoff
	if ra, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok && ra > delay {
		delay = ra
	}

	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	return delay + time.Duration(rand.Int64N(int64(jitterCeiling))) //nolint:gosec // jitter does not need crypto rand
}

// nextBackoff advances the exponential backoff, capped at maxBackoff.
func nextBackoff(backoff time.Duration) time.Duration {
	next := time.Duration(float64(backoff) * backoffFactor)
	if next > maxBackoff {
		next = maxBackoff
	}

	return next
}

// parseRetryAfter parses a Retry-After header value, which is either a
// delay in seconds or an HTTP date.
func parseRetryAfter(s string, now time.Time) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds < 0 {
			return 0, false
		}

		return time.Duration(seconds) * time.Second, true
	}

	if at, err := http.ParseTime(s); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}

		return d, true
	}

	return 0, false
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// doJSON executes a request and decodes the JSON response body into T.
// A non-nil body value is serialized as JSON.
func doJSON[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var payload []byte
	if body != nil {
		var err error

		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("genesys: encoding %s %s body: %w", method, path, err)
		}
	}

	resp, err := c.Do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("genesys: decoding %s %s response: %w", method, path, err)
	}

	return &out, nil
}
