package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tracuu/internal/logging"
	"tracuu/internal/services"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 5
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 60 * time.Second
	defaultJitterMax   = 1500 * time.Millisecond

	maxBodyBytes   = 4 << 20
	snippetLength  = 200
	acceptJSONAny  = "application/json,*/*;q=0.8"
)

// StatusError reports a non-success HTTP status along with any
// server-supplied retry hint and a short body excerpt for diagnostics.
type StatusError struct {
	Status     int
	RetryAfter time.Duration
	Snippet    string
}

func (e *StatusError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Snippet)
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// Client issues JSON GET requests with a bounded retry budget. Rate
// limits honor the server's Retry-After hint when present; other
// retryable faults wait an exponentially growing delay with jitter,
// capped at a configured ceiling.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	component   string
	userAgent   string
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	// test seams
	sleeper func(time.Duration)
	jitter  func() time.Duration
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds each individual request attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header presented on every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(userAgent)
	}
}

// WithMaxAttempts sets the total attempt budget, first try included.
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithMaxDelay caps the wait between attempts.
func WithMaxDelay(maxDelay time.Duration) Option {
	return func(c *Client) {
		if maxDelay > 0 {
			c.maxDelay = maxDelay
		}
	}
}

// WithSleeper replaces the blocking wait between attempts.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// New constructs a Client for the named component.
func New(component string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logging.NewComponentLogger(logger, component),
		component:   component,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON issues a GET request and decodes the JSON response body into
// out. Rate limits, server faults, malformed bodies, and transport
// errors are retried with backoff until the attempt budget runs out;
// every other fault returns immediately.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.getJSONOnce(ctx, rawURL, out)
		if err == nil {
			return nil
		}
		lastErr = err

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return err
		}
		c.logger.Debug("retrying request",
			logging.String("url", rawURL),
			logging.Int("attempt", attempt),
			logging.Int("attempts", attempts),
			logging.Duration("wait", delay),
			logging.Error(err),
		)
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) getJSONOnce(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, c.component, "request", "build request", err)
	}
	req.Header.Set("Accept", acceptJSONAny)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return services.Wrap(services.ErrNetworkFault, c.component, "request", "execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return services.Wrap(services.ErrNetworkFault, c.component, "request", "read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{Status: resp.StatusCode, Snippet: bodySnippet(body)}
		if resp.StatusCode == http.StatusTooManyRequests {
			statusErr.RetryAfter, _ = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return services.Wrap(statusMarker(resp.StatusCode), c.component, "request", "unexpected response status", statusErr)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrServerFault, c.component, "decode",
			fmt.Sprintf("malformed json body[:%d]=%q", snippetLength, bodySnippet(body)), err)
	}
	return nil
}

func statusMarker(status int) error {
	switch {
	case status == http.StatusNotFound:
		return services.ErrNotFound
	case status == http.StatusTooManyRequests:
		return services.ErrRateLimited
	case status == http.StatusForbidden:
		return services.ErrBlocked
	case status >= http.StatusInternalServerError:
		return services.ErrServerFault
	default:
		// Unexpected 4xx from these endpoints behaves like a transient
		// server problem more often than a caller bug.
		return services.ErrServerFault
	}
}

func (c *Client) retryAttempts() int {
	if c == nil || c.maxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return c.maxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}
	if err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if !services.Retryable(err) {
		return 0, false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return c.cappedDelay(statusErr.RetryAfter), true
	}
	return c.backoffDelay(attempt), true
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.baseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	maxDelay := c.maxDelayOrDefault()

	retryCount := attempt // attempt is 1-based, delay is for the next attempt.
	if retryCount <= 0 {
		retryCount = 1
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < retryCount; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.cappedDelay(delay + c.jitterDelay())
}

func (c *Client) jitterDelay() time.Duration {
	if c != nil && c.jitter != nil {
		return c.jitter()
	}
	return time.Duration(rand.Float64() * float64(defaultJitterMax))
}

func (c *Client) cappedDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := c.maxDelayOrDefault()
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) maxDelayOrDefault() time.Duration {
	if c == nil || c.maxDelay <= 0 {
		return defaultMaxDelay
	}
	return c.maxDelay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func bodySnippet(body []byte) string {
	s := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, string(body))
	if len(s) > snippetLength {
		return s[:snippetLength]
	}
	return s
}
