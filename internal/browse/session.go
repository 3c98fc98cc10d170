package browse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tracuu/internal/logging"
	"tracuu/internal/operator"
	"tracuu/internal/services"
)

const (
	componentSession = "session"

	defaultPageTimeout = 30 * time.Second
	maxPageBytes       = 8 << 20

	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "vi,en-US;q=0.8,en;q=0.6"
)

// Page is one fetched document plus the final URL that produced it,
// after any redirects.
type Page struct {
	URL string
	Doc *goquery.Document
}

// Config describes session behavior.
type Config struct {
	UserAgent  string
	CookieFile string
	Timeout    time.Duration
}

// Session is the single shared browser-like capability. It owns a
// cookie jar persisted across runs and serializes all page loads: only
// one caller may drive the session at a time. A detected bot-challenge
// suspends the calling row on the operator gate, then re-evaluates the
// same fetch exactly once.
type Session struct {
	mu     sync.Mutex
	client *http.Client
	logger *slog.Logger

	userAgent  string
	cookiePath string
	timeout    time.Duration

	gate          operator.Gate
	challengeHook func(ctx context.Context, pageURL string)

	hosts map[string]struct{}
}

// Option adjusts session construction.
type Option func(*Session)

// WithGate installs the operator gate used when a challenge appears.
// Without a gate every challenge is immediately a blocked fetch.
func WithGate(gate operator.Gate) Option {
	return func(s *Session) {
		s.gate = gate
	}
}

// WithChallengeHook registers a callback fired when a challenge is
// detected, before the operator pause begins.
func WithChallengeHook(hook func(ctx context.Context, pageURL string)) Option {
	return func(s *Session) {
		s.challengeHook = hook
	}
}

// WithHTTPClient substitutes the underlying HTTP client. The session
// still installs its own cookie jar.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		if client != nil {
			s.client = client
		}
	}
}

// NewSession builds the shared session and loads any persisted cookies.
func NewSession(cfg Config, logger *slog.Logger, opts ...Option) (*Session, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, componentSession, "new", "create cookie jar", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}

	s := &Session{
		client:     &http.Client{Jar: jar},
		logger:     logging.NewComponentLogger(logger, componentSession),
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		cookiePath: strings.TrimSpace(cfg.CookieFile),
		timeout:    timeout,
		hosts:      map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client.Jar == nil {
		s.client.Jar = jar
	}

	if err := s.loadCookies(); err != nil {
		s.logger.Warn("cookie file unreadable; starting with an empty jar",
			logging.String("path", s.cookiePath),
			logging.Error(err),
		)
	}
	return s, nil
}

// FetchPage loads one page through the exclusive session, transparently
// handling the challenge pause, and parses the body.
func (s *Session) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchLocked(ctx, rawURL)
}

// WarmUp visits the given page once and then always waits for operator
// acknowledgment, giving a human the chance to verify the session before
// the first row runs.
func (s *Session) WarmUp(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.fetchLocked(ctx, rawURL); err != nil {
		return err
	}
	if s.gate != nil {
		reason := fmt.Sprintf("warm-up: verify the session at %s is usable", rawURL)
		if err := s.gate.Confirm(ctx, reason); err != nil {
			return err
		}
	}
	s.saveCookiesLocked()
	return nil
}

// Close persists the cookie jar.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCookies()
}

func (s *Session) fetchLocked(ctx context.Context, rawURL string) (*Page, error) {
	finalURL, html, status, err := s.getOnce(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if IsChallenge(html) {
		if s.gate == nil {
			return nil, services.Wrap(services.ErrBlocked, componentSession, "fetch", "challenge detected at "+rawURL, nil)
		}
		s.logger.Warn("challenge detected; pausing for operator",
			logging.String("url", rawURL),
			logging.Alert("challenge"),
		)
		if s.challengeHook != nil {
			s.challengeHook(ctx, rawURL)
		}
		if err := s.gate.Confirm(ctx, "challenge detected at "+rawURL); err != nil {
			return nil, err
		}

		finalURL, html, status, err = s.getOnce(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if IsChallenge(html) {
			return nil, services.Wrap(services.ErrBlocked, componentSession, "fetch", "challenge still present after operator pause", nil)
		}
		s.saveCookiesLocked()
	}

	if marker := pageStatusMarker(status); marker != nil {
		return nil, services.Wrap(marker, componentSession, "fetch",
			fmt.Sprintf("status %d loading %s", status, rawURL), nil)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, componentSession, "fetch", "parse page", err)
	}
	return &Page{URL: finalURL, Doc: doc}, nil
}

func (s *Session) getOnce(ctx context.Context, rawURL string) (string, string, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", 0, services.Wrap(services.ErrValidation, componentSession, "fetch", "build request", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", 0, ctx.Err()
		}
		timedOut := errors.Is(err, context.DeadlineExceeded)
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			timedOut = true
		}
		if timedOut {
			return "", "", 0, services.Wrap(services.ErrTimeout, componentSession, "fetch",
				fmt.Sprintf("page load exceeded %s", s.timeout), err)
		}
		return "", "", 0, services.Wrap(services.ErrNetworkFault, componentSession, "fetch", "execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", "", 0, services.Wrap(services.ErrNetworkFault, componentSession, "fetch", "read page body", err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
		s.hosts[resp.Request.URL.Host] = struct{}{}
	}
	if req.URL != nil {
		s.hosts[req.URL.Host] = struct{}{}
	}

	return finalURL, string(body), resp.StatusCode, nil
}

// pageStatusMarker classifies a non-success page status. Challenge
// interstitials ship with 403/503 and are handled before this check.
func pageStatusMarker(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return services.ErrNotFound
	case status == http.StatusTooManyRequests:
		return services.ErrRateLimited
	case status == http.StatusForbidden:
		return services.ErrBlocked
	case status >= http.StatusInternalServerError:
		return services.ErrServerFault
	default:
		return services.ErrServerFault
	}
}

func (s *Session) saveCookiesLocked() {
	if err := s.saveCookies(); err != nil {
		s.logger.Warn("cookie persistence failed", logging.Error(err))
	}
}
