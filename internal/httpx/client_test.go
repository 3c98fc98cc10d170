package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tracuu/internal/services"
)

func TestGetJSONStopsAfterAttemptBudgetOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	var waits []time.Duration
	c := New("lookup-test", nil,
		WithHTTPClient(srv.Client()),
		WithSleeper(func(d time.Duration) { waits = append(waits, d) }),
	)
	c.jitter = func() time.Duration { return 0 }

	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, &out)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate-limited marker, got %v", err)
	}
	if got := calls.Load(); got != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", got)
	}
	if len(waits) != 4 {
		t.Fatalf("expected 4 waits between 5 attempts, got %v", waits)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, w := range waits {
		if w != want[i] {
			t.Fatalf("wait %d = %v, want %v", i, w, want[i])
		}
		if i > 0 && w < waits[i-1] {
			t.Fatalf("waits decreased: %v", waits)
		}
		if w > defaultMaxDelay {
			t.Fatalf("wait %v exceeds cap %v", w, defaultMaxDelay)
		}
	}
}

func TestGetJSONHonorsRetryAfterHeader(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var waits []time.Duration
	c := New("lookup-test", nil,
		WithHTTPClient(srv.Client()),
		WithSleeper(func(d time.Duration) { waits = append(waits, d) }),
	)

	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded payload")
	}
	if len(waits) != 1 || waits[0] != 7*time.Second {
		t.Fatalf("expected single 7s wait from header, got %v", waits)
	}
}

func TestGetJSONDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New("lookup-test", nil,
		WithHTTPClient(srv.Client()),
		WithSleeper(func(time.Duration) { t.Fatal("unexpected sleep for non-retryable fault") }),
	)

	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, &out)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single attempt, got %d", got)
	}
}

func TestGetJSONRetriesMalformedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Write([]byte("<html>definitely not json</html>"))
			return
		}
		w.Write([]byte(`{"name":"recovered"}`))
	}))
	defer srv.Close()

	c := New("lookup-test", nil,
		WithHTTPClient(srv.Client()),
		WithSleeper(func(time.Duration) {}),
	)

	var out struct {
		Name string `json:"name"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if out.Name != "recovered" {
		t.Fatalf("unexpected payload: %+v", out)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestGetJSONRetriesServerFault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("lookup-test", nil,
		WithHTTPClient(srv.Client()),
		WithSleeper(func(time.Duration) {}),
	)

	var out map[string]any
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected retry after 502, got %d attempts", got)
	}
}

func TestGetJSONStopsWhenContextCanceled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New("lookup-test", nil,
		WithHTTPClient(srv.Client()),
		WithSleeper(func(time.Duration) { cancel() }),
	)

	var out map[string]any
	err := c.GetJSON(ctx, srv.URL, &out)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected no attempt after cancellation, got %d", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("12"); !ok || d != 12*time.Second {
		t.Fatalf("seconds form: got %v ok=%v", d, ok)
	}
	when := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	if d, ok := parseRetryAfter(when); !ok || d <= 0 || d > 90*time.Second {
		t.Fatalf("date form: got %v ok=%v", d, ok)
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("expected failure for garbage value")
	}
	if _, ok := parseRetryAfter("-3"); ok {
		t.Fatal("expected failure for negative seconds")
	}
}

func TestBackoffDelayIsCapped(t *testing.T) {
	c := New("lookup-test", nil, WithMaxDelay(5*time.Second))
	c.jitter = func() time.Duration { return 0 }
	for attempt := 1; attempt <= 10; attempt++ {
		if d := c.backoffDelay(attempt); d > 5*time.Second {
			t.Fatalf("attempt %d delay %v exceeds cap", attempt, d)
		}
	}
}
