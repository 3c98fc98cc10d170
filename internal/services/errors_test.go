package services_test

import (
	"errors"
	"strings"
	"testing"

	"tracuu/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrNotFound, "masothue", "fetch", "detail page missing tables", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"masothue", "fetch", "detail page missing tables"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToNetworkFault(t *testing.T) {
	err := services.Wrap(nil, "vitax", "lookup", "connection reset", nil)
	if !errors.Is(err, services.ErrNetworkFault) {
		t.Fatalf("expected network fault marker, got %v", err)
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name   string
		marker error
		want   bool
	}{
		{"rate limited", services.ErrRateLimited, true},
		{"server fault", services.ErrServerFault, true},
		{"network fault", services.ErrNetworkFault, true},
		{"not found", services.ErrNotFound, false},
		{"no results", services.ErrNoResults, false},
		{"blocked", services.ErrBlocked, false},
		{"timeout", services.ErrTimeout, false},
		{"validation", services.ErrValidation, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "source", "op", "detail", nil)
		if got := services.Retryable(err); got != tc.want {
			t.Fatalf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
	if services.Retryable(nil) {
		t.Fatal("nil error must not be retryable")
	}
}
