package services_test

import (
	"context"
	"testing"

	"tracuu/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRow(ctx, 42)
	ctx = services.WithIdentifier(ctx, "0102234896-123")
	ctx = services.WithTier(ctx, "direct_link")
	ctx = services.WithRunID(ctx, "run-123")

	if seq, ok := services.RowFromContext(ctx); !ok || seq != 42 {
		t.Fatalf("unexpected row: %v %v", seq, ok)
	}
	if id, ok := services.IdentifierFromContext(ctx); !ok || id != "0102234896-123" {
		t.Fatalf("unexpected identifier: %v %v", id, ok)
	}
	if tier, ok := services.TierFromContext(ctx); !ok || tier != "direct_link" {
		t.Fatalf("unexpected tier: %v %v", tier, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestTierBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTier(ctx, "")
	if _, ok := services.TierFromContext(ctx); ok {
		t.Fatal("expected no tier value")
	}
}
