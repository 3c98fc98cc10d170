package cache_test

import (
	"context"
	"path/filepath"
	"testing"

	"tracuu/internal/cache"
	"tracuu/internal/registry"
	"tracuu/internal/resolve"
)

func openStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "resolutions.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func resolvedOutcome(identifier string) *resolve.Outcome {
	rec := registry.NewRecord()
	rec.Set("masothue_url", "https://masothue.com/"+identifier+"-cong-ty-alpha")
	rec.Set("mst_t1_Tên chính thức", "CÔNG TY TNHH ALPHA")
	rec.Set("mst_t1_Mã số thuế", identifier)
	return &resolve.Outcome{
		Identifier:  identifier,
		DisplayName: "CÔNG TY TNHH ALPHA",
		Link:        "https://masothue.com/" + identifier + "-cong-ty-tnhh-alpha",
		Status:      resolve.StatusLinkOK,
		Source:      resolve.SourceCustomerLink,
		Record:      rec,
	}
}

func TestSaveThenLookupRoundTripsOutcome(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	entry, err := cache.FromOutcome("run-1", resolvedOutcome("0312345678"))
	if err != nil {
		t.Fatalf("FromOutcome failed: %v", err)
	}
	if err := store.Save(ctx, entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	found, err := store.Lookup(ctx, "03 123 45678")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected a cache hit for the canonical identifier")
	}
	if !found.Resolved() {
		t.Fatalf("expected resolved entry, got status %q", found.Status)
	}
	if found.RunID != "run-1" {
		t.Fatalf("run id = %q", found.RunID)
	}
	if found.UpdatedAt.IsZero() {
		t.Fatal("updated timestamp not set")
	}

	out, err := found.Outcome()
	if err != nil {
		t.Fatalf("Outcome failed: %v", err)
	}
	if out.Status != resolve.StatusLinkOK || out.Source != resolve.SourceCustomerLink {
		t.Fatalf("got (%s, %s)", out.Status, out.Source)
	}
	if out.Record == nil || out.Record.Len() != 3 {
		t.Fatalf("record did not round-trip: %#v", out.Record)
	}
	keys := out.Record.Keys()
	if keys[0] != "masothue_url" || keys[2] != "mst_t1_Mã số thuế" {
		t.Fatalf("record key order lost: %v", keys)
	}
	name, _ := out.Record.Get("mst_t1_Tên chính thức")
	if name != "CÔNG TY TNHH ALPHA" {
		t.Fatalf("record value = %q", name)
	}
}

func TestLookupMissesReturnNil(t *testing.T) {
	store := openStore(t)

	found, err := store.Lookup(context.Background(), "0399999999")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found != nil {
		t.Fatalf("expected miss, got %#v", found)
	}

	found, err = store.Lookup(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found != nil {
		t.Fatal("expected miss for an empty identifier")
	}
}

func TestSaveOverwritesByIdentifier(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	failed := &resolve.Outcome{
		Identifier: "0312345678",
		Status:     resolve.StatusError,
		Source:     resolve.SourceFailedAll,
		APIError:   "vitax: no name; vietqr: code 51",
	}
	entry, err := cache.FromOutcome("run-1", failed)
	if err != nil {
		t.Fatalf("FromOutcome failed: %v", err)
	}
	if err := store.Save(ctx, entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	found, err := store.Lookup(ctx, "0312345678")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found == nil || found.Resolved() {
		t.Fatalf("expected an unresolved entry, got %#v", found)
	}

	entry, err = cache.FromOutcome("run-2", resolvedOutcome("0312345678"))
	if err != nil {
		t.Fatalf("FromOutcome failed: %v", err)
	}
	if err := store.Save(ctx, entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	found, err = store.Lookup(ctx, "0312345678")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found == nil || !found.Resolved() {
		t.Fatalf("expected the overwrite to win, got %#v", found)
	}
	if found.RunID != "run-2" {
		t.Fatalf("run id = %q", found.RunID)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("total = %d, want 1 after overwrite", stats.Total)
	}
}

func TestSaveRejectsEmptyIdentifier(t *testing.T) {
	store := openStore(t)

	err := store.Save(context.Background(), cache.Entry{Identifier: "***", Status: resolve.StatusError})
	if err == nil {
		t.Fatal("expected error for an identifier with no usable characters")
	}
}

func TestStatsGroupsByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	outcomes := []*resolve.Outcome{
		resolvedOutcome("0311111111"),
		resolvedOutcome("0322222222"),
		{Identifier: "0333333333", Status: resolve.StatusSecondaryOK, Source: resolve.SourceFallbackSearch},
		{Identifier: "0344444444", Status: resolve.StatusError, Source: resolve.SourceFailedAll},
	}
	for _, out := range outcomes {
		entry, err := cache.FromOutcome("run-1", out)
		if err != nil {
			t.Fatalf("FromOutcome failed: %v", err)
		}
		if err := store.Save(ctx, entry); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 4 || stats.Resolved != 3 || stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ByStatus[resolve.StatusLinkOK] != 2 {
		t.Fatalf("link ok count = %d", stats.ByStatus[resolve.StatusLinkOK])
	}
	if stats.Newest.IsZero() {
		t.Fatal("newest timestamp not reported")
	}
}

func TestPurgeEmptiesTheStore(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"0311111111", "0322222222"} {
		entry, err := cache.FromOutcome("run-1", resolvedOutcome(id))
		if err != nil {
			t.Fatalf("FromOutcome failed: %v", err)
		}
		if err := store.Save(ctx, entry); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	removed, err := store.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	found, err := store.Lookup(ctx, "0311111111")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found != nil {
		t.Fatal("entry survived the purge")
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resolutions.db")

	store, err := cache.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	entry, err := cache.FromOutcome("run-1", resolvedOutcome("0312345678"))
	if err != nil {
		t.Fatalf("FromOutcome failed: %v", err)
	}
	if err := store.Save(context.Background(), entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := cache.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	found, err := reopened.Lookup(context.Background(), "0312345678")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found == nil {
		t.Fatal("entry lost across reopen")
	}
}

func TestOutcomeReplaysSuccessWithoutStoredRecord(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, cache.Entry{
		Identifier: "0312345678",
		Status:     resolve.StatusLinkOK,
		Source:     resolve.SourceCustomerLink,
		RunID:      "run-1",
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	found, err := store.Lookup(ctx, "0312345678")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found == nil || !found.Resolved() {
		t.Fatalf("expected a resolved entry, got %+v", found)
	}
	out, err := found.Outcome()
	if err != nil {
		t.Fatalf("Outcome failed: %v", err)
	}
	if out.Record == nil {
		t.Fatal("replayed success carries a nil record")
	}
	if out.Record.Len() != 0 {
		t.Fatalf("record keys = %v, want none", out.Record.Keys())
	}
}
