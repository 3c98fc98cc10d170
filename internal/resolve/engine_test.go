package resolve

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"tracuu/internal/registry"
	"tracuu/internal/services"
)

type stubRegistry struct {
	name        string
	fetchCalls  []string
	searchCalls []string
	fetch       func(url string) (*registry.Record, error)
	search      func(identifier string) (*registry.Record, error)
}

func (s *stubRegistry) Name() string { return s.name }

func (s *stubRegistry) FetchByLink(_ context.Context, url string) (*registry.Record, error) {
	s.fetchCalls = append(s.fetchCalls, url)
	if s.fetch == nil {
		return nil, services.Wrap(services.ErrNotFound, s.name, "fetch", "detail tables absent", nil)
	}
	return s.fetch(url)
}

func (s *stubRegistry) SearchByIdentifier(_ context.Context, identifier string) (*registry.Record, error) {
	s.searchCalls = append(s.searchCalls, identifier)
	if s.search == nil {
		return nil, services.Wrap(services.ErrNoResults, s.name, "search", "zero result rows", nil)
	}
	return s.search(identifier)
}

type stubRecoverer struct {
	calls int
	fn    func(identifier string) (string, string, error)
}

func (s *stubRecoverer) Recover(_ context.Context, identifier string) (string, string, error) {
	s.calls++
	if s.fn == nil {
		return "", "", services.Wrap(services.ErrNoResults, "namerecovery", "recover", "vitax: no name; vietqr: code 51", nil)
	}
	return s.fn(identifier)
}

func detailRecord(url string) *registry.Record {
	rec := registry.NewRecord()
	rec.Set("masothue_url", url)
	rec.Set("mst_t1_Tên chính thức", "CÔNG TY TNHH ALPHA")
	return rec
}

func newTestEngine(recoverer NameRecoverer, primary, secondary registry.Client) *Engine {
	linker := NewLinker("https://masothue.com", true, nil)
	return NewEngine(linker, recoverer, primary, secondary, nil)
}

func TestResolveDirectLinkShortCircuits(t *testing.T) {
	primary := &stubRegistry{name: "masothue", fetch: func(url string) (*registry.Record, error) {
		return detailRecord(url), nil
	}}
	secondary := &stubRegistry{name: "tvpl"}
	recoverer := &stubRecoverer{}

	out, err := newTestEngine(recoverer, primary, secondary).Resolve(context.Background(), Input{
		Identifier: "0312345678",
		Name:       "Cty TNHH Alpha",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if out.Status != StatusLinkOK || out.Source != SourceCustomerLink || out.Tier != TierDirectLink {
		t.Fatalf("got (%s, %s, %s)", out.Status, out.Source, out.Tier)
	}
	wantLink := "https://masothue.com/0312345678-cong-ty-trach-nhiem-huu-han-alpha"
	if out.Link != wantLink {
		t.Fatalf("link = %q, want %q", out.Link, wantLink)
	}
	if len(out.Failures) != 0 {
		t.Fatalf("failures = %v, want none", out.Failures)
	}
	if recoverer.calls != 0 {
		t.Fatalf("recoverer ran %d times", recoverer.calls)
	}
	if len(primary.searchCalls) != 0 || len(secondary.searchCalls) != 0 {
		t.Fatal("search tiers ran after a direct-link success")
	}
	if !out.OK() {
		t.Fatal("OK() = false for a resolved row")
	}
}

func TestResolveRecoveredNameRelinksOnce(t *testing.T) {
	var fetches int
	primary := &stubRegistry{name: "masothue", fetch: func(url string) (*registry.Record, error) {
		fetches++
		if fetches == 1 {
			return nil, services.Wrap(services.ErrNotFound, "masothue", "fetch", "detail tables absent", nil)
		}
		return detailRecord(url), nil
	}}
	secondary := &stubRegistry{name: "tvpl"}
	recoverer := &stubRecoverer{fn: func(string) (string, string, error) {
		return "CÔNG TY CỔ PHẦN BETA", "vitax", nil
	}}

	out, err := newTestEngine(recoverer, primary, secondary).Resolve(context.Background(), Input{
		Identifier: "0312345678",
		Name:       "Cty TNHH Alpha",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if out.Status != StatusLinkOK || out.Tier != TierNameRecovery {
		t.Fatalf("got (%s, %s)", out.Status, out.Tier)
	}
	if out.Source != "api_link(vitax)" {
		t.Fatalf("source = %q", out.Source)
	}
	if out.APIName != "CÔNG TY CỔ PHẦN BETA" || out.APISource != "vitax" {
		t.Fatalf("api name = (%q, %q)", out.APIName, out.APISource)
	}
	wantAPILink := "https://masothue.com/0312345678-cong-ty-co-phan-beta"
	if out.APILink != wantAPILink {
		t.Fatalf("api link = %q, want %q", out.APILink, wantAPILink)
	}
	if len(primary.fetchCalls) != 2 || primary.fetchCalls[1] != wantAPILink {
		t.Fatalf("fetch calls = %v", primary.fetchCalls)
	}
	if len(out.Failures) != 1 || out.Failures[0].Tier != TierDirectLink {
		t.Fatalf("failures = %v, want just the direct-link tier", out.Failures)
	}
}

func TestResolveFallsThroughToPrimarySearch(t *testing.T) {
	primary := &stubRegistry{name: "masothue", search: func(identifier string) (*registry.Record, error) {
		rec := registry.NewRecord()
		rec.Set("masothue_url", "https://masothue.com/"+identifier+"-cong-ty")
		rec.Set("mst_t1_Mã số thuế", identifier)
		return rec, nil
	}}
	secondary := &stubRegistry{name: "tvpl"}
	recoverer := &stubRecoverer{fn: func(string) (string, string, error) {
		return "CÔNG TY CỔ PHẦN BETA", "vietqr", nil
	}}

	out, err := newTestEngine(recoverer, primary, secondary).Resolve(context.Background(), Input{
		Identifier: "0312345678",
		Name:       "Cty TNHH Alpha",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if out.Status != StatusPrimaryOK || out.Source != SourceFallbackSearch || out.Tier != TierPrimarySearch {
		t.Fatalf("got (%s, %s, %s)", out.Status, out.Source, out.Tier)
	}
	if len(out.Failures) != 2 {
		t.Fatalf("failures = %v, want the two link tiers", out.Failures)
	}
	trail := out.ErrorTrail()
	if !strings.Contains(trail, "e1=") || !strings.Contains(trail, "e2=") {
		t.Fatalf("trail = %q, want e1 and e2 entries", trail)
	}
	if len(secondary.searchCalls) != 0 {
		t.Fatal("secondary search ran after a primary success")
	}
	if got := primary.searchCalls; len(got) != 1 || got[0] != "0312345678" {
		t.Fatalf("primary search calls = %v", got)
	}
}

func TestResolveSecondarySearchRecordsRecoveryError(t *testing.T) {
	primary := &stubRegistry{name: "masothue"}
	secondary := &stubRegistry{name: "tvpl", search: func(identifier string) (*registry.Record, error) {
		rec := registry.NewRecord()
		rec.Set("tvpl_detail_url", "https://portal.example/ma-so-thue/"+identifier)
		rec.Set("tvpl_Tên doanh nghiệp", "CÔNG TY HAI")
		return rec, nil
	}}
	recoverer := &stubRecoverer{}

	out, err := newTestEngine(recoverer, primary, secondary).Resolve(context.Background(), Input{
		Identifier: "0312345678",
		Name:       "Cty TNHH Alpha",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if out.Status != StatusSecondaryOK || out.Source != SourceFallbackSearch || out.Tier != TierSecondarySearch {
		t.Fatalf("got (%s, %s, %s)", out.Status, out.Source, out.Tier)
	}
	if out.APIError == "" {
		t.Fatal("recovery failure not recorded in APIError")
	}
	if len(out.Failures) != 3 {
		t.Fatalf("failures = %v, want tiers one through three", out.Failures)
	}
}

func TestResolveExhaustionKeepsEveryTierInOrder(t *testing.T) {
	primary := &stubRegistry{name: "masothue"}
	secondary := &stubRegistry{name: "tvpl"}
	recoverer := &stubRecoverer{}

	out, err := newTestEngine(recoverer, primary, secondary).Resolve(context.Background(), Input{
		Identifier: "0312345678",
		Name:       "Cty TNHH Alpha",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if out.Status != StatusError || out.Source != SourceFailedAll || out.OK() {
		t.Fatalf("got (%s, %s)", out.Status, out.Source)
	}
	if len(out.Failures) != 4 {
		t.Fatalf("failures = %v, want exactly four", out.Failures)
	}
	for i, f := range out.Failures {
		if f.Tier != Tier(i+1) {
			t.Fatalf("failures[%d].Tier = %s, want %s", i, f.Tier, Tier(i+1))
		}
	}

	trail := out.ErrorTrail()
	labels := []string{"e1=", "e2=", "e3=", "e4="}
	last := -1
	for _, label := range labels {
		pos := strings.Index(trail, label)
		if pos < 0 {
			t.Fatalf("trail = %q, missing %s", trail, label)
		}
		if pos < last {
			t.Fatalf("trail = %q, %s out of order", trail, label)
		}
		last = pos
	}
	if parts := strings.Split(trail, " | "); len(parts) != 4 {
		t.Fatalf("trail = %q, want four segments", trail)
	}
}

func TestResolveEmptyInputNeverQueries(t *testing.T) {
	primary := &stubRegistry{name: "masothue"}
	secondary := &stubRegistry{name: "tvpl"}
	recoverer := &stubRecoverer{}

	out, err := newTestEngine(recoverer, primary, secondary).Resolve(context.Background(), Input{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if out.Status != StatusError || len(out.Failures) != 4 {
		t.Fatalf("got status %s with %d failures", out.Status, len(out.Failures))
	}
	if recoverer.calls != 0 {
		t.Fatal("recoverer queried without an identifier")
	}
	if len(primary.fetchCalls)+len(primary.searchCalls)+len(secondary.searchCalls) != 0 {
		t.Fatal("registry queried without an identifier")
	}
}

func TestResolveStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &stubRegistry{name: "masothue", fetch: func(string) (*registry.Record, error) {
		cancel()
		return nil, services.Wrap(services.ErrNetworkFault, "masothue", "fetch", "connection reset", nil)
	}}
	secondary := &stubRegistry{name: "tvpl"}

	_, err := newTestEngine(&stubRecoverer{}, primary, secondary).Resolve(ctx, Input{
		Identifier: "0312345678",
		Name:       "Cty TNHH Alpha",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(secondary.searchCalls) != 0 {
		t.Fatal("later tier ran after cancellation")
	}
}

func TestResolveWithSkipConfirmNeverTouchesRegistries(t *testing.T) {
	recoverer := &stubRecoverer{fn: func(string) (string, string, error) {
		return "CÔNG TY CỔ PHẦN BETA", "vietqr", nil
	}}

	eng := newTestEngine(recoverer, nil, nil)
	out, err := eng.ResolveWith(context.Background(), Input{
		Identifier: "03 123 45678",
		Name:       "Cty TNHH Alpha",
	}, Options{
		SkipTiers:   []Tier{TierDirectLink, TierPrimarySearch, TierSecondarySearch},
		SkipConfirm: true,
	})
	if err != nil {
		t.Fatalf("ResolveWith: %v", err)
	}

	if out.APIName != "CÔNG TY CỔ PHẦN BETA" || out.APISource != "vietqr" {
		t.Fatalf("recovered (%q, %q)", out.APIName, out.APISource)
	}
	wantLink := "https://masothue.com/0312345678-cong-ty-co-phan-beta"
	if out.APILink != wantLink {
		t.Fatalf("api link = %q, want %q", out.APILink, wantLink)
	}
	if out.Record != nil {
		t.Fatal("unconfirmed pass produced a record")
	}
	if out.OK() {
		t.Fatal("unconfirmed pass reported a success status")
	}
	if len(out.Failures) != 0 {
		t.Fatalf("failures = %v, want none", out.Failures)
	}
	if out.Tier != TierNameRecovery {
		t.Fatalf("tier = %s, want %s", out.Tier, TierNameRecovery)
	}
}

func TestResolveWithSkippedTiersExhaustsOnRecoveryFailure(t *testing.T) {
	recoverer := &stubRecoverer{}

	eng := newTestEngine(recoverer, nil, nil)
	out, err := eng.ResolveWith(context.Background(), Input{
		Identifier: "0312345678",
		Name:       "Cty TNHH Alpha",
	}, Options{
		SkipTiers:   []Tier{TierDirectLink, TierPrimarySearch, TierSecondarySearch},
		SkipConfirm: true,
	})
	if err != nil {
		t.Fatalf("ResolveWith: %v", err)
	}

	if out.Status != StatusError || out.Source != SourceFailedAll {
		t.Fatalf("got (%s, %s)", out.Status, out.Source)
	}
	if len(out.Failures) != 1 || out.Failures[0].Tier != TierNameRecovery {
		t.Fatalf("failures = %v, want one name-recovery entry", out.Failures)
	}
	if out.APIError == "" {
		t.Fatal("recovery failure not recorded")
	}
	if strings.Contains(out.ErrorTrail(), "e1=") || strings.Contains(out.ErrorTrail(), "e3=") {
		t.Fatalf("skipped tiers appear in trail %q", out.ErrorTrail())
	}
}

func TestResolveWarnsWhenRegisteredNameDiverges(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	primary := &stubRegistry{name: "masothue", fetch: func(url string) (*registry.Record, error) {
		rec := registry.NewRecord()
		rec.Set("masothue_url", url)
		rec.Set("mst_t1_Tên chính thức", "TẬP ĐOÀN BETA OMEGA")
		return rec, nil
	}}
	secondary := &stubRegistry{name: "tvpl"}
	linker := NewLinker("https://masothue.com", true, nil)

	out, err := NewEngine(linker, &stubRecoverer{}, primary, secondary, logger).
		Resolve(context.Background(), Input{Identifier: "0312345678", Name: "Cty TNHH Alpha"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !out.OK() {
		t.Fatalf("divergent name failed the row: status %q", out.Status)
	}
	if !strings.Contains(buf.String(), "registered name diverges") {
		t.Fatalf("no divergence warning in log %q", buf.String())
	}
}

func TestResolveStaysQuietWhenRegisteredNameMatches(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	primary := &stubRegistry{name: "masothue", fetch: func(url string) (*registry.Record, error) {
		return detailRecord(url), nil
	}}
	secondary := &stubRegistry{name: "tvpl"}
	linker := NewLinker("https://masothue.com", true, nil)

	out, err := NewEngine(linker, &stubRecoverer{}, primary, secondary, logger).
		Resolve(context.Background(), Input{Identifier: "0312345678", Name: "Cty TNHH Alpha"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !out.OK() {
		t.Fatalf("status %q", out.Status)
	}
	if strings.Contains(buf.String(), "diverges") {
		t.Fatalf("unexpected warning %q", buf.String())
	}
}
