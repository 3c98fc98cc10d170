// Package resolve runs the ordered fallback chain that turns an
// unreliable (identifier, name) pair into a confirmed registry record.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tracuu/internal/logging"
	"tracuu/internal/registry"
	"tracuu/internal/services"
	"tracuu/internal/taxid"
	"tracuu/internal/textutil"
)

const componentName = "resolve"

// Tier is one stage of the fallback chain, in fixed priority order.
type Tier int

const (
	TierDirectLink Tier = iota + 1
	TierNameRecovery
	TierPrimarySearch
	TierSecondarySearch
)

func (t Tier) String() string {
	switch t {
	case TierDirectLink:
		return "direct_link"
	case TierNameRecovery:
		return "name_recovery"
	case TierPrimarySearch:
		return "primary_search"
	case TierSecondarySearch:
		return "secondary_search"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Label is the audit-trail key for the tier, e1 through e4.
func (t Tier) Label() string {
	return fmt.Sprintf("e%d", int(t))
}

// TierFailure records why one tier could not resolve the row.
type TierFailure struct {
	Tier Tier
	Err  error
}

// Terminal statuses written to the output's status column.
const (
	StatusLinkOK      = "ok_masothue_link"
	StatusPrimaryOK   = "ok_masothue_search"
	StatusSecondaryOK = "ok_tvpl_search"
	StatusError       = "error"
)

// Provenance tags written to the output's source column.
const (
	SourceCustomerLink   = "customer_link"
	SourceFallbackSearch = "fallback_search"
	SourceFailedAll      = "failed_all"
)

// SourceAPILink tags a success reached through a name recovered from
// the given provider.
func SourceAPILink(provider string) string {
	return "api_link(" + provider + ")"
}

// IsSuccessStatus reports whether status marks a resolved row.
func IsSuccessStatus(status string) bool {
	return strings.HasPrefix(status, "ok_")
}

// Input is one candidate row handed to the engine. Both fields are raw
// spreadsheet values.
type Input struct {
	Identifier string
	Name       string
}

// Outcome is the terminal result for one row. A resolved row carries
// Record and a success status; an exhausted row carries Failures and
// StatusError. An unconfirmed pass (Options.SkipConfirm) carries only
// the recovered name fields. The derived fields are populated in every
// case so the output projection can always show what was attempted.
type Outcome struct {
	Identifier  string
	DisplayName string
	Link        string

	APIName   string
	APISource string
	APILink   string
	APIError  string

	Record   *registry.Record
	Status   string
	Source   string
	Tier     Tier
	Failures []TierFailure
}

// OK reports whether the row resolved.
func (o *Outcome) OK() bool {
	return IsSuccessStatus(o.Status)
}

// ErrorTrail concatenates the per-tier failures in tier order, the full
// audit trail for manual triage. Empty for resolved rows with no prior
// tier failures.
func (o *Outcome) ErrorTrail() string {
	parts := make([]string, 0, len(o.Failures))
	for _, f := range o.Failures {
		parts = append(parts, f.Tier.Label()+"="+f.Err.Error())
	}
	return strings.Join(parts, " | ")
}

// NameRecoverer supplies an official name for an identifier together
// with the source that had it.
type NameRecoverer interface {
	Recover(ctx context.Context, identifier string) (name, source string, err error)
}

// Options narrows the fallback chain for special passes. The zero
// value runs the full chain and confirms every link against the
// registry.
type Options struct {
	// SkipTiers excludes the named tiers from the chain.
	SkipTiers []Tier
	// SkipConfirm ends the name-recovery tier at link synthesis
	// without fetching the page, so an API-only pass never touches
	// the shared session. The outcome carries the recovered name and
	// link but no record and no terminal status.
	SkipConfirm bool
}

func (o Options) skips(tier Tier) bool {
	for _, t := range o.SkipTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// Engine runs the chain. The registry clients and the recoverer are
// injected so tests can substitute stubs for the shared session.
type Engine struct {
	linker    *Linker
	recoverer NameRecoverer
	primary   registry.Client
	secondary registry.Client
	logger    *slog.Logger
}

// NewEngine wires the chain's collaborators.
func NewEngine(linker *Linker, recoverer NameRecoverer, primary, secondary registry.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		linker:    linker,
		recoverer: recoverer,
		primary:   primary,
		secondary: secondary,
		logger:    logging.NewComponentLogger(logger, componentName),
	}
}

type tierHandler struct {
	tier Tier
	run  func(ctx context.Context, out *Outcome, opts Options) (*registry.Record, error)
}

// Resolve runs the full fallback chain for one row. Tiers run in fixed
// order, at most once each; the first success ends the chain and every
// earlier tier's failure stays recorded on the outcome. Chain
// exhaustion is a terminal outcome, not an error: the returned error is
// non-nil only when the context is canceled mid-chain.
func (e *Engine) Resolve(ctx context.Context, in Input) (*Outcome, error) {
	return e.ResolveWith(ctx, in, Options{})
}

// ResolveWith runs the chain restricted by opts.
func (e *Engine) ResolveWith(ctx context.Context, in Input, opts Options) (*Outcome, error) {
	out := &Outcome{
		Identifier:  taxid.Normalize(in.Identifier),
		DisplayName: e.linker.DisplayName(in.Name),
	}
	out.Link = e.linker.Synthesize(in.Identifier, out.DisplayName)

	handlers := []tierHandler{
		{TierDirectLink, e.directLink},
		{TierNameRecovery, e.nameRecovery},
		{TierPrimarySearch, e.primarySearch},
		{TierSecondarySearch, e.secondarySearch},
	}
	for _, h := range handlers {
		if opts.skips(h.tier) {
			continue
		}
		tierCtx := services.WithTier(ctx, h.tier.String())
		rec, err := h.run(tierCtx, out, opts)
		if err == nil {
			out.Record = rec
			out.Tier = h.tier
			e.checkNameAgreement(out)
			e.logger.Debug("row resolved",
				logging.String("identifier", out.Identifier),
				logging.String("tier", h.tier.String()),
				logging.String("source", out.Source),
			)
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out.Failures = append(out.Failures, TierFailure{Tier: h.tier, Err: err})
		e.logger.Debug("tier failed",
			logging.String("identifier", out.Identifier),
			logging.String("tier", h.tier.String()),
			logging.Error(err),
		)
	}

	out.Status = StatusError
	out.Source = SourceFailedAll
	return out, nil
}

// lowNameAgreement flags a resolved row whose registered name shares
// few tokens with the input name. A search tier can land on a different
// company when the registry reorders its result list, so the
// divergence is logged for the operator instead of failing the row.
const lowNameAgreement = 0.3

func (e *Engine) checkNameAgreement(out *Outcome) {
	if out.Record == nil || out.DisplayName == "" {
		return
	}
	name := registeredName(out.Record)
	if name == "" {
		return
	}
	score := textutil.NameSimilarity(out.DisplayName, name)
	if score >= lowNameAgreement {
		return
	}
	e.logger.Warn("registered name diverges from input name",
		logging.String("identifier", out.Identifier),
		logging.String("input_name", out.DisplayName),
		logging.String("registered_name", name),
		logging.Float64("similarity", score),
	)
}

// registeredName pulls the first name-like attribute from a fetched
// record. Both registries key the official name under a "Tên ..."
// header, which survives in the record key after the source prefix.
func registeredName(rec *registry.Record) string {
	for _, key := range rec.Keys() {
		if !strings.Contains(key, "Tên") {
			continue
		}
		if value, _ := rec.Get(key); strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func (e *Engine) directLink(ctx context.Context, out *Outcome, _ Options) (*registry.Record, error) {
	if out.Link == "" {
		return nil, services.Wrap(services.ErrValidation, componentName, "direct-link",
			"no link synthesized from the input name", nil)
	}
	rec, err := e.primary.FetchByLink(ctx, out.Link)
	if err != nil {
		return nil, err
	}
	out.Status = StatusLinkOK
	out.Source = SourceCustomerLink
	return rec, nil
}

func (e *Engine) nameRecovery(ctx context.Context, out *Outcome, opts Options) (*registry.Record, error) {
	if out.Identifier == "" {
		return nil, services.Wrap(services.ErrValidation, componentName, "name-recovery",
			"refusing to recover a name without an identifier", nil)
	}
	if e.recoverer == nil {
		return nil, services.Wrap(services.ErrValidation, componentName, "name-recovery",
			"no recovery providers configured", nil)
	}

	name, source, err := e.recoverer.Recover(ctx, out.Identifier)
	if err != nil {
		out.APIError = err.Error()
		return nil, err
	}
	out.APIName = name
	out.APISource = source

	out.APILink = e.linker.Synthesize(out.Identifier, name)
	if out.APILink == "" {
		return nil, services.Wrap(services.ErrValidation, componentName, "name-recovery",
			"recovered name yields no link", nil)
	}
	if opts.SkipConfirm {
		return nil, nil
	}
	rec, err := e.primary.FetchByLink(ctx, out.APILink)
	if err != nil {
		return nil, err
	}
	out.Status = StatusLinkOK
	out.Source = SourceAPILink(source)
	return rec, nil
}

func (e *Engine) primarySearch(ctx context.Context, out *Outcome, _ Options) (*registry.Record, error) {
	if out.Identifier == "" {
		return nil, services.Wrap(services.ErrValidation, componentName, "primary-search",
			"refusing to search without an identifier", nil)
	}
	rec, err := e.primary.SearchByIdentifier(ctx, out.Identifier)
	if err != nil {
		return nil, err
	}
	out.Status = StatusPrimaryOK
	out.Source = SourceFallbackSearch
	return rec, nil
}

func (e *Engine) secondarySearch(ctx context.Context, out *Outcome, _ Options) (*registry.Record, error) {
	if out.Identifier == "" {
		return nil, services.Wrap(services.ErrValidation, componentName, "secondary-search",
			"refusing to search without an identifier", nil)
	}
	rec, err := e.secondary.SearchByIdentifier(ctx, out.Identifier)
	if err != nil {
		return nil, err
	}
	out.Status = StatusSecondaryOK
	out.Source = SourceFallbackSearch
	return rec, nil
}
