package namelookup

import (
	"context"
	"log/slog"
	"strings"

	"tracuu/internal/logging"
	"tracuu/internal/services"
)

const recoverComponent = "namerecovery"

// Provider resolves the official name registered for a tax identifier.
type Provider interface {
	// Name identifies the provider in provenance tags and logs.
	Name() string
	// LookupName returns the registered name, or an error tagged with
	// the shared markers when the provider has none.
	LookupName(ctx context.Context, identifier string) (string, error)
}

// Recoverer queries providers in preference order.
type Recoverer struct {
	providers []Provider
	logger    *slog.Logger
}

// NewRecoverer builds a recoverer trying providers in the given order.
func NewRecoverer(logger *slog.Logger, providers ...Provider) *Recoverer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recoverer{
		providers: providers,
		logger:    logging.NewComponentLogger(logger, recoverComponent),
	}
}

// Recover returns the first name any provider yields, together with
// that provider's name as the source tag. A provider failure falls
// through to the next provider; only context cancellation aborts the
// sweep. When every provider comes up empty the error is NoResults
// carrying each provider's failure.
func (r *Recoverer) Recover(ctx context.Context, identifier string) (string, string, error) {
	failures := make([]string, 0, len(r.providers))
	for _, provider := range r.providers {
		name, err := provider.LookupName(ctx, identifier)
		if err == nil {
			r.logger.Debug("name recovered",
				logging.String("source", provider.Name()),
				logging.String("identifier", identifier),
			)
			return name, provider.Name(), nil
		}
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		r.logger.Debug("provider had no name",
			logging.String("source", provider.Name()),
			logging.Error(err),
		)
		failures = append(failures, provider.Name()+": "+err.Error())
	}

	msg := "no providers configured"
	if len(failures) > 0 {
		msg = strings.Join(failures, "; ")
	}
	return "", "", services.Wrap(services.ErrNoResults, recoverComponent, "recover", msg, nil)
}
