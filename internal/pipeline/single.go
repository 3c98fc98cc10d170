package pipeline

import (
	"context"

	"github.com/google/uuid"

	"tracuu/internal/logging"
	"tracuu/internal/resolve"
	"tracuu/internal/services"
	"tracuu/internal/taxid"
)

// ResolveOne runs the chain for a single identifier outside any batch,
// consulting and updating the cache exactly like a batch row. The
// instance lock applies so a one-off lookup never interleaves with a
// running batch on the same session.
func (r *Runner) ResolveOne(ctx context.Context, identifier, name string) (*resolve.Outcome, error) {
	release, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithIdentifier(ctx, taxid.Normalize(identifier))

	if out := r.cachedOutcome(ctx, identifier); out != nil {
		logging.WithContext(ctx, r.logger).Info("cache hit",
			logging.String("status", out.Status),
			logging.String(logging.FieldSource, out.Source),
		)
		return out, nil
	}

	out, err := r.deps.Engine.Resolve(ctx, resolve.Input{Identifier: identifier, Name: name})
	if err != nil {
		return nil, err
	}
	r.saveOutcome(ctx, runID, out)
	return out, nil
}
