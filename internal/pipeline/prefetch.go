package pipeline

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"tracuu/internal/batch"
	"tracuu/internal/logging"
	"tracuu/internal/resolve"
	"tracuu/internal/services"
	"tracuu/internal/workpool"
)

// Prefetch runs the API-only pass over every pending batch: concurrent
// name recovery and link synthesis for each row, never touching the
// shared session. It writes the links projection per batch and leaves
// the inputs pending for the full run.
func (r *Runner) Prefetch(ctx context.Context) error {
	release, err := r.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	ctx = services.WithRunID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, r.logger)

	files, err := batch.ListPending(r.cfg.Paths.PendingDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Info("no pending batches", logging.String("dir", r.cfg.Paths.PendingDir))
		return nil
	}

	for _, path := range files {
		if err := r.prefetchFile(ctx, path); err != nil {
			return err
		}
	}
	logger.Info("prefetch complete",
		logging.Int("batches", len(files)),
		logging.String(logging.FieldEventType, "prefetch_complete"),
	)
	return nil
}

func (r *Runner) prefetchFile(ctx context.Context, path string) error {
	name := filepath.Base(path)
	logger := logging.WithContext(ctx, r.logger).With(logging.Args(logging.String("batch", name))...)

	table, err := batch.Load(path)
	if err != nil {
		return err
	}
	batch.Prepare(table, r.deps.Linker)
	art := batch.ArtifactPaths(r.cfg.Paths.OutputDir, path)

	logger.Info("prefetch started", logging.Int("rows", table.Len()))

	opts := resolve.Options{
		SkipTiers: []resolve.Tier{
			resolve.TierDirectLink,
			resolve.TierPrimarySearch,
			resolve.TierSecondarySearch,
		},
		SkipConfirm: true,
	}

	rows := make([]int, table.Len())
	for i := range rows {
		rows[i] = i
	}

	results, err := workpool.ProcessAll(ctx, rows, func(ctx context.Context, row int) (*resolve.Outcome, error) {
		rowCtx := services.WithRow(ctx, int64(row+1))
		return r.deps.Engine.ResolveWith(rowCtx, resolve.Input{
			Identifier: table.Get(row, batch.ColTaxID),
			Name:       table.Get(row, batch.ColCustomer),
		}, opts)
	}, workpool.Options{
		Workers:       r.cfg.Prefetch.Workers,
		RatePerSecond: r.cfg.Prefetch.RatePerSecond,
	})
	if err != nil {
		return err
	}

	recovered := 0
	for i, result := range results {
		if result.Err != nil || result.Value == nil {
			logger.Warn("prefetch row skipped",
				logging.Int("row", i+1),
				logging.Error(result.Err),
			)
			continue
		}
		batch.ApplyPrefetch(table, rows[i], result.Value)
		if result.Value.APIName != "" {
			recovered++
		}
	}

	if err := table.Project(batch.LinksColumns).Write(art.Links); err != nil {
		return err
	}
	logger.Info("prefetch artifact written",
		logging.Int("recovered", recovered),
		logging.String("links", art.Links),
	)
	return nil
}
