package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tracuu/internal/batch"
	"tracuu/internal/cache"
	"tracuu/internal/fileutil"
	"tracuu/internal/logging"
	"tracuu/internal/preflight"
	"tracuu/internal/resolve"
	"tracuu/internal/services"
)

// Run processes every pending batch file in order: preflight, an
// optional session warm-up, then the per-row fallback chain with
// pacing, periodic checkpoints, final artifacts, and input relocation.
// Row failures are recorded and the run continues; the returned error
// is a process-fatal condition (lock, preflight, load, checkpoint or
// artifact I/O, relocation).
func (r *Runner) Run(ctx context.Context) error {
	release, err := r.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run started",
		logging.String("pending_dir", r.cfg.Paths.PendingDir),
		logging.String(logging.FieldEventType, "run_start"),
	)

	if !r.skipPreflight {
		if err := r.runPreflight(ctx, logger); err != nil {
			return err
		}
	}

	files, err := batch.ListPending(r.cfg.Paths.PendingDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Info("no pending batches", logging.String("dir", r.cfg.Paths.PendingDir))
		return nil
	}

	if r.cfg.Session.WarmUp && r.deps.Session != nil {
		if err := r.deps.Session.WarmUp(ctx, r.cfg.Registry.MasothueBaseURL); err != nil {
			return fmt.Errorf("session warm-up: %w", err)
		}
	}

	for _, path := range files {
		if err := r.processFile(ctx, runID, path); err != nil {
			if notifyErr := r.deps.Notifier.NotifyError(ctx, err, filepath.Base(path)); notifyErr != nil {
				logger.Warn("error notification failed", logging.Error(notifyErr))
			}
			return err
		}
	}

	logger.Info("run complete",
		logging.Int("batches", len(files)),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	return nil
}

func (r *Runner) acquireLock() (func(), error) {
	ok, err := r.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another tracuu instance holds %s", r.lockPath)
	}
	release := func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}
	return release, nil
}

// runPreflight logs every check and fails the run when a required
// check does not pass.
func (r *Runner) runPreflight(ctx context.Context, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, r.cfg)

	var failures []string
	for _, result := range results {
		switch {
		case result.Passed:
			logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		case result.Optional:
			logger.Warn("preflight check degraded",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldEventType, "preflight_degraded"),
			)
		default:
			logger.Error("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldEventType, "preflight_failed"),
				logging.String(logging.FieldErrorHint, "fix the reported issue or rerun with --skip-preflight"),
			)
			failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

func (r *Runner) processFile(ctx context.Context, runID, path string) error {
	name := filepath.Base(path)
	logger := logging.WithContext(ctx, r.logger).With(logging.Args(logging.String("batch", name))...)

	table, err := batch.Load(path)
	if err != nil {
		return err
	}
	batch.Prepare(table, r.deps.Linker)
	art := batch.ArtifactPaths(r.cfg.Paths.OutputDir, path)

	total := table.Len()
	logger.Info("batch started",
		logging.Int("rows", total),
		logging.String(logging.FieldEventType, "batch_start"),
	)
	if err := r.deps.Notifier.NotifyBatchStarted(ctx, name, total); err != nil {
		logger.Warn("batch start notification failed", logging.Error(err))
	}

	start := time.Now()
	resolved, failed := 0, 0
	sleepMin, sleepMax := r.cfg.RowSleepRange()
	breakMin, breakMax := r.cfg.LongBreakRange()

	for row := 0; row < total; row++ {
		n := row + 1
		rowCtx := services.WithRow(ctx, int64(n))

		out, err := r.resolveRow(rowCtx, runID, table, row)
		if err != nil {
			return err
		}
		if out.OK() {
			resolved++
		} else {
			failed++
		}
		logging.WithContext(rowCtx, logger).Info("row finished",
			logging.Int("total", total),
			logging.String("status", out.Status),
			logging.String(logging.FieldSource, out.Source),
		)

		if interval := r.cfg.Pacing.CheckpointEveryRows; interval > 0 && n%interval == 0 {
			if err := batch.WriteCheckpoint(table, art); err != nil {
				return err
			}
			logger.Info("checkpoint written",
				logging.Int("rows", n),
				logging.String(logging.FieldEventType, "checkpoint"),
			)
		}

		if n == total {
			break
		}
		if err := r.pause(ctx, sleepMin, sleepMax); err != nil {
			return err
		}
		if every := r.cfg.Pacing.LongBreakEveryRows; every > 0 && n%every == 0 {
			logger.Info("long break",
				logging.Int("rows", n),
				logging.String(logging.FieldEventType, "long_break"),
			)
			if err := r.pause(ctx, breakMin, breakMax); err != nil {
				return err
			}
		}
	}

	if err := batch.WriteFinal(table, art); err != nil {
		return err
	}
	duration := time.Since(start)
	logger.Info("batch complete",
		logging.Int("resolved", resolved),
		logging.Int("failed", failed),
		logging.Duration("duration", duration),
		logging.String(logging.FieldEventType, "batch_complete"),
	)
	if err := r.deps.Notifier.NotifyBatchCompleted(ctx, name, resolved, failed, duration); err != nil {
		logger.Warn("batch completion notification failed", logging.Error(err))
	}

	dst := filepath.Join(r.cfg.Paths.DoneDir, name)
	if err := fileutil.MoveFile(path, dst); err != nil {
		return fmt.Errorf("relocate consumed input: %w", err)
	}
	logger.Info("input consumed", logging.String("moved_to", dst))
	return nil
}

// resolveRow answers one row from the cache when possible, otherwise
// runs the full chain and records the terminal outcome.
func (r *Runner) resolveRow(ctx context.Context, runID string, table *batch.Table, row int) (*resolve.Outcome, error) {
	identifier := table.Get(row, batch.ColTaxID)
	name := table.Get(row, batch.ColCustomer)
	ctx = services.WithIdentifier(ctx, identifier)

	if out := r.cachedOutcome(ctx, identifier); out != nil {
		batch.ApplyOutcome(table, row, out)
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
	batch.ApplyOutcome(table, row, out)
	r.saveOutcome(ctx, runID, out)
	return out, nil
}

// cachedOutcome returns a replayable cache hit, or nil when the row
// must resolve fresh. Only confirmed successes replay; stored failures
// get a new attempt every run.
func (r *Runner) cachedOutcome(ctx context.Context, identifier string) *resolve.Outcome {
	if r.deps.Cache == nil {
		return nil
	}
	entry, err := r.deps.Cache.Lookup(ctx, identifier)
	if err != nil {
		logging.WithContext(ctx, r.logger).Warn("cache lookup failed", logging.Error(err))
		return nil
	}
	if entry == nil || !entry.Resolved() {
		return nil
	}
	out, err := entry.Outcome()
	if err != nil {
		logging.WithContext(ctx, r.logger).Warn("cache entry unusable; resolving fresh", logging.Error(err))
		return nil
	}
	return out
}

func (r *Runner) saveOutcome(ctx context.Context, runID string, out *resolve.Outcome) {
	if r.deps.Cache == nil || out.Status == "" || out.Identifier == "" {
		return
	}
	entry, err := cache.FromOutcome(runID, out)
	if err == nil {
		err = r.deps.Cache.Save(ctx, entry)
	}
	if err != nil {
		logging.WithContext(ctx, r.logger).Warn("cache save failed", logging.Error(err))
	}
}
