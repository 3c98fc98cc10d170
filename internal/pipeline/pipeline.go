package pipeline

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"tracuu/internal/browse"
	"tracuu/internal/cache"
	"tracuu/internal/config"
	"tracuu/internal/httpx"
	"tracuu/internal/logging"
	"tracuu/internal/namelookup"
	"tracuu/internal/notifications"
	"tracuu/internal/operator"
	"tracuu/internal/registry/masothue"
	"tracuu/internal/registry/tvpl"
	"tracuu/internal/resolve"
)

const componentName = "pipeline"

// Deps carries the collaborators a Runner drives. Tests substitute a
// stub-backed engine and leave Session nil.
type Deps struct {
	Linker   *resolve.Linker
	Engine   *resolve.Engine
	Session  *browse.Session
	Cache    *cache.Store
	Notifier notifications.Service
}

// Runner owns one process's batch work: the instance lock, preflight,
// the per-file row loop, and the API-only prefetch sub-path.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Deps

	lockPath      string
	lock          *flock.Flock
	skipPreflight bool
	pause         func(ctx context.Context, min, max time.Duration) error
}

// Option adjusts Runner behavior.
type Option func(*Runner)

// WithSkipPreflight bypasses the readiness checks before a run.
func WithSkipPreflight() Option {
	return func(r *Runner) {
		r.skipPreflight = true
	}
}

// WithPause substitutes the pacing sleep so tests run without waiting.
func WithPause(pause func(ctx context.Context, min, max time.Duration) error) Option {
	return func(r *Runner) {
		if pause != nil {
			r.pause = pause
		}
	}
}

// New builds a Runner over already-constructed collaborators.
func New(cfg *config.Config, logger *slog.Logger, deps Deps, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}
	lockPath := filepath.Join(cfg.Paths.StateDir, "tracuu.lock")
	r := &Runner{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, componentName),
		deps:     deps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		pause:    pauseBetween,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build assembles the production wiring from configuration: the shared
// session with its operator gate and challenge notifications, the
// name-lookup providers, the registry clients, the engine, and the
// cache store when enabled.
func Build(cfg *config.Config, logger *slog.Logger, gate operator.Gate, opts ...Option) (*Runner, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	notifier := notifications.NewService(cfg)
	hookLogger := logging.NewComponentLogger(logger, componentName)

	session, err := browse.NewSession(browse.Config{
		UserAgent:  cfg.Session.UserAgent,
		CookieFile: cfg.Session.CookieFile,
		Timeout:    cfg.RegistryTimeout(),
	}, logger,
		browse.WithGate(gate),
		browse.WithChallengeHook(func(ctx context.Context, pageURL string) {
			if err := notifier.NotifyChallenge(ctx, pageURL); err != nil {
				hookLogger.Warn("challenge notification failed", logging.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	linker := resolve.NewLinker(cfg.Registry.MasothueBaseURL, cfg.Names.ExpandAbbreviations, cfg.Names.ExtraAbbreviations)

	lookupOpts := []httpx.Option{
		httpx.WithTimeout(cfg.LookupTimeout()),
		httpx.WithMaxAttempts(cfg.Lookup.MaxAttempts),
		httpx.WithMaxDelay(cfg.BackoffCap()),
	}
	recoverer := namelookup.NewRecoverer(logger,
		namelookup.NewVitax(cfg.Lookup.VitaxURL, logger, lookupOpts...),
		namelookup.NewVietQR(cfg.Lookup.VietQRURL, logger, lookupOpts...),
	)

	primary := masothue.New(cfg.Registry.MasothueBaseURL, session, logger)
	secondary := tvpl.New(cfg.Registry.TVPLSearchURL, session, logger)
	engine := resolve.NewEngine(linker, recoverer, primary, secondary, logger)

	var store *cache.Store
	if cfg.Cache.Enabled && cfg.Cache.Path != "" {
		store, err = cache.Open(cfg.Cache.Path)
		if err != nil {
			_ = session.Close()
			return nil, err
		}
	}

	return New(cfg, logger, Deps{
		Linker:   linker,
		Engine:   engine,
		Session:  session,
		Cache:    store,
		Notifier: notifier,
	}, opts...), nil
}

// Close persists session cookies and releases the cache store.
func (r *Runner) Close() error {
	var firstErr error
	if r.deps.Session != nil {
		if err := r.deps.Session.Close(); err != nil {
			firstErr = err
		}
	}
	if r.deps.Cache != nil {
		if err := r.deps.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// pauseBetween sleeps a uniform random duration in [min, max],
// returning early when the context ends.
func pauseBetween(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Float64() * float64(max-min))
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
