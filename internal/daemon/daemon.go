package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/chatops"
	"vaultgallery/internal/config"
	"vaultgallery/internal/curation"
	"vaultgallery/internal/fetch"
	"vaultgallery/internal/ingest"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/notifications"
	"vaultgallery/internal/preflight"
	"vaultgallery/internal/rating"
	"vaultgallery/internal/resolver"
	"vaultgallery/internal/scoring"
	"vaultgallery/internal/selection"
)

const drainTimeout = 30 * time.Second

// Dependencies are the external collaborators the daemon is built from.
// Nil Fetcher and Notifier fall back to the configured implementations;
// a nil ScoreSource disables score refreshes unless scoring is enabled.
type Dependencies struct {
	Store       *catalog.Store
	Media       mediastore.Store
	Fetcher     fetch.Fetcher
	Notifier    notifications.Service
	ScoreSource scoring.Source
}

// Daemon coordinates the vault services and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *catalog.Store
	media    mediastore.Store
	resolver *resolver.Resolver
	engine   *selection.Engine
	ratings  *rating.Service
	ingest   *ingest.Coordinator
	chat     *chatops.Handler
	curation *curation.Service
	scores   *scoring.Refresher

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	jobs      sync.WaitGroup
	startedAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool               `json:"running"`
	StartedAt      *time.Time         `json:"started_at,omitempty"`
	DatabasePath   string             `json:"database_path"`
	LockFilePath   string             `json:"lock_file_path"`
	StorageBackend string             `json:"storage_backend"`
	PendingGroups  int                `json:"pending_groups"`
	Stats          catalog.Stats      `json:"stats"`
	Checks         []preflight.Result `json:"checks"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Media == nil {
		return nil, errors.New("daemon requires config, store, and media storage")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(cfg)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	source := deps.ScoreSource
	if source == nil && cfg.Scoring.Enabled {
		source = scoring.NewHTTPSource(cfg, logger)
	}

	res := resolver.New(deps.Store, logger)
	engine := selection.New(deps.Store, cfg, selection.WithMedia(deps.Media, logger))
	ratings := rating.NewService(cfg, deps.Store, deps.Media, logger)
	cur := curation.New(deps.Store, deps.Media, logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "vaultd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    deps.Store,
		media:    deps.Media,
		resolver: res,
		engine:   engine,
		ratings:  ratings,
		curation: cur,
		chat:     chatops.NewHandler(cfg, deps.Store, res, engine, cur, logger),
		ingest: ingest.NewCoordinator(cfg, ingest.Dependencies{
			Resolver: res,
			Store:    deps.Store,
			Fetcher:  fetcher,
			Media:    deps.Media,
			Ratings:  ratings,
			Notifier: notifier,
		}, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	if source != nil {
		d.scores = scoring.NewRefresher(deps.Store, source, logger)
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, runs startup maintenance, and launches the
// API server and background jobs.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vault daemon instance is already running")
	}

	if failed, found := preflight.FirstRequiredFailure(preflight.RunAll(ctx, d.cfg)); found {
		_ = d.lock.Unlock()
		return fmt.Errorf("preflight %s failed: %s", failed.Name, failed.Detail)
	}

	if d.cfg.Maintenance.MergeOnStart {
		report, err := d.resolver.MergeDuplicates(ctx)
		if err != nil {
			_ = d.lock.Unlock()
			return fmt.Errorf("merge categories: %w", err)
		}
		if report.Changed() {
			d.logger.Info("startup merge applied",
				logging.Int("groups", report.Groups),
				logging.Int("removed", report.Removed),
				logging.Int64("reassigned", report.Reassigned),
			)
		}
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("start api: %w", err)
	}

	d.jobs.Add(1)
	go d.runBackfill(d.ctx)
	if d.scores != nil && d.cfg.Scoring.ScoreOnStart {
		d.jobs.Add(1)
		go d.runScoreRefresh(d.ctx)
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("vault daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

// Stop drains buffered uploads, stops background jobs, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	if err := d.ingest.Drain(drainCtx); err != nil {
		logging.WarnWithContext(d.logger, "upload drain incomplete", "drain_timeout", "buffered uploads may be lost",
			logging.Error(err))
	}
	cancel()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.jobs.Wait()
	d.ratings.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("vault daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Address returns the API listen address once started.
func (d *Daemon) Address() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:        d.running.Load(),
		DatabasePath:   d.cfg.DatabasePath(),
		LockFilePath:   d.lockPath,
		StorageBackend: d.cfg.Storage.Backend,
		PendingGroups:  d.ingest.Pending(),
		Checks:         preflight.RunAll(ctx, d.cfg),
	}
	if status.Running {
		started := d.startedAt
		status.StartedAt = &started
	}
	if stats, err := d.engine.Stats(ctx, nil); err == nil {
		status.Stats = stats
	} else {
		d.logger.Warn("status stats unavailable", logging.Error(err))
	}
	return status
}

// RefreshScores runs the scoring collaborator once.
func (d *Daemon) RefreshScores(ctx context.Context) (scoring.RefreshReport, error) {
	if d.scores == nil {
		return scoring.RefreshReport{}, errScoringDisabled
	}
	return d.scores.Refresh(ctx)
}

func (d *Daemon) runBackfill(ctx context.Context) {
	defer d.jobs.Done()
	d.backfillOnce(ctx)

	interval := d.cfg.BackfillInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.backfillOnce(ctx)
		}
	}
}

func (d *Daemon) backfillOnce(ctx context.Context) {
	if _, err := d.ratings.Backfill(ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("rating backfill failed", logging.Error(err))
	}
}

func (d *Daemon) runScoreRefresh(ctx context.Context) {
	defer d.jobs.Done()
	if _, err := d.scores.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(d.logger, "startup score refresh failed", "score_refresh_failed",
			"category scores left unchanged", logging.Error(err))
	}
}
