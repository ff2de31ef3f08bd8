package rating

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/config"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/metrics"
)

// Report summarizes one Backfill pass.
type Report struct {
	Scanned int `json:"scanned"`
	Rated   int `json:"rated"`
	Skipped int `json:"skipped"`
}

// Service rates images through follow-ups and backfill passes.
type Service struct {
	store    *catalog.Store
	media    mediastore.Store
	logger   *slog.Logger
	attempts int
	delay    time.Duration

	backfillMu sync.Mutex
	mu         sync.Mutex
	pending    sync.WaitGroup
	closed     atomic.Bool
}

// NewService constructs a rating Service.
func NewService(cfg *config.Config, store *catalog.Store, media mediastore.Store, logger *slog.Logger) *Service {
	attempts := cfg.Rating.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Service{
		store:    store,
		media:    media,
		logger:   logging.NewComponentLogger(logger, "rating"),
		attempts: attempts,
		delay:    cfg.RatingRetryDelay(),
	}
}

// ScheduleFollowUp rates a freshly stored image in the background. The first
// attempt runs immediately; failures retry after the configured delay until
// the attempts run out, leaving the asset to Backfill.
func (s *Service) ScheduleFollowUp(asset *catalog.Asset) {
	if asset == nil || asset.MediaType != catalog.MediaImage {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}
	s.pending.Add(1)
	time.AfterFunc(0, func() { s.followUp(asset, 1) })
}

func (s *Service) followUp(asset *catalog.Asset, attempt int) {
	if s.closed.Load() {
		s.pending.Done()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	value, err := ComputeForAsset(ctx, s.media, asset)
	if err == nil {
		applied, setErr := s.store.SetRating(ctx, asset.ID, value)
		switch {
		case setErr != nil:
			s.logger.Warn("rating follow-up persist failed",
				logging.Int64(logging.FieldAssetID, asset.ID),
				logging.Error(setErr),
			)
			metrics.RecordRating("followup", "failed")
		case applied:
			s.logger.Debug("image rated",
				logging.Int64(logging.FieldAssetID, asset.ID),
				logging.Int("rating", value),
				logging.Int("attempt", attempt),
			)
			metrics.RecordRating("followup", "rated")
		default:
			metrics.RecordRating("followup", "skipped")
		}
		s.pending.Done()
		return
	}

	if attempt >= s.attempts {
		logging.WarnWithContext(s.logger, "rating deferred to backfill", "rating_unavailable", "asset stays unrated until the next backfill",
			logging.Int64(logging.FieldAssetID, asset.ID),
			logging.Int("attempts", attempt),
			logging.Error(err),
		)
		metrics.RecordRating("followup", "unavailable")
		s.pending.Done()
		return
	}
	time.AfterFunc(s.delay, func() { s.followUp(asset, attempt+1) })
}

// Wait blocks until every scheduled follow-up has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Close stops accepting follow-ups and waits for the scheduled ones to drain.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed.Store(true)
	s.mu.Unlock()
	s.pending.Wait()
}

// Backfill rates every unrated image it can read. Failures are logged and
// skipped; repeated runs only touch ratings that are still null.
func (s *Service) Backfill(ctx context.Context) (Report, error) {
	s.backfillMu.Lock()
	defer s.backfillMu.Unlock()

	var report Report
	assets, err := s.store.UnratedImages(ctx, 0)
	if err != nil {
		return report, err
	}
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		value, err := ComputeForAsset(ctx, s.media, asset)
		if err != nil {
			report.Skipped++
			s.logger.Debug("backfill skipped asset",
				logging.Int64(logging.FieldAssetID, asset.ID),
				logging.Error(err),
			)
			metrics.RecordRating("backfill", "unavailable")
			continue
		}
		applied, err := s.store.SetRating(ctx, asset.ID, value)
		if err != nil {
			report.Skipped++
			s.logger.Warn("backfill persist failed",
				logging.Int64(logging.FieldAssetID, asset.ID),
				logging.Error(err),
			)
			metrics.RecordRating("backfill", "failed")
			continue
		}
		if applied {
			report.Rated++
			metrics.RecordRating("backfill", "rated")
		} else {
			metrics.RecordRating("backfill", "skipped")
		}
	}
	if report.Scanned > 0 {
		s.logger.Info("rating backfill complete",
			logging.Int("scanned", report.Scanned),
			logging.Int("rated", report.Rated),
			logging.Int("skipped", report.Skipped),
		)
	}
	return report, nil
}
