// Package scoring fills the five category quality dimensions from an external
// popularity source.
//
// The HTTP source is paced with a token-bucket limiter and guarded by a
// circuit breaker so a failing upstream stops receiving traffic. Refresh
// normalizes the raw totals against the largest one into 0..20.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"vaultgallery/internal/config"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/metrics"
)

const userAgent = "VaultGallery/0.1.0"

// Source returns a raw popularity total per category name. Names the source
// could not score are absent from the result.
type Source interface {
	Score(ctx context.Context, names []string) (map[string]int, error)
}

// HTTPSource queries endpoint?q=<name> and reads {"total": N}.
type HTTPSource struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker[int]
	logger   *slog.Logger
}

const breakerName = "scoring-api"

// NewHTTPSource builds the HTTP source from the [scoring] section.
func NewHTTPSource(cfg *config.Config, logger *slog.Logger) *HTTPSource {
	logger = logging.NewComponentLogger(logger, "scoring")
	timeout := time.Duration(cfg.Scoring.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.Scoring.RequestsPerSecond
	if rps <= 0 {
		rps = 0.5
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &HTTPSource{
		endpoint: strings.TrimSpace(cfg.Scoring.Endpoint),
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		cb:       cb,
		logger:   logger,
	}
}

// Score queries every name in turn. Per-name failures are logged and the
// name omitted; an open breaker stops the run early.
func (s *HTTPSource) Score(ctx context.Context, names []string) (map[string]int, error) {
	totals := make(map[string]int, len(names))
	for _, name := range names {
		if err := s.limiter.Wait(ctx); err != nil {
			return totals, err
		}
		total, err := s.cb.Execute(func() (int, error) {
			return s.fetch(ctx, name)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				metrics.ScoringRequests.WithLabelValues("rejected").Inc()
				return totals, fmt.Errorf("scoring source unavailable: %w", err)
			}
			metrics.ScoringRequests.WithLabelValues("failure").Inc()
			s.logger.Warn("score lookup failed",
				logging.String(logging.FieldCategory, name),
				logging.Error(err),
			)
			continue
		}
		metrics.ScoringRequests.WithLabelValues("success").Inc()
		totals[name] = total
	}
	return totals, nil
}

func (s *HTTPSource) fetch(ctx context.Context, name string) (int, error) {
	target, err := url.Parse(s.endpoint)
	if err != nil {
		return 0, fmt.Errorf("parse scoring endpoint: %w", err)
	}
	query := target.Query()
	query.Set("q", name)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("build scoring request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scoring request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("scoring endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode scoring response: %w", err)
	}
	if payload.Total < 0 {
		payload.Total = 0
	}
	return payload.Total, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
