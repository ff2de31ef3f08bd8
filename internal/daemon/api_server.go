package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vaultgallery/internal/config"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/metrics"
	"vaultgallery/internal/vaulterr"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.API.Bind),
		token:  cfg.API.Token,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the API router, mainly for tests.
func (d *Daemon) Handler() http.Handler {
	return d.api.server.Handler
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.instrument)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.token))

		r.Get("/status", s.handleStatus)

		r.Post("/submissions", s.handleSubmission)
		r.Post("/commands", s.handleCommand)

		r.Get("/random", s.handleRandom)
		r.Get("/latest", s.handleLatest)
		r.Get("/stats", s.handleStats)
		r.Get("/assets/{id}/content", s.handleAssetContent)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/{id}/assets", s.handleCategoryAssets)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Post("/assets/{id}/rating", s.handleSubmitRating)
		r.Delete("/assets/{id}", s.handleDeleteAsset)

		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/delete-random", s.handleDeleteRandom)
			r.Post("/wipe", s.handleWipe)
			r.Post("/merge", s.handleMerge)
			r.Post("/backfill", s.handleBackfill)
			r.Post("/scores", s.handleScores)
		})

		r.Route("/insights", func(r chi.Router) {
			r.Get("/", s.handleInsights)
			r.Get("/top", s.handleTopRated)
			r.Get("/recent", s.handleRecent)
			r.Get("/pending-captions", s.handlePendingCaptions)
		})
	})
	return r
}

// instrument tags the request context with its request id and records
// Prometheus request metrics by route pattern.
func (s *apiServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, route, status, time.Since(start))
		logging.WithContext(ctx, s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("route", route),
			logging.Int("status", status),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

// writeError maps err onto the vault error taxonomy.
func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := vaulterr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	body := errorResponse{Error: vaulterr.UserMessage(err), Kind: vaulterr.Kind(err)}
	var ambiguous *vaulterr.AmbiguousCategoryError
	if errors.As(err, &ambiguous) {
		body.Candidates = ambiguous.Candidates
	}
	var missing *vaulterr.CategoryNotFoundError
	if errors.As(err, &missing) {
		body.Suggestions = missing.Suggestions
	}
	s.writeJSON(w, status, body)
}

type errorResponse struct {
	Error       string   `json:"error"`
	Kind        string   `json:"kind"`
	Candidates  []string `json:"candidates,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Kind: kind})
}
