// Package http exposes the service's HTTP surface: health, metrics, the
// on-demand load trigger, and the read queries over persisted telemetry.
package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetsight/vehicle-telemetry-etl/internal/domain"
	"github.com/fleetsight/vehicle-telemetry-etl/internal/pipeline"
)

// LoadRunner triggers a full pipeline run for one file.
type LoadRunner interface {
	LoadFile(ctx context.Context, path string) (pipeline.Report, error)
}

// Querier serves the read side over persisted telemetry.
type Querier interface {
	VINs(ctx context.Context) ([]string, error)
	Companies(ctx context.Context, vin string) ([]string, error)
	SamplesInRange(ctx context.Context, vin string, start, end time.Time) ([]domain.TelemetrySample, error)
	VehicleStats(ctx context.Context, vin string) (domain.VehicleStats, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Config holds the server's wiring that isn't a collaborator.
type Config struct {
	Addr     string
	CSVPath  string
	APIToken string // empty disables the token check
}

// Server exposes health, readiness, metrics, and the query API.
type Server struct {
	httpServer *http.Server
	loader     LoadRunner
	store      Querier
	csvPath    string
	apiToken   string
	logger     *slog.Logger
}

// NewServer builds the router and wraps it in an http.Server with sane timeouts.
func NewServer(cfg Config, loader LoadRunner, store Querier, ready ReadinessChecker, logger *slog.Logger) *Server {
	s := &Server{
		loader:   loader,
		store:    store,
		csvPath:  cfg.CSVPath,
		apiToken: cfg.APIToken,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/load", s.handleLoad)
		r.Get("/vins", s.handleVINs)
		r.Get("/companies", s.handleCompanies)
		r.Get("/samples", s.handleSamples)
		r.Get("/stats", s.handleStats)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // a load run happens inside one request
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// requireToken gates the API routes behind a static bearer token. With no
// token configured the check is disabled (local development).
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.apiToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	report, err := s.loader.LoadFile(r.Context(), s.csvPath)
	if err != nil {
		s.logger.Error("load request failed", "error", err)
		// The report still carries how far the load got before failing.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"report": report,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func (s *Server) handleVINs(w http.ResponseWriter, r *http.Request) {
	vins, err := s.store.VINs(r.Context())
	if err != nil {
		s.serverError(w, "list vins", err)
		return
	}
	if vins == nil {
		vins = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"vins": vins})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	vin := r.URL.Query().Get("vin")
	companies, err := s.store.Companies(r.Context(), vin)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown vin"})
		return
	}
	if err != nil {
		s.serverError(w, "list companies", err)
		return
	}
	if companies == nil {
		companies = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be RFC 3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be RFC 3339"})
		return
	}
	if end.Before(start) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end before start"})
		return
	}

	samples, err := s.store.SamplesInRange(r.Context(), q.Get("vin"), start, end)
	if err != nil {
		s.serverError(w, "query samples", err)
		return
	}
	if samples == nil {
		samples = []domain.TelemetrySample{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": samples})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	vin := r.URL.Query().Get("vin")
	if vin == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "vin is required"})
		return
	}

	stats, err := s.store.VehicleStats(r.Context(), vin)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown vin"})
		return
	}
	if err != nil {
		s.serverError(w, "query stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
