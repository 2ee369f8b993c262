// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/dupscan/internal/domain/errkind"
	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/pkg/logger"
)

const defaultRequestTimeout = 60 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	FindDuplicatesFor(ctx context.Context, tenantID, recordID string, minScore *int) (model.TargetResult, error)
	ScanAllDuplicates(ctx context.Context, tenantID string, minScore *int) (model.ScanResult, error)
	CheckBatchDuplicates(ctx context.Context, tenantID string, candidates []model.DonorRecord, minScore *int) (model.BatchResult, error)

	// SubmitScan queues a full scan. Returns an ErrBackpressure error when the queue is full.
	SubmitScan(ctx context.Context, tenantID string, minScore *int) (model.ScanJob, error)
	ScanJob(ctx context.Context, jobID string) (model.ScanJob, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	duplicatesHandler *DuplicatesHandler
	scansHandler      *ScansHandler

	requestTimeout time.Duration
	logger         logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout bounds the time spent serving one request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		duplicatesHandler: NewDuplicatesHandler(deps),
		scansHandler:      NewScansHandler(deps),
		requestTimeout:    defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.Named("http")
	return s
}

// Router returns a chi router with every API route and the shared middleware.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Get("/donors/{donorID}/duplicates",
				MetricsMiddleware(s.duplicatesHandler.HandleFindDuplicates, "find_duplicates"))
			r.Post("/duplicates/scan",
				MetricsMiddleware(s.duplicatesHandler.HandleScan, "scan_duplicates"))
			r.Post("/duplicates/check",
				MetricsMiddleware(s.duplicatesHandler.HandleCheckBatch, "check_duplicates"))
			r.Post("/scans", MetricsMiddleware(s.scansHandler.HandleSubmit, "submit_scan"))
		})
		r.Get("/scans/{jobID}", MetricsMiddleware(s.scansHandler.HandleGet, "get_scan"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps an error kind to its status code. Internal errors
// never expose their cause.
func writeServiceError(w http.ResponseWriter, err error) {
	switch errkind.KindOf(err) {
	case errkind.ErrNotFound:
		writeError(w, http.StatusNotFound, "not_found", causeOf(err))
	case errkind.ErrInvalidInput:
		writeError(w, http.StatusBadRequest, "invalid_input", causeOf(err))
	case errkind.ErrBackpressure:
		writeError(w, http.StatusTooManyRequests, "backpressure", causeOf(err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// causeOf strips the operation prefix from kinded errors for client messages.
func causeOf(err error) error {
	var ke *errkind.Error
	if errors.As(err, &ke) && ke.Err != nil {
		return ke.Err
	}
	return err
}

// parseMinScore reads the optional minScore query parameter. Range checks
// are left to the engine.
func parseMinScore(r *http.Request) (*int, error) {
	raw := r.URL.Query().Get("minScore")
	if raw == "" {
		return nil, nil //nolint:nilnil // absent parameter means default threshold
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, ErrInvalidMinScore
	}
	return &v, nil
}
