// Package api exposes the evaluation service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/speakeval/internal/adapters/mq/queue"
	"github.com/okian/speakeval/internal/adapters/repository"
	"github.com/okian/speakeval/internal/domain/dedupe"
	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/internal/domain/tone"
	"github.com/okian/speakeval/internal/domain/types"
	"github.com/okian/speakeval/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an attempt for async evaluation. It fails with
	// queue.ErrFull on backpressure and queue.ErrClosed during shutdown.
	Enqueue(ctx context.Context, a model.Attempt) error

	// Evaluate scores an attempt synchronously without storing it.
	Evaluate(ctx context.Context, a model.Attempt) (types.Evaluation, error)

	// Evaluation returns a stored result or repository.ErrNotFound.
	Evaluation(ctx context.Context, attemptID string) (types.Evaluation, error)

	// LearnerEvaluations returns a learner's stored results, newest first.
	LearnerEvaluations(ctx context.Context, learnerID string, limit int) ([]types.Evaluation, error)

	// AnalyzeTone builds a prosody profile of mono samples in [-1,1].
	AnalyzeTone(ctx context.Context, samples []float64, sampleRate, frameSize int) (tone.Profile, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	attemptsHandler *AttemptsHandler
	toneHandler     *ToneHandler
	logger          logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	sampleRate int
	frameSize  int
	logger     logger.Logger
}

// WithToneDefaults sets the sample rate and frame size assumed when a
// /tone request omits them.
func WithToneDefaults(sampleRate, frameSize int) ServerOption {
	return func(o *serverOptions) {
		if sampleRate > 0 {
			o.sampleRate = sampleRate
		}
		if frameSize > 0 {
			o.frameSize = frameSize
		}
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l logger.Logger) ServerOption {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	o := serverOptions{sampleRate: 16_000, frameSize: 2048}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		attemptsHandler: NewAttemptsHandler(deps, o.logger),
		toneHandler:     NewToneHandler(deps, o.sampleRate, o.frameSize),
		logger:          o.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /evaluate", MetricsMiddleware(s.attemptsHandler.HandleEvaluate, "evaluate"))
	mux.HandleFunc("POST /attempts", MetricsMiddleware(s.attemptsHandler.HandlePostAttempt, "attempts"))
	mux.HandleFunc("GET /attempts/{id}", MetricsMiddleware(s.attemptsHandler.HandleGetAttempt, "attempt"))
	mux.HandleFunc("GET /learners/{id}/evaluations", MetricsMiddleware(s.attemptsHandler.HandleLearnerEvaluations, "learner_evaluations"))
	mux.HandleFunc("POST /tone", MetricsMiddleware(s.toneHandler.HandleTone, "tone"))
}

// Handler returns a mux with every route registered behind panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return RecoverMiddleware(mux, s.logger)
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

// writeKindError maps the error kind to a status code.
func writeKindError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, ErrUnavailable), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
