package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/speakeval/internal/adapters/mq/queue"
	"github.com/okian/speakeval/pkg/logger"
)

const defaultLearnerLimit = 20

// AttemptsHandler handles attempt submission and result lookups.
type AttemptsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewAttemptsHandler creates a new attempts handler.
func NewAttemptsHandler(deps Dependencies, log logger.Logger) *AttemptsHandler {
	return &AttemptsHandler{deps: deps, logger: log}
}

type ackResponse struct {
	Status    string `json:"status"`
	AttemptID string `json:"attempt_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandleEvaluate handles POST /evaluate: score now and return the result.
func (h *AttemptsHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	var req attemptRequest
	if err := decodeJSON(r, maxAttemptBody, &req); err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := req.toAttempt()
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a.SubmittedAt = time.Now().UTC()

	eval, err := h.deps.Evaluate(r.Context(), a)
	if err != nil {
		h.logger.Warn(r.Context(), "evaluation failed", logger.String("attempt_id", a.AttemptID), logger.Error(err))
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

// HandlePostAttempt handles POST /attempts: queue for async evaluation.
// Attempt IDs are idempotency keys; a repeat is acknowledged as a duplicate.
func (h *AttemptsHandler) HandlePostAttempt(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_attempt"
	var req attemptRequest
	if err := decodeJSON(r, maxAttemptBody, &req); err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := req.toAttempt()
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a.SubmittedAt = time.Now().UTC()

	if h.deps.SeenAndRecord(r.Context(), a.AttemptID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", AttemptID: a.AttemptID, Duplicate: true})
		return
	}
	if err := h.deps.Enqueue(r.Context(), a); err != nil {
		h.deps.Unrecord(r.Context(), a.AttemptID)
		writeKindError(w, WrapKind(op, enqueueKind(err), err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", AttemptID: a.AttemptID})
}

// HandleGetAttempt handles GET /attempts/{id}.
func (h *AttemptsHandler) HandleGetAttempt(w http.ResponseWriter, r *http.Request) {
	eval, err := h.deps.Evaluation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

// HandleLearnerEvaluations handles GET /learners/{id}/evaluations?limit=N.
func (h *AttemptsHandler) HandleLearnerEvaluations(w http.ResponseWriter, r *http.Request) {
	const op = "api.learner_evaluations"
	limit := defaultLearnerLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeKindError(w, WrapKind(op, ErrBadRequest, strconv.ErrSyntax))
			return
		}
		limit = n
	}
	evals, err := h.deps.LearnerEvaluations(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"learner_id":  r.PathValue("id"),
		"evaluations": evals,
	})
}

// enqueueKind classifies an enqueue failure. A full queue is backpressure; a
// closed queue or an abandoned request means the service cannot take work.
func enqueueKind(err error) error {
	switch {
	case errors.Is(err, queue.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ErrUnavailable
	default:
		return ErrBackpressure
	}
}
