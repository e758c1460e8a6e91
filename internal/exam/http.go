package exam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/cds-vanguard/internal/auth"
	"github.com/gokatarajesh/cds-vanguard/internal/db/queries"
	"github.com/gokatarajesh/cds-vanguard/internal/question"
	"github.com/gokatarajesh/cds-vanguard/internal/quota"
	httperrors "github.com/gokatarajesh/cds-vanguard/pkg/http/errors"
)

type quotaReader interface {
	Get(ctx context.Context, userID string) (quota.Usage, error)
}

type attemptLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]queries.ExamAttempt, error)
}

// StartRequest is the body of POST /v1/sessions.
type StartRequest struct {
	Topic question.Topic `json:"topic"`
	Count int            `json:"count"`
}

// OptionRequest is the body of select and eliminate.
type OptionRequest struct {
	Option *int `json:"option"`
}

// HTTPHandlers provides REST endpoints for exam sessions.
type HTTPHandlers struct {
	service  *Service
	quota    quotaReader
	attempts attemptLister
	prefetch chan<- question.PrefetchRequest
	logger   zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for exam endpoints. quota, attempts and prefetch may be nil.
func NewHTTPHandlers(service *Service, quota quotaReader, attempts attemptLister, prefetch chan<- question.PrefetchRequest, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service:  service,
		quota:    quota,
		attempts: attempts,
		prefetch: prefetch,
		logger:   logger.With().Str("component", "exam_http").Logger(),
	}
}

// Register mounts the exam routes. wrap is applied to every handler (auth).
func (h *HTTPHandlers) Register(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"POST /v1/sessions":                           h.StartSession,
		"GET /v1/sessions/{id}":                       h.GetSession,
		"DELETE /v1/sessions/{id}":                    h.DiscardSession,
		"POST /v1/sessions/{id}/select":               h.optionAction(h.service.Select),
		"POST /v1/sessions/{id}/eliminate":            h.optionAction(h.service.Eliminate),
		"POST /v1/sessions/{id}/next":                 h.action(h.service.Next),
		"POST /v1/sessions/{id}/previous":             h.action(h.service.Previous),
		"POST /v1/sessions/{id}/submit":               h.action(h.service.RequestSubmit),
		"POST /v1/sessions/{id}/submit/cancel":        h.action(h.service.CancelSubmit),
		"POST /v1/sessions/{id}/submit/confirm":       h.ConfirmSubmit,
		"GET /v1/sessions/{id}/result":                h.GetResult,
		"GET /v1/sessions/{id}/questions/{qid}/brief": h.GetBrief,
		"POST /v1/prefetch":                           h.Prefetch,
		"GET /v1/quota":                               h.GetQuota,
		"GET /v1/attempts":                            h.ListAttempts,
	}
	for pattern, handler := range routes {
		mux.Handle(pattern, wrap(handler))
	}
}

// StartSession handles POST /v1/sessions
func (h *HTTPHandlers) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Topic.ID) == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "Topic id is required", "topic.id")
		return
	}
	if req.Topic.Name == "" {
		req.Topic.Name = req.Topic.ID
	}

	userID := auth.UserID(r.Context())
	started, err := h.service.StartSession(r.Context(), userID, req.Topic, req.Count)
	if err != nil {
		h.respondServiceError(w, err, userID)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, started)
}

// GetSession handles GET /v1/sessions/{id}
func (h *HTTPHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	h.action(h.service.Snapshot)(w, r)
}

// DiscardSession handles DELETE /v1/sessions/{id}
func (h *HTTPHandlers) DiscardSession(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if err := h.service.Discard(userID, r.PathValue("id")); err != nil {
		h.respondServiceError(w, err, userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) action(fn func(userID, id string) (Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		snap, err := fn(userID, r.PathValue("id"))
		if err != nil {
			h.respondServiceError(w, err, userID)
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, snap)
	}
}

func (h *HTTPHandlers) optionAction(fn func(userID, id string, option int) (Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		if req.Option == nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "Option is required", "option")
			return
		}
		userID := auth.UserID(r.Context())
		snap, err := fn(userID, r.PathValue("id"), *req.Option)
		if err != nil {
			h.respondServiceError(w, err, userID)
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, snap)
	}
}

// ConfirmSubmit handles POST /v1/sessions/{id}/submit/confirm
func (h *HTTPHandlers) ConfirmSubmit(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	result, err := h.service.Submit(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.respondServiceError(w, err, userID)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, result)
}

// GetResult handles GET /v1/sessions/{id}/result
func (h *HTTPHandlers) GetResult(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	result, err := h.service.Result(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.respondServiceError(w, err, userID)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, result)
}

// GetBrief handles GET /v1/sessions/{id}/questions/{qid}/brief
func (h *HTTPHandlers) GetBrief(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	enrichment, err := h.service.Brief(r.Context(), userID, r.PathValue("id"), r.PathValue("qid"))
	if err != nil {
		h.respondServiceError(w, err, userID)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, enrichment)
}

// Prefetch handles POST /v1/prefetch. The pack is generated in the background.
func (h *HTTPHandlers) Prefetch(w http.ResponseWriter, r *http.Request) {
	if h.prefetch == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "Prefetch is disabled")
		return
	}
	var req question.PrefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Topic.ID) == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "Topic id is required", "topic.id")
		return
	}
	if req.Topic.Name == "" {
		req.Topic.Name = req.Topic.ID
	}
	// Same bound as StartSession, so the cached pack is found under the count a session asks for.
	req.Count = h.service.TargetCount(req.Count)

	select {
	case h.prefetch <- req:
		httperrors.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "topic": req.Topic.ID})
	default:
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodePrefetchRejected, "Prefetch queue is full")
	}
}

// GetQuota handles GET /v1/quota
func (h *HTTPHandlers) GetQuota(w http.ResponseWriter, r *http.Request) {
	if h.quota == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeQuotaUnavailable, "Quota tracking is disabled")
		return
	}
	usage, err := h.quota.Get(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Msg("read quota failed")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeQuotaUnavailable, "Quota unavailable")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, usage)
}

// ListAttempts handles GET /v1/attempts?limit=N
func (h *HTTPHandlers) ListAttempts(w http.ResponseWriter, r *http.Request) {
	if h.attempts == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "Attempt history is disabled")
		return
	}
	userID, err := uuid.Parse(auth.UserID(r.Context()))
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	attempts, err := h.attempts.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("list attempts failed")
		httperrors.RespondInternalError(w, "Could not load attempts")
		return
	}
	if attempts == nil {
		attempts = []queries.ExamAttempt{}
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, quota.ErrExhausted):
		httperrors.RespondTooManyRequests(w, httperrors.ErrCodeQuotaExhausted, "Daily quota exhausted")
	case errors.Is(err, ErrSessionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Exam session not found")
	case errors.Is(err, ErrResultNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeResultNotFound, "Exam result not found")
	case errors.Is(err, ErrQuestionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionNotFound, "Question not found")
	case errors.Is(err, ErrInvalidOption):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidOption, "Option index out of range")
	case errors.Is(err, ErrSessionFinished):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionFinished, err.Error())
	case errors.Is(err, ErrSessionActive):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionActive, err.Error())
	case errors.Is(err, ErrNotInProgress), errors.Is(err, ErrNotAwaitingConfirmation):
		httperrors.RespondConflict(w, httperrors.ErrCodeInvalidState, err.Error())
	case errors.Is(err, ErrNoQuestions):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeNoQuestions, "No questions available")
	default:
		h.logger.Error().Err(err).Str("user_id", userID).Msg("exam request failed")
		httperrors.RespondInternalError(w, "Internal error")
	}
}
