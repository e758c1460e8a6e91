package standings

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/cds-vanguard/pkg/http/errors"
)

type topReader interface {
	Top(ctx context.Context, topicID, window string, limit int) ([]Entry, error)
}

// HTTPHandler exposes topic standings over REST.
type HTTPHandler struct {
	svc    topReader
	logger zerolog.Logger
}

func NewHTTPHandler(svc topReader, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "standings_http").Logger(),
	}
}

// HandleGet handles GET /v1/standings/{topic}?window=daily&limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	topicID := r.PathValue("topic")
	if topicID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "topic is required")
		return
	}

	window := r.URL.Query().Get("window")
	if window == "" {
		window = WindowAllTime
	}
	if !IsValidWindow(window) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownWindow, "unknown standings window")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	entries, err := h.svc.Top(r.Context(), topicID, window, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topicID).Str("window", window).Msg("standings fetch failed")
		httperrors.RespondInternalError(w, "failed to load standings")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]any{
		"topic":   topicID,
		"window":  window,
		"entries": entries,
	})
}
