package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/cds-vanguard/pkg/http/errors"
)

const maxDisplayName = 40

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID, displayName string, guest bool) (string, error)
}

// GuestRequest is the optional body of POST /v1/auth/guest.
type GuestRequest struct {
	DisplayName string `json:"display_name"`
}

// GuestResponse carries the new guest identity.
type GuestResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// HTTPHandlers provides REST endpoints for authentication.
type HTTPHandlers struct {
	tokens    TokenIssuer
	expiresIn int
	logger    zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for auth endpoints.
func NewHTTPHandlers(tokens TokenIssuer, expiresInSeconds int, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		tokens:    tokens,
		expiresIn: expiresInSeconds,
		logger:    logger.With().Str("component", "auth_http").Logger(),
	}
}

// CreateGuest handles POST /v1/auth/guest
func (h *HTTPHandlers) CreateGuest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}

	var req GuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = "Cadet"
	}
	if len(name) > maxDisplayName {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "Display name too long", "display_name")
		return
	}

	userID := uuid.New()
	token, err := h.tokens.Issue(userID, name, true)
	if err != nil {
		h.logger.Error().Err(err).Msg("issue guest token failed")
		httperrors.RespondInternalError(w, "Could not create guest session")
		return
	}

	h.logger.Info().Str("user_id", userID.String()).Msg("guest created")
	httperrors.RespondJSON(w, http.StatusCreated, GuestResponse{
		UserID:      userID.String(),
		DisplayName: name,
		AccessToken: token,
		ExpiresIn:   h.expiresIn,
	})
}
