package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/cds-vanguard/internal/auth"
	httperrors "github.com/gokatarajesh/cds-vanguard/pkg/http/errors"
	ws "github.com/gokatarajesh/cds-vanguard/pkg/http/ws"
)

// ExamFinishedPayload is broadcast once a session has been submitted.
type ExamFinishedPayload struct {
	Session   Snapshot       `json:"session"`
	Responses []UserResponse `json:"responses"`
}

// HubNotifier turns session events into WebSocket messages on the hub.
type HubNotifier struct {
	hub    *ws.Hub
	logger zerolog.Logger
}

func NewHubNotifier(hub *ws.Hub, logger zerolog.Logger) *HubNotifier {
	return &HubNotifier{hub: hub, logger: logger}
}

// Notify never blocks: a watcher with a full queue misses the event.
func (n *HubNotifier) Notify(sessionID string, ev Event) {
	msg, err := EventMessage(ev)
	if err != nil {
		n.logger.Warn().Err(err).Str("session_id", sessionID).Msg("encode session event failed")
		return
	}
	if err := n.hub.Broadcast(sessionID, msg); err != nil {
		n.logger.Debug().Err(err).Str("session_id", sessionID).Str("type", msg.Type).Msg("broadcast incomplete")
	}
}

func (n *HubNotifier) Release(sessionID string) {
	n.hub.CloseSession(sessionID)
}

// EventMessage maps a session event to its wire message.
func EventMessage(ev Event) (ws.Message, error) {
	switch ev.Kind {
	case EventTick:
		return ws.NewMessage(ws.TypeQuestionTick, ws.QuestionTickPayload{
			SessionID:        ev.Snapshot.SessionID,
			QuestionIndex:    ev.Snapshot.Index,
			RemainingSeconds: ev.Snapshot.TimeLeft,
		})
	case EventSubmitPrompt:
		return ws.NewMessage(ws.TypeSubmitPrompt, ev.Snapshot)
	case EventFinished:
		return ws.NewMessage(ws.TypeExamFinished, ExamFinishedPayload{Session: ev.Snapshot, Responses: ev.Responses})
	default:
		return ws.NewMessage(ws.TypeSessionState, ev.Snapshot)
	}
}

// Upgrader upgrades HTTP connections to WebSocket.
type Upgrader interface {
	Upgrade(w http.ResponseWriter, r *http.Request, responseHeader http.Header) (*websocket.Conn, error)
}

// WSHandler streams a session's timer and state to the candidate and accepts exam actions.
type WSHandler struct {
	service  *Service
	hub      *ws.Hub
	upgrader Upgrader
	logger   zerolog.Logger
}

// NewWSHandler creates the session WebSocket handler.
func NewWSHandler(service *Service, hub *ws.Hub, upgrader Upgrader, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service:  service,
		hub:      hub,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "exam_ws").Logger(),
	}
}

// HandleWebSocket handles GET /ws/sessions/{id}. Claims come from the auth middleware.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}
	sessionID := r.PathValue("id")
	snap, err := h.service.Snapshot(userID, sessionID)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Exam session not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.serve(conn, userID, sessionID, snap)
}

func (h *WSHandler) serve(conn *websocket.Conn, userID, sessionID string, snap Snapshot) {
	logger := h.logger.With().Str("session_id", sessionID).Str("user_id", userID).Logger()
	wsConn := ws.NewConnection(conn, logger)
	h.hub.Subscribe(sessionID, wsConn)
	go wsConn.WritePump()

	if msg, err := ws.NewMessage(ws.TypeSessionState, snap); err == nil {
		_ = wsConn.Send(msg)
	}

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), wsConn, userID, sessionID, msg)
	})

	h.hub.Unsubscribe(sessionID, wsConn)
}

// handleMessage routes incoming WebSocket messages. State changes reach the client through the hub.
func (h *WSHandler) handleMessage(ctx context.Context, conn *ws.Connection, userID, sessionID string, msg ws.Message) error {
	var err error
	switch msg.Type {
	case ws.TypePing:
		return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
	case ws.TypeSelect, ws.TypeEliminate:
		var payload ws.OptionPayload
		if jsonErr := json.Unmarshal(msg.Payload, &payload); jsonErr != nil {
			return h.sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid option payload")
		}
		if payload.Option == nil {
			return h.sendError(conn, msg.RequestID, httperrors.ErrCodeMissingField, "Option is required")
		}
		if msg.Type == ws.TypeSelect {
			_, err = h.service.Select(userID, sessionID, *payload.Option)
		} else {
			_, err = h.service.Eliminate(userID, sessionID, *payload.Option)
		}
	case ws.TypeNext:
		_, err = h.service.Next(userID, sessionID)
	case ws.TypePrevious:
		_, err = h.service.Previous(userID, sessionID)
	case ws.TypeSubmit:
		_, err = h.service.RequestSubmit(userID, sessionID)
	case ws.TypeCancelSubmit:
		_, err = h.service.CancelSubmit(userID, sessionID)
	case ws.TypeConfirmSubmit:
		_, err = h.service.Submit(ctx, userID, sessionID)
	default:
		return h.sendError(conn, msg.RequestID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}

	if err != nil {
		return h.sendError(conn, msg.RequestID, errorCode(err), err.Error())
	}
	return nil
}

func (h *WSHandler) sendError(conn *ws.Connection, requestID, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return conn.Send(msg)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionNotFound):
		return httperrors.ErrCodeSessionNotFound
	case errors.Is(err, ErrInvalidOption):
		return httperrors.ErrCodeInvalidOption
	case errors.Is(err, ErrSessionFinished):
		return httperrors.ErrCodeSessionFinished
	case errors.Is(err, ErrNotInProgress), errors.Is(err, ErrNotAwaitingConfirmation):
		return httperrors.ErrCodeInvalidState
	default:
		return httperrors.ErrCodeInternalError
	}
}
