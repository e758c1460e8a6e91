package ws

import (
	"encoding/json"
	"fmt"
)

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSelect        = "select"
	TypeEliminate     = "eliminate"
	TypeNext          = "next"
	TypePrevious      = "previous"
	TypeSubmit        = "submit"
	TypeConfirmSubmit = "confirm_submit"
	TypeCancelSubmit  = "cancel_submit"

	// Server -> Client
	TypeSessionState = "session_state"
	TypeQuestionTick = "question_tick"
	TypeSubmitPrompt = "submit_prompt"
	TypeExamFinished = "exam_finished"
	TypeError        = "error"
	TypePing         = "ping"
	TypePong         = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a message of the given type.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	msg.Payload = data
	return msg, nil
}

// Client Messages (incoming)

// OptionPayload carries the option index for select and eliminate.
type OptionPayload struct {
	Option *int `json:"option"`
}

// Server Messages (outgoing)

type QuestionTickPayload struct {
	SessionID        string `json:"session_id"`
	QuestionIndex    int    `json:"question_index"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
