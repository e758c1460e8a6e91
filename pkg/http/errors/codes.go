package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeGuestCreationFailed    = "guest_creation_failed"

	// Validation errors
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeMissingField   = "missing_field"
	ErrCodeInvalidOption  = "invalid_option"

	// Resource errors
	ErrCodeNotFound         = "not_found"
	ErrCodeSessionNotFound  = "session_not_found"
	ErrCodeResultNotFound   = "result_not_found"
	ErrCodeQuestionNotFound = "question_not_found"
	ErrCodeUnknownWindow    = "unknown_window"

	// Exam errors
	ErrCodeInvalidState     = "invalid_state"
	ErrCodeSessionFinished  = "session_finished"
	ErrCodeSessionActive    = "session_active"
	ErrCodeNoQuestions      = "no_questions"
	ErrCodeQuotaExhausted   = "quota_exhausted"
	ErrCodeQuotaUnavailable = "quota_unavailable"
	ErrCodePrefetchRejected = "prefetch_rejected"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)
