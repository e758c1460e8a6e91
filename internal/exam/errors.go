package exam

import "errors"

var (
	ErrSessionNotFound         = errors.New("exam session not found")
	ErrNoQuestions             = errors.New("exam session needs at least one question")
	ErrNotInProgress           = errors.New("exam session is not in progress")
	ErrNotAwaitingConfirmation = errors.New("exam session is not awaiting submit confirmation")
	ErrInvalidOption           = errors.New("option index out of range")
	ErrSessionFinished         = errors.New("exam session already finished")
	ErrResultNotFound          = errors.New("exam result not found")
	ErrQuestionNotFound        = errors.New("question not found in session")
	ErrSessionActive           = errors.New("exam session still in progress")
)
