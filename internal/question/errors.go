package question

import "errors"

// Supply pipeline error taxonomy. Wrapped errors are matched with errors.Is.
var (
	ErrNoCredentials      = errors.New("no generator credentials configured")
	ErrNetwork            = errors.New("generator network error")
	ErrTimeout            = errors.New("generator request timed out")
	ErrCredentialRejected = errors.New("generator rejected credential")
	ErrBatchParse         = errors.New("malformed batch response")
	ErrBatchExhausted     = errors.New("batch retries exhausted")
	ErrAllBatchesFailed   = errors.New("all batches failed")
)
