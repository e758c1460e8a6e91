package scoring

import (
	"fmt"

	"github.com/gokatarajesh/cds-vanguard/internal/question"
)

// ScoringConfig holds configurable scoring constants (defaults match the CDS paper).
type ScoringConfig struct {
	NegativeMark float64 // default: 1/3 of a mark per wrong answer
	Precision    int     // default: 2 decimals, display only
}

// DefaultScoringConfig returns production defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		NegativeMark: 1.0 / 3.0,
		Precision:    2,
	}
}

// Response is one question's outcome at submission time (kept here to avoid an import cycle).
type Response struct {
	QuestionID     string `json:"questionId"`
	SelectedOption *int   `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
}

// Result is the derived score. Numeric is never rounded; Display is.
type Result struct {
	Correct   int     `json:"correctCount"`
	Wrong     int     `json:"wrongCount"`
	Skipped   int     `json:"skippedCount"`
	Attempted int     `json:"attemptedCount"`
	Numeric   float64 `json:"numericScore"`
	Display   string  `json:"displayScore"`
}

// Engine computes negative-marking scores.
type Engine struct {
	config ScoringConfig
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(config ScoringConfig) *Engine {
	return &Engine{config: config}
}

// Score counts responses against the question list.
// Formula: correct - wrong*negativeMark, where wrong = attempted - correct
// and skipped = len(questions) - attempted.
func (e *Engine) Score(questions []question.Question, responses []Response) Result {
	var r Result
	for _, resp := range responses {
		if resp.SelectedOption == nil {
			continue
		}
		r.Attempted++
		if resp.IsCorrect {
			r.Correct++
		}
	}
	r.Wrong = r.Attempted - r.Correct
	r.Skipped = len(questions) - r.Attempted
	r.Numeric = float64(r.Correct) - float64(r.Wrong)*e.config.NegativeMark
	r.Display = fmt.Sprintf("%.*f", e.config.Precision, r.Numeric)
	return r
}

// Responses derives the per-question outcome from a selection map.
// Unset selections become a nil SelectedOption and count as incorrect.
func Responses(questions []question.Question, selections map[string]int) []Response {
	out := make([]Response, len(questions))
	for i, q := range questions {
		out[i] = Response{QuestionID: q.ID}
		if sel, ok := selections[q.ID]; ok {
			sel := sel
			out[i].SelectedOption = &sel
			out[i].IsCorrect = sel == q.CorrectAnswer
		}
	}
	return out
}
