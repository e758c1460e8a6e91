package exam

import "github.com/gokatarajesh/cds-vanguard/internal/question"

// Budgets are per-question time limits in seconds.
type Budgets struct {
	Standard      int
	Comprehension int
	Quantitative  int
}

// DefaultBudgets mirrors the paper: passages get longer, arithmetic longer still.
func DefaultBudgets() Budgets {
	return Budgets{Standard: 45, Comprehension: 90, Quantitative: 120}
}

// For returns the budget for a question on topic. Lookup only, no state.
func (b Budgets) For(topic question.Topic) int {
	switch {
	case question.FormatFor(topic) == question.FormatComprehension:
		return b.Comprehension
	case topic.Section == question.SectionMathematics:
		return b.Quantitative
	default:
		return b.Standard
	}
}
