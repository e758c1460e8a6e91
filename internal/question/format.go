package question

// Format classifies how questions for a topic must be shaped.
type Format string

// Known formats.
const (
	FormatStandard      Format = "standard"
	FormatComprehension Format = "comprehension"
	FormatOrdering      Format = "ordering"
	FormatFillBlank     Format = "fill_blank"
	FormatErrorSpotting Format = "error_spotting"
)

// topicFormats maps topic ids to a non-standard format. Anything absent is FormatStandard.
var topicFormats = map[string]Format{
	"reading-comprehension":  FormatComprehension,
	"comprehension":          FormatComprehension,
	"sentence-rearrangement": FormatOrdering,
	"ordering-of-sentences":  FormatOrdering,
	"ordering-of-words":      FormatOrdering,
	"fill-in-the-blanks":     FormatFillBlank,
	"cloze-test":             FormatFillBlank,
	"spotting-errors":        FormatErrorSpotting,
}

var formatConstraints = map[Format]string{
	FormatStandard:      "Each question is a self-contained stem with four distinct options.",
	FormatComprehension: "Each question must include the short passage it is based on inside the question text, followed by the question.",
	FormatOrdering:      "Each question must present jumbled sentence fragments labelled P, Q, R and S; every option is an ordering of those letters.",
	FormatFillBlank:     "Each question must contain exactly one blank written as ____ and the options are candidate fillers for it.",
	FormatErrorSpotting: "Each question splits a sentence into parts (A), (B), (C) and offers (D) No error; options are A, B, C and D.",
}

// FormatFor classifies a topic.
func FormatFor(topic Topic) Format {
	if f, ok := topicFormats[topic.ID]; ok {
		return f
	}
	return FormatStandard
}

// ConstraintFor returns the formatting instruction sent with a batch request.
func ConstraintFor(f Format) string {
	if c, ok := formatConstraints[f]; ok {
		return c
	}
	return formatConstraints[FormatStandard]
}
