package question

// OptionCount is the fixed number of options every question carries.
const OptionCount = 4

// Section is the exam paper a topic belongs to.
type Section string

// Exam sections.
const (
	SectionEnglish     Section = "english"
	SectionMathematics Section = "mathematics"
	SectionGK          Section = "general_knowledge"
)

// Source constants describe where a pack came from.
const (
	SourceLive     = "live"
	SourceCache    = "prefetched"
	SourceFallback = "fallback"
)

// Topic identifies what a pack is generated for. The taxonomy itself lives with the caller.
type Topic struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Subject string  `json:"subject,omitempty"`
	Section Section `json:"section"`
}

// StrategicBrief is optional per-question enrichment.
type StrategicBrief struct {
	CorePrinciple     string `json:"corePrinciple"`
	ExamContext       string `json:"examContext"`
	StrategicApproach string `json:"strategicApproach"`
	RecallHint        string `json:"recallHint"`
}

// Question is the normalized multiple-choice item. Immutable once produced.
type Question struct {
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	Options       []string        `json:"options"`
	CorrectAnswer int             `json:"correctAnswer"`
	Explanation   string          `json:"explanation,omitempty"`
	IntelBrief    *StrategicBrief `json:"intelBrief,omitempty"`
}

// Valid reports whether q satisfies the option/answer invariants.
func (q Question) Valid() bool {
	return len(q.Options) == OptionCount && q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options)
}

// Public strips the answer key and enrichment for delivery during a live exam.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: q.Options}
}

// PublicQuestion is what a candidate sees while the exam runs.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// Pack holds a supplied question list and how it was obtained.
type Pack struct {
	Topic     Topic      `json:"topic"`
	Questions []Question `json:"questions"`
	Source    string     `json:"source"`
	Requested int        `json:"requested"`
	Degraded  bool       `json:"degraded"`
	Warning   string     `json:"warning,omitempty"`
}
