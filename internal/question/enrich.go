package question

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Enrichment is the post-answer material shown for one question.
type Enrichment struct {
	Explanation string         `json:"explanation"`
	Brief       StrategicBrief `json:"brief"`
	Generic     bool           `json:"generic"`
}

// GenericBrief is served whenever enrichment cannot be produced.
var GenericBrief = StrategicBrief{
	CorePrinciple:     "Focus on fundamentals.",
	ExamContext:       "High priority.",
	StrategicApproach: "1. Read. 2. Eliminate. 3. Select.",
	RecallHint:        "Use acronyms.",
}

type enrichmentCache interface {
	GetEnrichment(ctx context.Context, questionID string) (*Enrichment, error)
	SetEnrichment(ctx context.Context, questionID string, e Enrichment) error
}

// Enricher fetches strategic briefs lazily, one question at a time.
type Enricher struct {
	gen     TextGenerator
	pool    credentialSource
	cache   enrichmentCache
	timeout time.Duration
	logger  zerolog.Logger
}

func NewEnricher(gen TextGenerator, pool credentialSource, cache enrichmentCache, timeout time.Duration, logger zerolog.Logger) *Enricher {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Enricher{
		gen:     gen,
		pool:    pool,
		cache:   cache,
		timeout: timeout,
		logger:  logger.With().Str("component", "enricher").Logger(),
	}
}

// Enrich never fails. Anything that goes wrong degrades to GenericBrief.
func (e *Enricher) Enrich(ctx context.Context, topic Topic, q Question) Enrichment {
	if q.IntelBrief != nil {
		return Enrichment{Explanation: q.Explanation, Brief: *q.IntelBrief}
	}

	if e.cache != nil {
		if cached, err := e.cache.GetEnrichment(ctx, q.ID); err == nil && cached != nil {
			return *cached
		}
	}

	out, err := e.generate(ctx, topic, q)
	if err != nil {
		briefFallbacks.Inc()
		e.logger.Warn().Err(err).Str("question_id", q.ID).Msg("enrichment failed, serving generic brief")
		return Enrichment{Explanation: q.Explanation, Brief: GenericBrief, Generic: true}
	}

	if e.cache != nil {
		if err := e.cache.SetEnrichment(ctx, q.ID, out); err != nil {
			e.logger.Debug().Err(err).Str("question_id", q.ID).Msg("enrichment not cached")
		}
	}
	return out
}

func (e *Enricher) generate(ctx context.Context, topic Topic, q Question) (Enrichment, error) {
	if e.gen == nil {
		return Enrichment{}, ErrNoCredentials
	}
	credential, err := e.pool.Next()
	if err != nil {
		return Enrichment{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.gen.Generate(ctx, credential, GenerateRequest{
		System:      "You are a UPSC CDS mentor. Return ONLY a JSON object. No markdown.",
		Prompt:      enrichPrompt(topic, q),
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		return Enrichment{}, err
	}
	return parseEnrichment(raw, q)
}

func enrichPrompt(topic Topic, q Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nQuestion: %s\n", topic.Name, q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, opt)
	}
	if q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options) {
		fmt.Fprintf(&b, "Correct: %s\n", q.Options[q.CorrectAnswer])
	}
	b.WriteString(`Respond as {"explanation":"string","intelBrief":{"corePrinciple":"string","examContext":"string","strategicApproach":"string","recallHint":"string"}}`)
	return b.String()
}

func parseEnrichment(raw string, q Question) (Enrichment, error) {
	var payload struct {
		Explanation string          `json:"explanation"`
		IntelBrief  *StrategicBrief `json:"intelBrief"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &payload); err != nil {
		return Enrichment{}, fmt.Errorf("%w: %v", ErrBatchParse, err)
	}
	if payload.IntelBrief == nil || payload.IntelBrief.CorePrinciple == "" {
		return Enrichment{}, fmt.Errorf("%w: brief missing", ErrBatchParse)
	}
	explanation := strings.TrimSpace(payload.Explanation)
	if explanation == "" {
		explanation = q.Explanation
	}
	return Enrichment{Explanation: explanation, Brief: *payload.IntelBrief}, nil
}
