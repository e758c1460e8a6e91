package question

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// GenerateRequest is one prompt sent to the generative service.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
	JSON        bool
}

// TextGenerator is the transport to the generative service. The credential is passed per
// call so rotation stays with the caller.
type TextGenerator interface {
	Generate(ctx context.Context, credential string, req GenerateRequest) (string, error)
}

// BatchRequest describes one bounded request for a slice of the exam.
type BatchRequest struct {
	Topic   Topic
	Count   int
	BatchID string
}

// Fetcher performs exactly one attempt with one credential. Retries live in RetryingFetcher.
type Fetcher struct {
	gen         TextGenerator
	temperature float32
}

// NewFetcher wraps a transport.
func NewFetcher(gen TextGenerator, temperature float32) *Fetcher {
	return &Fetcher{gen: gen, temperature: temperature}
}

// FetchBatch asks for req.Count questions and validates the whole response.
func (f *Fetcher) FetchBatch(ctx context.Context, credential string, req BatchRequest) ([]Question, error) {
	raw, err := f.gen.Generate(ctx, credential, GenerateRequest{
		System:      batchSystemPrompt(req),
		Prompt:      batchUserPrompt(req),
		Temperature: f.temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	return ParseBatch(raw, req)
}

func batchSystemPrompt(req BatchRequest) string {
	var b strings.Builder
	b.WriteString("You are a UPSC CDS examination setter. Difficulty: high, analytical. Style: concise.\n")
	b.WriteString("Return ONLY JSON: an array, or an object with a \"questions\" array. No markdown. No commentary.\n")
	b.WriteString(`Each element: {"id":"string","text":"string","options":["a","b","c","d"],"correctAnswer":0,"explanation":"string"}`)
	b.WriteString("\nRules:\n")
	b.WriteString("- Exactly four options per question.\n")
	b.WriteString("- correctAnswer is the zero-based index of the right option.\n")
	b.WriteString("- ")
	b.WriteString(ConstraintFor(FormatFor(req.Topic)))
	b.WriteString("\n")
	return b.String()
}

func batchUserPrompt(req BatchRequest) string {
	subject := req.Topic.Subject
	if subject == "" {
		subject = string(req.Topic.Section)
	}
	return fmt.Sprintf("Generate exactly %d multiple-choice questions on %q (%s). Batch %s.",
		req.Count, req.Topic.Name, subject, req.BatchID)
}

type rawQuestion struct {
	Text          string          `json:"text"`
	Options       []string        `json:"options"`
	CorrectAnswer *int            `json:"correctAnswer"`
	Explanation   string          `json:"explanation"`
	IntelBrief    *StrategicBrief `json:"intelBrief"`
}

// ParseBatch decodes a generator payload into questions. A batch is all or nothing:
// any malformed item fails the whole batch with ErrBatchParse.
func ParseBatch(raw string, req BatchRequest) ([]Question, error) {
	body := cleanJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrBatchParse)
	}

	var items []rawQuestion
	if strings.HasPrefix(body, "{") {
		var envelope struct {
			Questions []rawQuestion `json:"questions"`
		}
		if err := json.Unmarshal([]byte(body), &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBatchParse, err)
		}
		items = envelope.Questions
	} else if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchParse, err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrBatchParse)
	}
	if req.Count > 0 && len(items) > req.Count {
		items = items[:req.Count]
	}

	questions := make([]Question, 0, len(items))
	for i, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: item %d has no text", ErrBatchParse, i)
		}
		if len(item.Options) < OptionCount {
			return nil, fmt.Errorf("%w: item %d has %d options", ErrBatchParse, i, len(item.Options))
		}
		if item.CorrectAnswer == nil {
			return nil, fmt.Errorf("%w: item %d has no correctAnswer", ErrBatchParse, i)
		}
		answer := *item.CorrectAnswer
		if answer < 0 || answer >= OptionCount {
			return nil, fmt.Errorf("%w: item %d correctAnswer %d out of range", ErrBatchParse, i, answer)
		}

		options := make([]string, OptionCount)
		copy(options, item.Options[:OptionCount])

		questions = append(questions, Question{
			ID:            fmt.Sprintf("%s-q%d", req.BatchID, i),
			Text:          text,
			Options:       options,
			CorrectAnswer: answer,
			Explanation:   strings.TrimSpace(item.Explanation),
			IntelBrief:    item.IntelBrief,
		})
	}
	return questions, nil
}

// cleanJSON strips markdown fences and any prose around the outermost JSON value.
func cleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if i := strings.IndexAny(raw, "[{"); i > 0 {
		raw = raw[i:]
	}
	if j := strings.LastIndexAny(raw, "]}"); j >= 0 && j+1 < len(raw) {
		raw = raw[:j+1]
	}
	return strings.TrimSpace(raw)
}
