package question

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const defaultProceduralCount = 10

// FallbackProvider produces questions without touching the network. It never fails.
type FallbackProvider struct {
	count int
}

// NewFallbackProvider sets how many procedural questions are synthesized when no bank matches.
func NewFallbackProvider(count int) *FallbackProvider {
	if count <= 0 {
		count = defaultProceduralCount
	}
	return &FallbackProvider{count: count}
}

// Provide resolves an exact bank, then a category bank, then synthesizes from templates.
// Structure is stable per topic; ids are minted on every call.
func (p *FallbackProvider) Provide(topic Topic) []Question {
	if bank, ok := curatedTopics[topic.ID]; ok {
		return freshCopy(bank)
	}
	if bank := categoryBank(topic.ID); bank != nil {
		return freshCopy(bank)
	}
	return p.procedural(topic)
}

func categoryBank(topicID string) []Question {
	id := strings.ToLower(topicID)
	for _, rule := range categoryRules {
		for _, marker := range rule.markers {
			if strings.Contains(id, marker) {
				return rule.bank
			}
		}
	}
	return nil
}

func freshCopy(bank []Question) []Question {
	out := make([]Question, len(bank))
	for i, q := range bank {
		q.ID = q.ID + "-" + uuid.NewString()
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

func (p *FallbackProvider) procedural(topic Topic) []Question {
	name := topic.Name
	if name == "" {
		name = topic.ID
	}
	slug := strings.ToLower(strings.Join(strings.Fields(name), "-"))

	out := make([]Question, p.count)
	for i := range out {
		stem := proceduralStems[i%len(proceduralStems)]
		out[i] = Question{
			ID:   fmt.Sprintf("vault-proc-%s-%d-%s", slug, i, uuid.NewString()),
			Text: "[OFFLINE SIMULATION] " + strings.ReplaceAll(stem, "{topic}", name),
			Options: []string{
				"Primary Factor of " + name,
				"Secondary Factor of " + name,
				"Tertiary Factor of " + name,
				"None of the above",
			},
			CorrectAnswer: i % OptionCount,
			Explanation:   "Procedurally generated offline placeholder. Reconnect for live questions.",
		}
	}
	return out
}
