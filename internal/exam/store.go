package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/cds-vanguard/internal/exam/scoring"
	"github.com/gokatarajesh/cds-vanguard/internal/question"
)

// Result is what survives a finished session: the answer key, the candidate's responses
// and the score.
type Result struct {
	SessionID  string              `json:"sessionId"`
	UserID     string              `json:"userId"`
	Topic      question.Topic      `json:"topic"`
	Source     string              `json:"source"`
	Warning    string              `json:"warning,omitempty"`
	Questions  []question.Question `json:"questions"`
	Responses  []UserResponse      `json:"responses"`
	Score      scoring.Result      `json:"score"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
}

// StateManager keeps finished results in Redis for the review screen.
type StateManager struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStateManager creates a result store backed by Redis.
func NewStateManager(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *StateManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StateManager{
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

func resultKey(sessionID string) string {
	return fmt.Sprintf("exam:result:%s", sessionID)
}

// SaveResult stores the result until the TTL expires.
func (s *StateManager) SaveResult(ctx context.Context, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.redis.Set(ctx, resultKey(result.SessionID), data, s.ttl).Err()
}

// GetResult returns nil without error when nothing is stored.
func (s *StateManager) GetResult(ctx context.Context, sessionID string) (*Result, error) {
	data, err := s.redis.Get(ctx, resultKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}
