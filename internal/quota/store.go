package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrExhausted is returned when a consume would exceed today's allowance.
var ErrExhausted = errors.New("daily quota exhausted")

const keyTTL = 48 * time.Hour

// Usage describes one user's consumption for a day.
type Usage struct {
	Date      string `json:"date"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

// Store is a day-keyed usage counter. A new date means a new key, so the counter
// resets without any sweeper.
type Store struct {
	client *redis.Client
	limit  int
	now    func() time.Time
}

func NewStore(client *redis.Client, limit int) *Store {
	if limit <= 0 {
		limit = 500
	}
	return &Store{client: client, limit: limit, now: time.Now}
}

func dayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func dayKey(userID, day string) string {
	return fmt.Sprintf("vanguard:quota:%s:%s", userID, day)
}

func usage(day string, used, limit int) Usage {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Date: day, Used: used, Limit: limit, Remaining: remaining}
}

// Get returns today's usage without consuming.
func (s *Store) Get(ctx context.Context, userID string) (Usage, error) {
	day := dayOf(s.now())
	used, err := s.client.Get(ctx, dayKey(userID, day)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Usage{}, err
	}
	return usage(day, used, s.limit), nil
}

// Consume takes n units. On overflow the increment is rolled back and ErrExhausted returned.
func (s *Store) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	day := dayOf(s.now())
	key := dayKey(userID, day)

	pipe := s.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(n))
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return Usage{}, fmt.Errorf("consume quota: %w", err)
	}

	used := int(incr.Val())
	if used > s.limit {
		if err := s.client.DecrBy(ctx, key, int64(n)).Err(); err != nil {
			return Usage{}, fmt.Errorf("rollback quota: %w", err)
		}
		return usage(day, used-n, s.limit), ErrExhausted
	}
	return usage(day, used, s.limit), nil
}
