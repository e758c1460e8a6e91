package standings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Supported standings windows.
const (
	WindowDaily   = "daily"
	WindowAllTime = "all_time"
)

var defaultWindows = []string{WindowDaily, WindowAllTime}

// Entry is one candidate's aggregate on a topic board.
type Entry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	Exams       int     `json:"exams"`
	Accuracy    float64 `json:"accuracy"`
	Correct     int     `json:"-"`
	Attempted   int     `json:"-"`
}

// RecordRequest carries one finished exam into the boards.
type RecordRequest struct {
	UserID      string
	DisplayName string
	TopicID     string
	Score       float64
	Correct     int
	Attempted   int
}

// ServiceOptions configures standings behaviour.
type ServiceOptions struct {
	TopN      int
	DailyTTL  time.Duration
	KeyPrefix string
}

// Service keeps per-topic standings in Redis sorted sets.
type Service struct {
	redis    *redis.Client
	logger   zerolog.Logger
	topN     int
	dailyTTL time.Duration
	prefix   string
	now      func() time.Time
}

// NewService constructs a standings service.
func NewService(client *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	ttl := opts.DailyTTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "vanguard:standings"
	}
	return &Service{
		redis:    client,
		logger:   logger.With().Str("component", "standings").Logger(),
		topN:     topN,
		dailyTTL: ttl,
		prefix:   prefix,
		now:      time.Now,
	}
}

// IsValidWindow reports whether window names a known board.
func IsValidWindow(window string) bool {
	for _, w := range defaultWindows {
		if w == window {
			return true
		}
	}
	return false
}

// Record adds a finished exam to the daily and all-time boards of its topic.
// Accuracy is correct over attempted; skipped questions do not count against it.
func (s *Service) Record(ctx context.Context, req RecordRequest) error {
	if req.UserID == "" || req.TopicID == "" {
		return nil
	}
	now := s.now()
	for _, window := range defaultWindows {
		if err := s.updateWindow(ctx, s.boardKey(req.TopicID, window, now), req, window == WindowDaily); err != nil {
			return fmt.Errorf("update standings %s/%s: %w", req.TopicID, window, err)
		}
	}
	return nil
}

// Top returns the best entries of a topic board, highest score first.
func (s *Service) Top(ctx context.Context, topicID, window string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	key := s.boardKey(topicID, window, s.now())
	results, err := s.redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch standings: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		data, err := s.redis.HGetAll(ctx, metaKey(key, member)).Result()
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", member).Msg("failed to read standings metadata")
			continue
		}
		entry := entryFromMeta(member, data)
		entry.Score = z.Score
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) updateWindow(ctx context.Context, key string, req RecordRequest, expires bool) error {
	meta := metaKey(key, req.UserID)

	pipe := s.redis.TxPipeline()
	pipe.ZIncrBy(ctx, key, req.Score, req.UserID)
	pipe.HIncrBy(ctx, meta, "exams", 1)
	pipe.HIncrBy(ctx, meta, "correct", int64(req.Correct))
	pipe.HIncrBy(ctx, meta, "attempted", int64(req.Attempted))
	if req.DisplayName != "" {
		pipe.HSet(ctx, meta, "display_name", req.DisplayName)
	}
	if expires {
		pipe.Expire(ctx, key, s.dailyTTL)
		pipe.Expire(ctx, meta, s.dailyTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// boardKey partitions the daily board by UTC date so it rolls over without a sweeper.
func (s *Service) boardKey(topicID, window string, now time.Time) string {
	if window == WindowDaily {
		return fmt.Sprintf("%s:%s:%s:%s", s.prefix, topicID, window, now.UTC().Format("2006-01-02"))
	}
	return fmt.Sprintf("%s:%s:%s", s.prefix, topicID, window)
}

func metaKey(board, userID string) string {
	return board + ":meta:" + userID
}

func entryFromMeta(userID string, data map[string]string) Entry {
	entry := Entry{
		UserID:      userID,
		DisplayName: data["display_name"],
		Exams:       parseInt(data["exams"]),
		Correct:     parseInt(data["correct"]),
		Attempted:   parseInt(data["attempted"]),
	}
	if entry.Attempted > 0 {
		entry.Accuracy = float64(entry.Correct) / float64(entry.Attempted)
	}
	return entry
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
