package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 30 * time.Minute

// Cache keeps prefetched packs and per-question enrichment in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ PackStore = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func packKey(topicID string, count int) string {
	return fmt.Sprintf("vanguard:pack:%s:%d", topicID, count)
}

func briefKey(questionID string) string {
	return "vanguard:brief:" + questionID
}

// Take removes and returns the pack waiting for topicID. A pack is served at most once
// so two sessions never share question ids.
func (c *Cache) Take(ctx context.Context, topicID string, count int) (*Pack, error) {
	data, err := c.client.GetDel(ctx, packKey(topicID, count)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var pack Pack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, err
	}
	return &pack, nil
}

func (c *Cache) Put(ctx context.Context, pack Pack) error {
	data, err := json.Marshal(pack)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, packKey(pack.Topic.ID, pack.Requested), data, c.ttl).Err()
}

// GetEnrichment returns nil without error on a miss.
func (c *Cache) GetEnrichment(ctx context.Context, questionID string) (*Enrichment, error) {
	data, err := c.client.Get(ctx, briefKey(questionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var e Enrichment
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Cache) SetEnrichment(ctx context.Context, questionID string, e Enrichment) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, briefKey(questionID), data, c.ttl).Err()
}
