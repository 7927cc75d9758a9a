package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

// CachedReward is the persona-keyed fast path: when a persona already earned
// a full reward in a prior round, new wins against it reuse the assets
// instead of regenerating them.
type CachedReward struct {
	PersonaID uuid.UUID `json:"persona_id"`
	Text      string    `json:"text"`
	VoiceURL  *string   `json:"voice_url,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CachedAt  time.Time `json:"cached_at"`
}

type RewardCache interface {
	Get(ctx context.Context, personaID uuid.UUID) (*CachedReward, error)
	Set(ctx context.Context, reward *CachedReward) error
	Delete(ctx context.Context, personaID uuid.UUID) error
	Close() error
}

type rewardCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewRewardCache(log *logger.Logger) (RewardCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRewardCacheWithClient(log, rdb), nil
}

// NewRewardCacheWithClient wires an existing client; tests use it with
// miniredis.
func NewRewardCacheWithClient(log *logger.Logger, rdb *goredis.Client) RewardCache {
	return &rewardCache{
		log: log.With("service", "RewardCache"),
		rdb: rdb,
		ttl: 30 * 24 * time.Hour,
	}
}

func cacheKey(personaID uuid.UUID) string {
	return "reward:persona:" + personaID.String()
}

func (c *rewardCache) Get(ctx context.Context, personaID uuid.UUID) (*CachedReward, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(personaID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reward cache get: %w", err)
	}
	var cr CachedReward
	if err := json.Unmarshal(raw, &cr); err != nil {
		// A corrupt entry is treated as a miss, not an error.
		c.log.Warn("dropping corrupt reward cache entry", "persona_id", personaID, "error", err)
		_ = c.rdb.Del(ctx, cacheKey(personaID)).Err()
		return nil, nil
	}
	return &cr, nil
}

func (c *rewardCache) Set(ctx context.Context, reward *CachedReward) error {
	if reward == nil || reward.PersonaID == uuid.Nil {
		return fmt.Errorf("reward with persona id required")
	}
	raw, err := json.Marshal(reward)
	if err != nil {
		return fmt.Errorf("reward cache marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(reward.PersonaID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("reward cache set: %w", err)
	}
	return nil
}

func (c *rewardCache) Delete(ctx context.Context, personaID uuid.UUID) error {
	if err := c.rdb.Del(ctx, cacheKey(personaID)).Err(); err != nil {
		return fmt.Errorf("reward cache delete: %w", err)
	}
	return nil
}

func (c *rewardCache) Close() error {
	return c.rdb.Close()
}
