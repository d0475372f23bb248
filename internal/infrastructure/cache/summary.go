package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"bakehouse/internal/domain/reports"
)

// SummaryKey prefixes the Redis keys of the dashboard summary. Entries live
// under SummaryKey:<generation>; the generation counter under GenerationKey.
const SummaryKey = "bakehouse:dashboard:summary"

// GenerationKey holds the summary generation, bumped by every invalidation.
const GenerationKey = SummaryKey + ":gen"

// DefaultSummaryTTL bounds how long entries of old generations linger.
const DefaultSummaryTTL = 30 * time.Second

// Invalidator drops the cached summary.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// kv is the subset of redis.Cmdable used by RedisSummaryCache.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisSummaryCache stores the dashboard summary as JSON in Redis.
type RedisSummaryCache struct {
	client kv
	key    string
	genKey string
	ttl    time.Duration
}

var (
	_ reports.SummaryCache = (*RedisSummaryCache)(nil)
	_ Invalidator          = (*RedisSummaryCache)(nil)
)

// NewRedisSummaryCache creates a cache; ttl <= 0 uses DefaultSummaryTTL.
func NewRedisSummaryCache(client kv, ttl time.Duration) *RedisSummaryCache {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &RedisSummaryCache{client: client, key: SummaryKey, genKey: GenerationKey, ttl: ttl}
}

func entryKey(prefix string, generation int64) string {
	return prefix + ":" + strconv.FormatInt(generation, 10)
}

// Get returns nil and the current generation on a miss.
func (c *RedisSummaryCache) Get(ctx context.Context) (*reports.Summary, int64, error) {
	gen, err := c.client.Get(ctx, c.genKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("redis get %s: %w", c.genKey, err)
	}

	key := entryKey(c.key, gen)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("redis get %s: %w", key, err)
	}

	var summary reports.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		// A payload from an older build is treated as a miss.
		return nil, gen, nil
	}
	return &summary, gen, nil
}

// Set stores summary under generation. If an invalidation happened since
// that generation was read, the entry is written where no reader looks.
func (c *RedisSummaryCache) Set(ctx context.Context, generation int64, summary *reports.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	key := entryKey(c.key, generation)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.genKey).Err(); err != nil {
		return fmt.Errorf("redis incr %s: %w", c.genKey, err)
	}
	return nil
}

// MemorySummaryCache is the single-process fallback used when Redis is not configured.
type MemorySummaryCache struct {
	mu         sync.RWMutex
	summary    *reports.Summary
	summaryGen int64
	gen        int64
	expires    time.Time
	ttl        time.Duration
	now        func() time.Time
}

var (
	_ reports.SummaryCache = (*MemorySummaryCache)(nil)
	_ Invalidator          = (*MemorySummaryCache)(nil)
)

func NewMemorySummaryCache(ttl time.Duration) *MemorySummaryCache {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &MemorySummaryCache{ttl: ttl, now: time.Now}
}

func (c *MemorySummaryCache) Get(_ context.Context) (*reports.Summary, int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.summary == nil || c.summaryGen != c.gen || !c.now().Before(c.expires) {
		return nil, c.gen, nil
	}
	return c.summary, c.gen, nil
}

func (c *MemorySummaryCache) Set(_ context.Context, generation int64, summary *reports.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.gen {
		return nil
	}
	c.summary = summary
	c.summaryGen = generation
	c.expires = c.now().Add(c.ttl)
	return nil
}

func (c *MemorySummaryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.gen++
	c.summary = nil
	c.mu.Unlock()
	return nil
}
