package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/cases"

	"github.com/octobees/gluten-finder/api/internal/entity"
)

const keyPrefix = "discovery:"

// DefaultTTL applies when no positive TTL is configured.
const DefaultTTL = 6 * time.Hour

// Connect opens a Redis client from a redis:// URL and verifies connectivity.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL must not be empty")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// DiscoveryCache keeps classified discoveries in Redis as JSON.
type DiscoveryCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewDiscoveryCache wraps a Redis client. A non-positive ttl uses DefaultTTL.
func NewDiscoveryCache(rdb redis.Cmdable, ttl time.Duration) *DiscoveryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DiscoveryCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached discovery for query. A miss is (zero, false, nil).
func (c *DiscoveryCache) Get(ctx context.Context, query entity.SearchQuery) (entity.Discovery, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.Discovery{}, false, nil
	}
	if err != nil {
		return entity.Discovery{}, false, fmt.Errorf("redis get: %w", err)
	}

	var discovery entity.Discovery
	if err := json.Unmarshal(raw, &discovery); err != nil {
		return entity.Discovery{}, false, fmt.Errorf("decode cached discovery: %w", err)
	}
	return discovery, true, nil
}

// Set stores the discovery under the query key with the configured TTL.
func (c *DiscoveryCache) Set(ctx context.Context, query entity.SearchQuery, discovery entity.Discovery) error {
	raw, err := json.Marshal(discovery)
	if err != nil {
		return fmt.Errorf("encode discovery: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(query), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Key derives the cache key, e.g. "discovery:tampere|cafe|finland". City and country are
// case-folded so "McAllen" and "MCALLEN" share an entry.
func Key(query entity.SearchQuery) string {
	fold := cases.Fold()
	return keyPrefix + strings.Join([]string{
		fold.String(strings.Join(strings.Fields(query.City), " ")),
		query.Type.Slug(),
		fold.String(strings.Join(strings.Fields(query.Country), " ")),
	}, "|")
}
