// Package redis caches search suggestions in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/search"
)

const keyPrefix = "search:suggest:"

// SuggestionCache implements search.Cache using Redis.
type SuggestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSuggestionCache creates a Redis-backed suggestion cache.
func NewSuggestionCache(client *redis.Client, ttl time.Duration) *SuggestionCache {
	return &SuggestionCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached suggestions for query, or search.ErrCacheMiss.
func (c *SuggestionCache) Get(ctx context.Context, query string) (*domain.Suggestions, error) {
	data, err := c.client.Get(ctx, keyPrefix+query).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, search.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get suggestions: %w", err)
	}

	var s domain.Suggestions
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	return &s, nil
}

// Set stores suggestions for query with the configured TTL.
func (c *SuggestionCache) Set(ctx context.Context, query string, s *domain.Suggestions) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+query, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set suggestions: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *SuggestionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
