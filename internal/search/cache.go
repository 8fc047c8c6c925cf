package search

import (
	"context"
	"errors"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the query has no cached entry.
var ErrCacheMiss = errors.New("search cache miss")

// Cache stores suggestion results by normalized query.
type Cache interface {
	Get(ctx context.Context, query string) (*domain.Suggestions, error)
	Set(ctx context.Context, query string, s *domain.Suggestions) error
}

// NopCache never holds anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*domain.Suggestions, error) {
	return nil, ErrCacheMiss
}

func (NopCache) Set(context.Context, string, *domain.Suggestions) error {
	return nil
}
