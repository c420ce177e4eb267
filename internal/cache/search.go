// Package cache keeps ranked search results in Redis for a short time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "cryptojulius:search:"

// DefaultTTL is how long a search result set stays cached.
const DefaultTTL = 2 * time.Minute

// SearchCache stores search results in Redis. Redis failures are logged and treated as misses.
type SearchCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewSearchCache wraps client. A non-positive ttl uses DefaultTTL.
func NewSearchCache(client redis.Cmdable, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SearchCache{client: client, ttl: ttl}
}

func (c *SearchCache) Get(ctx context.Context, query string) ([]models.TokenSearchResult, bool) {
	raw, err := c.client.Get(ctx, key(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logrus.WithError(err).WithField("query", query).Warn("Search cache read failed")
		return nil, false
	}

	var results []models.TokenSearchResult
	if err := json.Unmarshal(raw, &results); err != nil {
		logrus.WithError(err).WithField("query", query).Warn("Discarding malformed search cache entry")
		return nil, false
	}
	return results, true
}

func (c *SearchCache) Set(ctx context.Context, query string, results []models.TokenSearchResult) {
	raw, err := json.Marshal(results)
	if err != nil {
		logrus.WithError(err).Warn("Search cache encode failed")
		return
	}
	if err := c.client.Set(ctx, key(query), raw, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("query", query).Warn("Search cache write failed")
	}
}

func key(query string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(query))
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]models.TokenSearchResult, bool) { return nil, false }

func (Noop) Set(context.Context, string, []models.TokenSearchResult) {}
