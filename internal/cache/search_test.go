package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the Get and Set commands over a map.
type fakeRedis struct {
	redis.Cmdable
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestSearchCache_RoundTrip(t *testing.T) {
	fake := newFakeRedis()
	c := NewSearchCache(fake, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, "uni")
	assert.False(t, ok)

	c.Set(ctx, " UNI ", []models.TokenSearchResult{{Symbol: "UNI", ChainID: "ethereum"}})
	assert.Equal(t, time.Minute, fake.ttls["cryptojulius:search:uni"])

	hits, ok := c.Get(ctx, "uni")
	require.True(t, ok)
	require.Len(t, hits, 1)
	assert.Equal(t, "UNI", hits[0].Symbol)
}

func TestSearchCache_DefaultTTL(t *testing.T) {
	fake := newFakeRedis()
	NewSearchCache(fake, 0).Set(context.Background(), "uni", []models.TokenSearchResult{})
	assert.Equal(t, DefaultTTL, fake.ttls["cryptojulius:search:uni"])
}

func TestSearchCache_DegradesOnFailure(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	c := NewSearchCache(fake, time.Minute)

	c.Set(context.Background(), "uni", []models.TokenSearchResult{{Symbol: "UNI"}})
	_, ok := c.Get(context.Background(), "uni")
	assert.False(t, ok)
}

func TestSearchCache_MalformedEntry(t *testing.T) {
	fake := newFakeRedis()
	fake.values["cryptojulius:search:uni"] = "{oops"

	_, ok := NewSearchCache(fake, time.Minute).Get(context.Background(), "uni")
	assert.False(t, ok)
}

func TestSearchCache_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewSearchCache(client, time.Minute)
	c.Set(context.Background(), "uni", []models.TokenSearchResult{{Symbol: "UNI"}})
	_, ok := c.Get(context.Background(), "uni")
	assert.False(t, ok)
}

func TestNoop(t *testing.T) {
	var c Noop
	c.Set(context.Background(), "uni", []models.TokenSearchResult{{Symbol: "UNI"}})
	_, ok := c.Get(context.Background(), "uni")
	assert.False(t, ok)
}
