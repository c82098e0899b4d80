package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/gluten-finder/api/internal/entity"
)

func newTestCache(t *testing.T, ttl time.Duration) (*DiscoveryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewDiscoveryCache(rdb, ttl), mr
}

func TestConnect_Validation(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := Connect(context.Background(), "not-a-redis-url"); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}

func TestConnect_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestKey(t *testing.T) {
	q := entity.SearchQuery{City: " Tampere ", Type: entity.TypeCafe, Country: "Finland"}
	assert.Equal(t, "discovery:tampere|cafe|finland", Key(q))

	q = entity.SearchQuery{City: "Oulu"}
	assert.Equal(t, "discovery:oulu|establishment|", Key(q))

	assert.Equal(t, Key(entity.SearchQuery{City: "McAllen", Country: "USA"}), Key(entity.SearchQuery{City: "MCALLEN ", Country: "usa"}))
	assert.Equal(t, "discovery:frankfurt am main|establishment|", Key(entity.SearchQuery{City: "Frankfurt  am Main"}))
}

func TestDiscoveryCache_Miss(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	_, ok, err := c.Get(context.Background(), entity.SearchQuery{City: "Espoo"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiscoveryCache_RoundTrip(t *testing.T) {
	c, mr := newTestCache(t, 10*time.Minute)
	ctx := context.Background()
	rating := 4.6
	q := entity.SearchQuery{City: "Helsinki", Type: entity.TypeRestaurant}
	want := entity.Discovery{
		DisplayText: "1. Celia [dedicated gluten-free]",
		Outcome:     entity.OutcomeClassified,
		Establishments: []entity.Establishment{{
			PlaceID:      "p1",
			Name:         "Celia",
			Address:      "Mannerheimintie 1",
			Rating:       &rating,
			ReviewCount:  12,
			CategoryTags: []string{"restaurant"},
			Status:       entity.StatusOperational,
		}},
	}

	require.NoError(t, c.Set(ctx, q, want))
	assert.Equal(t, 10*time.Minute, mr.TTL(Key(q)))

	got, ok, err := c.Get(ctx, entity.SearchQuery{City: "helsinki", Type: entity.TypeRestaurant})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestDiscoveryCache_Expiry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	q := entity.SearchQuery{City: "Turku", Type: entity.TypeBakery}

	require.NoError(t, c.Set(ctx, q, entity.Discovery{DisplayText: "x", Outcome: entity.OutcomeClassified}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiscoveryCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	q := entity.SearchQuery{City: "Vaasa"}
	require.NoError(t, mr.Set(Key(q), "{not json"))

	_, ok, err := c.Get(context.Background(), q)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDiscoveryCache_ServerDown(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, _, err := c.Get(context.Background(), entity.SearchQuery{City: "Lahti"})
	assert.Error(t, err)
}

func TestNewDiscoveryCache_DefaultTTL(t *testing.T) {
	c := NewDiscoveryCache(nil, 0)
	assert.Equal(t, DefaultTTL, c.ttl)
}
