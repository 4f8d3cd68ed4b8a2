package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/jobcore/internal/domain/model"
	"github.com/creatorhub/jobcore/internal/testutil"
)

func TestRedisCacheTier_SetGetDeletePattern(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	tier := NewRedisCacheTier(client, "jobcore-test:"+t.Name())
	ctx := context.Background()
	billing := model.CacheCategoryBilling

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, tier.Set(ctx, billing, "product:1", []byte(`{"name":"a"}`), 5*time.Minute))

		got, err := tier.Get(ctx, billing, "product:1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"a"}`, string(got))

		ttl := client.TTL(ctx, tier.redisKey(billing, "product:1")).Val()
		assert.True(t, ttl > 0 && ttl <= 5*time.Minute)
	})

	t.Run("miss returns nil", func(t *testing.T) {
		got, err := tier.Get(ctx, billing, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("zero ttl persists", func(t *testing.T) {
		require.NoError(t, tier.Set(ctx, billing, "customer:9", []byte(`{}`), 0))
		assert.Equal(t, time.Duration(-1), client.TTL(ctx, tier.redisKey(billing, "customer:9")).Val())
	})

	t.Run("delete single key", func(t *testing.T) {
		require.NoError(t, tier.Set(ctx, billing, "invoice:1", []byte(`1`), time.Minute))
		require.NoError(t, tier.Delete(ctx, billing, "invoice:1"))
		require.NoError(t, tier.Delete(ctx, billing, "invoice:1"))

		got, err := tier.Get(ctx, billing, "invoice:1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete pattern is category scoped", func(t *testing.T) {
		require.NoError(t, tier.Set(ctx, billing, "products:list:1", []byte(`[]`), time.Minute))
		require.NoError(t, tier.Set(ctx, billing, "products:list:2", []byte(`[]`), time.Minute))
		require.NoError(t, tier.Set(ctx, model.CacheCategoryJobResults, "products:list:1", []byte(`[]`), time.Minute))

		n, err := tier.DeletePattern(ctx, billing, "products:*")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		other, err := tier.Get(ctx, model.CacheCategoryJobResults, "products:list:1")
		require.NoError(t, err)
		assert.NotNil(t, other)
	})

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, tier.Health(ctx))
	})
}

func TestRedisCacheTier_Validation(t *testing.T) {
	tier := NewRedisCacheTier(NewRedisClient(DefaultRedisConfig()), "")
	ctx := context.Background()

	err := tier.Set(ctx, model.CacheCategoryBilling, "", []byte("v"), time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key cannot be empty")

	_, err = tier.Get(ctx, model.CacheCategoryBilling, "")
	require.Error(t, err)

	_, err = tier.DeletePattern(ctx, model.CacheCategoryBilling, "")
	require.Error(t, err)

	require.Error(t, tier.Delete(ctx, model.CacheCategoryBilling, ""))

	assert.Equal(t, "jobcore:cache:billing:product:1", tier.redisKey(model.CacheCategoryBilling, "product:1"))
}

func TestNewRedisClient(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379", Password: "test-password", DB: 2}

	client := NewRedisClient(cfg)
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, cfg.Addr, opts.Addr)
	assert.Equal(t, cfg.Password, opts.Password)
	assert.Equal(t, cfg.DB, opts.DB)
}

func TestGlobTranslation(t *testing.T) {
	tests := []struct {
		glob  string
		like  string
		match string
	}{
		{glob: "product:*", like: "product:%", match: "product:*"},
		{glob: "price:?", like: "price:_", match: "price:?"},
		{glob: "100%_off*", like: `100\%\_off%`, match: "100%_off*"},
		{glob: `a\b`, like: `a\\b`, match: `a\\b`},
		{glob: "[x]^", like: "[x]^", match: `\[x\]\^`},
	}
	for _, tt := range tests {
		t.Run(tt.glob, func(t *testing.T) {
			assert.Equal(t, tt.like, globToLike(tt.glob))
			assert.Equal(t, tt.match, globToRedisMatch(tt.glob))
		})
	}
}
