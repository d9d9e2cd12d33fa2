package cache

import (
	"context"
	"testing"

	"example.com/backstage/dashboard/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCache(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	ctx := context.Background()
	var out []string
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrDisabled)
	assert.ErrorIs(t, c.Set(ctx, "k", []string{"v"}), ErrDisabled)
	assert.ErrorIs(t, c.Delete(ctx, "k"), ErrDisabled)
	assert.NoError(t, c.Close())
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *RedisCache
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Close())
}

func TestProductCatalogKey(t *testing.T) {
	assert.Equal(t, "products:names", ProductCatalogKey(""))
	assert.Equal(t, "dashboard:products:names", ProductCatalogKey("dashboard"))
}
