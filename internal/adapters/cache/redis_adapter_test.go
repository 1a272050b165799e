package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	redisclient "github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/redis"
)

func newTestAdapter(t *testing.T) (*RedisAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisclient.NewClientFromAddr(mr.Addr())
	t.Cleanup(func() { client.Close() })
	return NewRedisAdapter(client), mr
}

func TestRedisAdapter_GetSet(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	ctx := context.Background()

	_, err := adapter.Get(ctx, "procedures:list")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, "procedures:list", []byte(`[]`), 300))
	got, err := adapter.Get(ctx, "procedures:list")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	mr.FastForward(301 * time.Second)
	_, err = adapter.Get(ctx, "procedures:list")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_DeletePattern(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("procedures:list", "a"))
	require.NoError(t, mr.Set("procedures:id:1", "b"))
	require.NoError(t, mr.Set("other", "c"))

	require.NoError(t, adapter.DeletePattern(ctx, "procedures:*"))

	assert.False(t, mr.Exists("procedures:list"))
	assert.False(t, mr.Exists("procedures:id:1"))
	assert.True(t, mr.Exists("other"))
}

func TestRedisAdapter_DeleteNoKeys(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	assert.NoError(t, adapter.Delete(context.Background()))
}
