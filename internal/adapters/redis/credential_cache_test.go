package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetglass/fleetglass/internal/testutil"
)

func TestCredentialCacheRoundTrip(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCredentialCacheWithKey(client, "fleetglass:test:cred")
	ctx := context.Background()

	got, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Save(ctx, []byte(`{"account":"abc"}`)))

	got, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"account":"abc"}`), got)

	require.NoError(t, cache.Clear(ctx))

	got, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialCachesUseDistinctKeys(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })

	enterprise := NewEnterpriseAccountCache(client)
	directory := NewDirectoryTokenCache(client)
	ctx := context.Background()

	require.NoError(t, enterprise.Save(ctx, []byte("ent")))
	require.NoError(t, directory.Save(ctx, []byte("dir")))

	entData, err := enterprise.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ent"), entData)

	dirData, err := directory.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("dir"), dirData)

	// Clearing one adapter's state must not touch the other's.
	require.NoError(t, enterprise.Clear(ctx))
	dirData, err = directory.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("dir"), dirData)
}
