package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	"github.com/fleetglass/fleetglass/internal/testutil"
)

const testSessionKey = "fleetglass:test:session"

func setupSessionStore(t *testing.T) (*SessionStore, *goredis.Client) {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("redis close: %v", err)
		}
	})
	return NewSessionStoreWithKey(client, testSessionKey), client
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store, _ := setupSessionStore(t)
	ctx := context.Background()

	sess := &domainauth.Session{
		Provider:      domainauth.ProviderLocal,
		UserID:        "user-1",
		Email:         "user@example.com",
		IdentityToken: "id-token",
		AccessToken:   "access-token",
	}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *sess, *got)
}

func TestSessionStoreLoadAbsent(t *testing.T) {
	store, _ := setupSessionStore(t)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoreLoadMalformedRecord(t *testing.T) {
	store, client := setupSessionStore(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, testSessionKey, "{not json", 0).Err())

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	// The corrupted record is removed so the next load is clean.
	exists, err := client.Exists(ctx, testSessionKey).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestSessionStoreLoadInvalidProvider(t *testing.T) {
	store, client := setupSessionStore(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, testSessionKey,
		`{"provider":"github","userId":"u1"}`, 0).Err())

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := client.Exists(ctx, testSessionKey).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestSessionStoreLoadMissingUserID(t *testing.T) {
	store, client := setupSessionStore(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, testSessionKey,
		`{"provider":"enterprise"}`, 0).Err())

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoreSaveNilDeletes(t *testing.T) {
	store, client := setupSessionStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domainauth.Session{
		Provider: domainauth.ProviderConsumer,
		UserID:   "u2",
	}))
	require.NoError(t, store.Save(ctx, nil))

	exists, err := client.Exists(ctx, testSessionKey).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestSessionStoreSaveReplacesWholeRecord(t *testing.T) {
	store, _ := setupSessionStore(t)
	ctx := context.Background()

	first := &domainauth.Session{
		Provider:      domainauth.ProviderEnterprise,
		UserID:        "u1",
		Name:          "First",
		IdentityToken: "tok-1",
	}
	require.NoError(t, store.Save(ctx, first))

	second := &domainauth.Session{
		Provider: domainauth.ProviderLocal,
		UserID:   "u2",
	}
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	// No fields survive from the previous record.
	assert.Equal(t, *second, *got)
	assert.Empty(t, got.Name)
	assert.Empty(t, got.IdentityToken)
}
