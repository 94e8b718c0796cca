package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Provider-owned credential state keys. Each adapter owns its key; the
// session broker never reads them.
const (
	EnterpriseAccountKey = "fleetglass:enterprise:account:v1"
	DirectoryTokensKey   = "fleetglass:directory:tokens:v1"
)

// CredentialCache is a Redis-backed blob cache for provider credential state.
// It satisfies both oidc.AccountCache and dirauth.CredentialCache.
type CredentialCache struct {
	client redis.UniversalClient
	key    string
}

// NewEnterpriseAccountCache creates the enterprise adapter's credential cache.
func NewEnterpriseAccountCache(client redis.UniversalClient) *CredentialCache {
	return &CredentialCache{client: client, key: EnterpriseAccountKey}
}

// NewDirectoryTokenCache creates the directory adapter's credential cache.
func NewDirectoryTokenCache(client redis.UniversalClient) *CredentialCache {
	return &CredentialCache{client: client, key: DirectoryTokensKey}
}

// NewCredentialCacheWithKey creates a credential cache with a custom key.
func NewCredentialCacheWithKey(client redis.UniversalClient, key string) *CredentialCache {
	return &CredentialCache{client: client, key: key}
}

// Load returns the cached bytes, or nil when absent.
func (c *CredentialCache) Load(ctx context.Context) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Save replaces the cached bytes.
func (c *CredentialCache) Save(ctx context.Context, data []byte) error {
	return c.client.Set(ctx, c.key, data, 0).Err()
}

// Clear removes the cached bytes.
func (c *CredentialCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
