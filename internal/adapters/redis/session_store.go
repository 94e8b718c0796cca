package redis

// Package redis provides Redis-based adapters for the fleetglass gateway.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
)

// DefaultSessionKey is the single fixed key holding the persisted session record.
const DefaultSessionKey = "fleetglass:session:v1"

// SessionStore persists the one canonical session record under a single key.
// Writes are whole-record: the session is serialized in full, never patched
// field by field, so a reader observes either the old or the new record.
type SessionStore struct {
	client redis.UniversalClient
	key    string
}

// NewSessionStore creates a session store using DefaultSessionKey.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, key: DefaultSessionKey}
}

// NewSessionStoreWithKey creates a session store with a custom key.
func NewSessionStoreWithKey(client redis.UniversalClient, key string) *SessionStore {
	return &SessionStore{client: client, key: key}
}

// Load returns the persisted session, or nil when the key is absent.
// A record that fails to parse is deleted and reported as absent; an
// unauthenticated visitor is an expected, non-error state.
func (s *SessionStore) Load(ctx context.Context) (*domainauth.Session, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		// Malformed record: remove it so the next load is clean.
		if delErr := s.client.Del(ctx, s.key).Err(); delErr != nil {
			return nil, fmt.Errorf("delete malformed session: %w", delErr)
		}
		return nil, nil
	}
	if !sess.Provider.Valid() || sess.UserID == "" {
		if delErr := s.client.Del(ctx, s.key).Err(); delErr != nil {
			return nil, fmt.Errorf("delete malformed session: %w", delErr)
		}
		return nil, nil
	}

	return &sess, nil
}

// Save replaces the persisted record wholesale. A nil session deletes the
// key rather than storing an empty value.
func (s *SessionStore) Save(ctx context.Context, sess *domainauth.Session) error {
	if sess == nil {
		return s.client.Del(ctx, s.key).Err()
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.client.Set(ctx, s.key, data, 0).Err()
}
