package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderValid(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		want     bool
	}{
		{name: "enterprise", provider: ProviderEnterprise, want: true},
		{name: "consumer", provider: ProviderConsumer, want: true},
		{name: "local", provider: ProviderLocal, want: true},
		{name: "empty", provider: Provider(""), want: false},
		{name: "unknown", provider: Provider("github"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.provider.Valid())
		})
	}
}

func TestSessionUserKey(t *testing.T) {
	s := Session{Provider: ProviderEnterprise, UserID: "abc-123"}
	assert.Equal(t, "enterprise:abc-123", s.UserKey())

	// Same identifier under a different provider is a different key.
	s2 := Session{Provider: ProviderLocal, UserID: "abc-123"}
	assert.NotEqual(t, s.UserKey(), s2.UserKey())
}

func TestSessionJSONShape(t *testing.T) {
	s := Session{
		Provider:      ProviderConsumer,
		UserID:        "u1",
		Email:         "u1@example.com",
		IdentityToken: "tok",
	}

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	assert.Equal(t, "consumer", m["provider"])
	assert.Equal(t, "u1", m["userId"])
	assert.Equal(t, "tok", m["idToken"])

	// Optional fields are omitted when empty.
	assert.NotContains(t, m, "name")
	assert.NotContains(t, m, "accessToken")
}

func TestSessionJSONRoundTrip(t *testing.T) {
	orig := Session{
		Provider:      ProviderLocal,
		UserID:        "u2",
		Email:         "u2@example.com",
		Name:          "U Two",
		IdentityToken: "id-tok",
		AccessToken:   "acc-tok",
	}

	raw, err := json.Marshal(orig)
	require.NoError(t, err)

	var got Session
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, orig, got)
}
