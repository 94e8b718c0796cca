package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
	"github.com/fleetglass/fleetglass/internal/ports"
)

// memoryCache is an in-memory AccountCache for tests.
type memoryCache struct {
	mu   sync.Mutex
	data []byte
}

func (c *memoryCache) Load(_ context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data, nil
}

func (c *memoryCache) Save(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	return nil
}

func (c *memoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	return nil
}

// newFakeIssuer serves an OIDC discovery document for itself.
func newFakeIssuer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"issuer": %q,
			"authorization_endpoint": %q,
			"token_endpoint": %q,
			"jwks_uri": %q,
			"id_token_signing_alg_values_supported": ["RS256"]
		}`, srv.URL, srv.URL+"/authorize", srv.URL+"/token", srv.URL+"/keys")
	})
	mux.HandleFunc("GET /keys", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"keys":[]}`)
	})
	return srv
}

func testConfig(issuer string) ProviderConfig {
	return ProviderConfig{
		ClientID:     "ent-client",
		ClientSecret: "ent-secret",
		Authority:    issuer,
		RedirectURL:  "https://gateway.example.com/auth/callback",
		LogoutURL:    issuer + "/logout",
	}
}

func TestProviderConfigValidation(t *testing.T) {
	base := testConfig("https://login.example.com")

	tests := []struct {
		name   string
		mutate func(*ProviderConfig)
		field  string
	}{
		{name: "missing client id", mutate: func(c *ProviderConfig) { c.ClientID = "" }, field: "enterprise client id"},
		{name: "missing client secret", mutate: func(c *ProviderConfig) { c.ClientSecret = "" }, field: "enterprise client secret"},
		{name: "missing authority", mutate: func(c *ProviderConfig) { c.Authority = "" }, field: "enterprise authority url"},
		{name: "missing redirect url", mutate: func(c *ProviderConfig) { c.RedirectURL = "" }, field: "enterprise redirect url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, aerrors.IsMissingConfiguration(err))
			assert.Equal(t, tt.field, aerrors.GetField(err))
		})
	}
}

func TestSignInBuildsAuthorizationURL(t *testing.T) {
	issuer := newFakeIssuer(t)
	p, err := NewProvider(context.Background(), testConfig(issuer.URL), &memoryCache{})
	require.NoError(t, err)

	authURL, state, nonce, err := p.SignIn(context.Background())
	require.NoError(t, err)
	assert.Len(t, state, 32)
	assert.Len(t, nonce, 32)
	assert.NotEqual(t, state, nonce)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "ent-client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))
	assert.Equal(t, "select_account", q.Get("prompt"))
	assert.Contains(t, q.Get("scope"), "openid")
	assert.Equal(t, "https://gateway.example.com/auth/callback", q.Get("redirect_uri"))
}

func TestSignInGeneratesFreshState(t *testing.T) {
	issuer := newFakeIssuer(t)
	p, err := NewProvider(context.Background(), testConfig(issuer.URL), &memoryCache{})
	require.NoError(t, err)

	_, s1, n1, err := p.SignIn(context.Background())
	require.NoError(t, err)
	_, s2, n2, err := p.SignIn(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, n1, n2)
}

func TestCompleteRedirectEmptyCodeIsNoOp(t *testing.T) {
	issuer := newFakeIssuer(t)
	p, err := NewProvider(context.Background(), testConfig(issuer.URL), &memoryCache{})
	require.NoError(t, err)

	require.NoError(t, p.CompleteRedirect(context.Background(), ports.RedirectCallback{}))
	_, ok := p.TryRecoverSession()
	assert.False(t, ok)
}

func TestTryRecoverSessionFromCache(t *testing.T) {
	issuer := newFakeIssuer(t)

	cache := &memoryCache{}
	acct := account{
		Subject:    "ent-user-1",
		Email:      "op@corp.example.com",
		Name:       "Op Erator",
		RawIDToken: "cached-id-token",
		Token:      &oauth2.Token{AccessToken: "cached-access", RefreshToken: "cached-refresh"},
	}
	data, err := json.Marshal(acct)
	require.NoError(t, err)
	require.NoError(t, cache.Save(context.Background(), data))

	p, err := NewProvider(context.Background(), testConfig(issuer.URL), cache)
	require.NoError(t, err)

	sess, ok := p.TryRecoverSession()
	require.True(t, ok)
	assert.Equal(t, domainauth.Session{
		Provider: domainauth.ProviderEnterprise,
		UserID:   "ent-user-1",
		Email:    "op@corp.example.com",
		Name:     "Op Erator",
	}, sess)
}

func TestHydrateDropsMalformedCache(t *testing.T) {
	issuer := newFakeIssuer(t)

	cache := &memoryCache{}
	require.NoError(t, cache.Save(context.Background(), []byte("{broken")))

	p, err := NewProvider(context.Background(), testConfig(issuer.URL), cache)
	require.NoError(t, err)

	_, ok := p.TryRecoverSession()
	assert.False(t, ok)

	data, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSignOutClearsAccountAndReturnsLogoutURL(t *testing.T) {
	issuer := newFakeIssuer(t)

	cache := &memoryCache{}
	acct := account{
		Subject:    "ent-user-1",
		RawIDToken: "cached-id-token",
		Token:      &oauth2.Token{AccessToken: "cached-access"},
	}
	data, err := json.Marshal(acct)
	require.NoError(t, err)
	require.NoError(t, cache.Save(context.Background(), data))

	p, err := NewProvider(context.Background(), testConfig(issuer.URL), cache)
	require.NoError(t, err)

	logoutURL, err := p.SignOut(context.Background())
	require.NoError(t, err)
	assert.Equal(t, issuer.URL+"/logout", logoutURL)

	_, ok := p.TryRecoverSession()
	assert.False(t, ok)

	stored, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAcquireTokenSilentNoAccount(t *testing.T) {
	issuer := newFakeIssuer(t)
	p, err := NewProvider(context.Background(), testConfig(issuer.URL), &memoryCache{})
	require.NoError(t, err)

	_, err = p.AcquireTokenSilent(context.Background())
	require.Error(t, err)
	assert.Equal(t, aerrors.ErrCodeNoActiveAccount, aerrors.GetCode(err))
	assert.True(t, aerrors.IsTokenResolutionFailure(err))
}

func TestLogoutRedirectURL(t *testing.T) {
	issuer := newFakeIssuer(t)
	p, err := NewProvider(context.Background(), testConfig(issuer.URL), &memoryCache{})
	require.NoError(t, err)

	assert.Equal(t, issuer.URL+"/logout", p.LogoutRedirectURL(""))

	withReturn := p.LogoutRedirectURL("https://gateway.example.com/login")
	u, err := url.Parse(withReturn)
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/login",
		u.Query().Get("post_logout_redirect_uri"))
}
