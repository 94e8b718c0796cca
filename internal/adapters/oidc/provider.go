package oidc

// Package oidc implements the enterprise redirect-based identity provider
// using OIDC/OAuth2 authorization code flow.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
	"github.com/fleetglass/fleetglass/internal/ports"
)

// silentScopes are the scopes requested on silent reacquisition.
var silentScopes = []string{gooidc.ScopeOpenID, "profile", "email"}

// AccountCache is the provider-owned persistence for the active account and
// its token material. It is opaque to the session broker; only this adapter
// reads or writes it.
type AccountCache interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// ProviderConfig holds configuration for the enterprise OIDC provider.
// Every required setting is validated eagerly at construction.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Authority    string // issuer URL, e.g. https://login.example.com/tenant
	RedirectURL  string
	LogoutURL    string       // optional; empty means no provider-side logout redirect
	HTTPClient   *http.Client // optional, defaults to a 30s-timeout client
}

// Validate checks required settings and fails fast with a named error.
func (c ProviderConfig) Validate() error {
	if c.ClientID == "" {
		return aerrors.MissingConfiguration("enterprise client id")
	}
	if c.ClientSecret == "" {
		return aerrors.MissingConfiguration("enterprise client secret")
	}
	if c.Authority == "" {
		return aerrors.MissingConfiguration("enterprise authority url")
	}
	if c.RedirectURL == "" {
		return aerrors.MissingConfiguration("enterprise redirect url")
	}
	return nil
}

// account is the cached credential state for the active enterprise account.
type account struct {
	Subject    string        `json:"subject"`
	Email      string        `json:"email,omitempty"`
	Name       string        `json:"name,omitempty"`
	RawIDToken string        `json:"raw_id_token"`
	Token      *oauth2.Token `json:"token"`
}

// Provider implements ports.EnterpriseProvider.
type Provider struct {
	config    *oauth2.Config
	logoutURL string

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	cache AccountCache

	mu      sync.Mutex
	account *account
}

var _ ports.EnterpriseProvider = (*Provider)(nil)

// NewProvider creates the enterprise provider: validates configuration,
// performs the single discovery fetch, and hydrates the active account from
// the credential cache so TryRecoverSession is a pure in-memory check.
func NewProvider(ctx context.Context, cfg ProviderConfig, cache AccountCache) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cache == nil {
		return nil, errors.New("account cache is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	dctx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.Authority, "/")
	op, err := gooidc.NewProvider(dctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	p := &Provider{
		logoutURL:    cfg.LogoutURL,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		cache:        cache,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       silentScopes,
			Endpoint:     op.Endpoint(),
		},
	}

	p.hydrate(ctx)
	return p, nil
}

// hydrate loads the cached account, if any. Failures are treated as "no
// cached account"; an unauthenticated start is an expected state.
func (p *Provider) hydrate(ctx context.Context) {
	data, err := p.cache.Load(ctx)
	if err != nil || len(data) == 0 {
		return
	}
	var acct account
	if json.Unmarshal(data, &acct) != nil || acct.Subject == "" || acct.Token == nil {
		_ = p.cache.Clear(ctx)
		return
	}
	p.mu.Lock()
	p.account = &acct
	p.mu.Unlock()
}

// SignIn begins the redirect flow. The caller issues the redirect; control
// leaves the application until the provider calls back.
func (p *Provider) SignIn(_ context.Context) (string, string, string, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// idTokenClaims is the claim shape extracted from the enterprise ID token.
type idTokenClaims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	Nonce             string `json:"nonce"`
}

// CompleteRedirect consumes a pending redirect response. With no code it is
// a no-op; with a code it exchanges, verifies, and marks the account active.
func (p *Provider) CompleteRedirect(ctx context.Context, cb ports.RedirectCallback) error {
	if cb.Code == "" {
		return nil
	}

	token, err := p.config.Exchange(ctx, cb.Code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return errors.New("missing id_token in token response")
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return fmt.Errorf("verify id_token: %w", err)
	}
	var claims idTokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if cb.Nonce != "" && claims.Nonce != cb.Nonce {
		return errors.New("invalid nonce")
	}

	acct := &account{
		Subject:    claims.Subject,
		Email:      firstNonEmpty(claims.Email, claims.PreferredUsername),
		Name:       claims.Name,
		RawIDToken: rawID,
		Token:      token,
	}

	p.mu.Lock()
	p.account = acct
	p.mu.Unlock()

	return p.persist(ctx, acct)
}

// TryRecoverSession returns the session for the active account, if any.
// It inspects only in-memory state and never triggers a redirect.
func (p *Provider) TryRecoverSession() (domainauth.Session, bool) {
	p.mu.Lock()
	acct := p.account
	p.mu.Unlock()
	if acct == nil {
		return domainauth.Session{}, false
	}
	return domainauth.Session{
		Provider: domainauth.ProviderEnterprise,
		UserID:   acct.Subject,
		Email:    acct.Email,
		Name:     acct.Name,
	}, true
}

// SignOut clears the account cache and returns the provider's logout URL.
func (p *Provider) SignOut(ctx context.Context) (string, error) {
	p.mu.Lock()
	p.account = nil
	p.mu.Unlock()

	if err := p.cache.Clear(ctx); err != nil {
		return p.logoutURL, fmt.Errorf("clear account cache: %w", err)
	}
	return p.logoutURL, nil
}

// AcquireTokenSilent obtains a fresh identity token scoped to
// openid/profile/email using the cached account's refresh credential.
func (p *Provider) AcquireTokenSilent(ctx context.Context) (string, error) {
	p.mu.Lock()
	acct := p.account
	p.mu.Unlock()
	if acct == nil {
		return "", aerrors.NoActiveAccount()
	}

	tok, err := p.config.TokenSource(ctx, acct.Token).Token()
	if err != nil {
		return "", aerrors.SilentAuthFailed(err)
	}

	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		// Refresh responses may omit id_token; reuse the captured one while
		// it still verifies.
		if _, verifyErr := p.verifier.Verify(ctx, acct.RawIDToken); verifyErr == nil {
			rawID = acct.RawIDToken
		} else {
			return "", aerrors.SilentAuthFailed(errors.New("token response carried no id_token"))
		}
	}

	refreshed := &account{
		Subject:    acct.Subject,
		Email:      acct.Email,
		Name:       acct.Name,
		RawIDToken: rawID,
		Token:      tok,
	}
	p.mu.Lock()
	p.account = refreshed
	p.mu.Unlock()
	if persistErr := p.persist(ctx, refreshed); persistErr != nil {
		return "", persistErr
	}

	return rawID, nil
}

func (p *Provider) persist(ctx context.Context, acct *account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	if saveErr := p.cache.Save(ctx, data); saveErr != nil {
		return fmt.Errorf("save account cache: %w", saveErr)
	}
	return nil
}

// LogoutRedirectURL builds the end-session URL with an optional post-logout
// return target. Empty when the provider has no logout endpoint configured.
func (p *Provider) LogoutRedirectURL(postLogout string) string {
	if p.logoutURL == "" {
		return ""
	}
	if postLogout == "" {
		return p.logoutURL
	}
	u, err := url.Parse(p.logoutURL)
	if err != nil {
		return p.logoutURL
	}
	q := u.Query()
	q.Set("post_logout_redirect_uri", postLogout)
	u.RawQuery = q.Encode()
	return u.String()
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
