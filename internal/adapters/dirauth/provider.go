package dirauth

// Package dirauth implements the local username/password identity provider
// as a client of the user-directory service (sign-up with email
// confirmation, sign-in, session recovery).

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
	"github.com/fleetglass/fleetglass/internal/ports"
)

// CredentialCache is the provider-owned persistence for directory tokens,
// opaque to the session broker.
type CredentialCache interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// Config holds configuration for the directory client.
// Every required setting is validated eagerly at construction.
type Config struct {
	BaseURL    string // directory service root, e.g. https://directory.example.com
	PoolID     string // user pool identifier
	ClientID   string // application client identifier within the pool
	HTTPClient *http.Client
}

// Validate checks required settings and fails fast with a named error.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return aerrors.MissingConfiguration("directory base url")
	}
	if c.PoolID == "" {
		return aerrors.MissingConfiguration("directory pool id")
	}
	if c.ClientID == "" {
		return aerrors.MissingConfiguration("directory client id")
	}
	return nil
}

// credentials is the cached token state for the signed-in directory user.
type credentials struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	IDToken     string `json:"id_token,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// Provider implements ports.LocalProvider.
type Provider struct {
	baseURL    string
	poolID     string
	clientID   string
	httpClient *http.Client
	cache      CredentialCache
}

var _ ports.LocalProvider = (*Provider)(nil)

// NewProvider constructs the directory client from Config.
func NewProvider(cfg Config, cache CredentialCache) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cache == nil {
		return nil, errors.New("credential cache is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Provider{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		poolID:     cfg.PoolID,
		clientID:   cfg.ClientID,
		httpClient: httpClient,
		cache:      cache,
	}, nil
}

// directoryError is the directory service's error envelope.
type directoryError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// signUpResponse is the directory's sign-up result envelope.
type signUpResponse struct {
	Status string `json:"status"` // "confirmation_required" or "done"
}

// loginResponse carries the tokens fetched at sign-in time.
type loginResponse struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
}

// SignUp registers a new user. The directory decides whether email
// confirmation is required before the first sign-in.
func (p *Provider) SignUp(ctx context.Context, email, password string) (domainauth.SignUpOutcome, error) {
	body := map[string]string{"clientId": p.clientID, "email": email, "password": password}
	var out signUpResponse
	if err := p.post(ctx, "/signup", body, &out); err != nil {
		return "", err
	}
	if out.Status == string(domainauth.SignUpDone) {
		return domainauth.SignUpDone, nil
	}
	return domainauth.SignUpConfirmationRequired, nil
}

// Confirm completes a pending sign-up confirmation. Directory rejections
// (invalid code, already confirmed) are surfaced verbatim.
func (p *Provider) Confirm(ctx context.Context, email, code string) error {
	body := map[string]string{"clientId": p.clientID, "email": email, "code": code}
	return p.post(ctx, "/confirm", body, nil)
}

// SignIn establishes a directory session and captures both the identity
// token and the access token issued at sign-in time.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domainauth.Session, error) {
	body := map[string]string{"clientId": p.clientID, "email": email, "password": password}
	var out loginResponse
	if err := p.post(ctx, "/login", body, &out); err != nil {
		return domainauth.Session{}, err
	}

	creds := credentials{
		UserID:      out.UserID,
		Email:       email,
		IDToken:     out.IDToken,
		AccessToken: out.AccessToken,
	}
	if err := p.persist(ctx, creds); err != nil {
		return domainauth.Session{}, err
	}

	return domainauth.Session{
		Provider:      domainauth.ProviderLocal,
		UserID:        out.UserID,
		Email:         email,
		IdentityToken: out.IDToken,
		AccessToken:   out.AccessToken,
	}, nil
}

// TryRecoverSession asks the directory for the currently-authenticated user
// using the cached access token. Absence of such a user is not an error and
// yields (nil, nil).
func (p *Provider) TryRecoverSession(ctx context.Context) (*domainauth.Session, error) {
	creds, ok, err := p.loadCredentials(ctx)
	if err != nil || !ok {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint("/session"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query directory session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// No currently-authenticated user. Expected, not an error.
		_ = p.cache.Clear(ctx)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, p.errorFromResponse(resp)
	}

	var out loginResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr != nil {
		return nil, fmt.Errorf("decode directory session: %w", decodeErr)
	}

	sess := &domainauth.Session{
		Provider:      domainauth.ProviderLocal,
		UserID:        out.UserID,
		Email:         firstNonEmpty(out.Email, creds.Email),
		IdentityToken: firstNonEmpty(out.IDToken, creds.IDToken),
		AccessToken:   firstNonEmpty(out.AccessToken, creds.AccessToken),
	}
	return sess, nil
}

// SignOut performs a global directory sign-out. The cached credential state
// is cleared regardless of the remote outcome.
func (p *Provider) SignOut(ctx context.Context) error {
	creds, ok, _ := p.loadCredentials(ctx)
	defer func() { _ = p.cache.Clear(ctx) }()
	if !ok {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint("/logout"), http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory logout: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusUnauthorized {
		return p.errorFromResponse(resp)
	}
	return nil
}

func (p *Provider) endpoint(path string) string {
	return fmt.Sprintf("%s/v1/pools/%s%s", p.baseURL, p.poolID, path)
}

func (p *Provider) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return p.errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("decode directory response: %w", decodeErr)
	}
	return nil
}

// errorFromResponse maps the directory's error envelope onto coded errors,
// keeping the directory's own message intact for form-level display.
func (p *Provider) errorFromResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var de directoryError
	if json.Unmarshal(data, &de) != nil || de.Error == "" {
		return aerrors.Internalf("directory returned status %d", resp.StatusCode)
	}

	msg := de.Message
	if msg == "" {
		msg = de.Error
	}
	switch de.Error {
	case "invalid_credentials":
		return aerrors.InvalidCredentials(msg)
	case "invalid_code":
		return aerrors.InvalidCode(msg)
	case "already_confirmed":
		return aerrors.AlreadyConfirmed(msg)
	case "confirmation_pending":
		return aerrors.ConfirmationPending(msg)
	default:
		return aerrors.Internalf("directory error %s: %s", de.Error, msg)
	}
}

func (p *Provider) loadCredentials(ctx context.Context) (credentials, bool, error) {
	data, err := p.cache.Load(ctx)
	if err != nil {
		return credentials{}, false, fmt.Errorf("load directory credentials: %w", err)
	}
	if len(data) == 0 {
		return credentials{}, false, nil
	}
	var creds credentials
	if json.Unmarshal(data, &creds) != nil || creds.AccessToken == "" {
		_ = p.cache.Clear(ctx)
		return credentials{}, false, nil
	}
	return creds, true, nil
}

func (p *Provider) persist(ctx context.Context, creds credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal directory credentials: %w", err)
	}
	if saveErr := p.cache.Save(ctx, data); saveErr != nil {
		return fmt.Errorf("save directory credentials: %w", saveErr)
	}
	return nil
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
