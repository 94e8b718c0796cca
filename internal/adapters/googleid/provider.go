package googleid

// Package googleid implements the consumer one-tap identity provider.
// The signed identity-token credential is produced by the provider's
// browser-side prompt and delivered to the gateway asynchronously; SignIn
// turns that callback into a single awaitable outcome.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
	"github.com/fleetglass/fleetglass/internal/ports"
)

// DefaultPromptTimeout bounds the wait for the credential prompt.
const DefaultPromptTimeout = 7 * time.Second

// Config controls the consumer provider.
type Config struct {
	ClientID string
	// PromptTimeout bounds the SignIn wait; zero means DefaultPromptTimeout.
	PromptTimeout time.Duration
}

// Validate checks required settings and fails fast with a named error.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return aerrors.MissingConfiguration("consumer client id")
	}
	return nil
}

// Provider implements ports.ConsumerProvider.
type Provider struct {
	clientID      string
	promptTimeout time.Duration

	mu         sync.Mutex
	waiter     chan string
	autoSelect bool
}

var _ ports.ConsumerProvider = (*Provider)(nil)

// NewProvider constructs the consumer provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.PromptTimeout
	if timeout == 0 {
		timeout = DefaultPromptTimeout
	}
	return &Provider{clientID: cfg.ClientID, promptTimeout: timeout}, nil
}

// SignIn waits for a delivered credential, bounded by the prompt timeout.
// A timed-out wait fails the attempt rather than hanging.
func (p *Provider) SignIn(ctx context.Context) (domainauth.Session, error) {
	waiter := make(chan string, 1)

	p.mu.Lock()
	if p.waiter != nil {
		p.mu.Unlock()
		return domainauth.Session{}, errors.New("consumer sign-in already in progress")
	}
	p.waiter = waiter
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.waiter = nil
		p.mu.Unlock()
	}()

	timer := time.NewTimer(p.promptTimeout)
	defer timer.Stop()

	select {
	case credential := <-waiter:
		if credential == "" {
			return domainauth.Session{}, aerrors.InvalidCredentials("no credential returned")
		}
		sess, err := p.sessionFromCredential(credential)
		if err != nil {
			return domainauth.Session{}, err
		}
		p.mu.Lock()
		p.autoSelect = true
		p.mu.Unlock()
		return sess, nil
	case <-timer.C:
		return domainauth.Session{}, aerrors.PromptTimeout(p.promptTimeout)
	case <-ctx.Done():
		return domainauth.Session{}, ctx.Err()
	}
}

// Deliver hands a credential to a waiting SignIn call.
// Returns false if no sign-in is waiting.
func (p *Provider) Deliver(credential string) bool {
	p.mu.Lock()
	waiter := p.waiter
	p.mu.Unlock()
	if waiter == nil {
		return false
	}
	select {
	case waiter <- credential:
		return true
	default:
		return false
	}
}

// SignOut disables credential auto-select. No remote call is made.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.autoSelect = false
	p.mu.Unlock()
	return nil
}

// credentialClaims is the payload shape of the one-tap identity token.
type credentialClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// sessionFromCredential decodes the credential payload locally.
// The signature is NOT verified here; verification is the device backend's
// responsibility when the token is presented as a bearer credential.
func (p *Provider) sessionFromCredential(credential string) (domainauth.Session, error) {
	var claims credentialClaims
	if _, _, err := jwt.NewParser().ParseUnverified(credential, &claims); err != nil {
		return domainauth.Session{}, aerrors.Wrap(err, aerrors.ErrCodeInvalidCredentials, "malformed credential")
	}
	if claims.Subject == "" {
		return domainauth.Session{}, aerrors.InvalidCredentials("credential carries no subject")
	}
	if len(claims.Audience) > 0 && !audienceContains(claims.Audience, p.clientID) {
		return domainauth.Session{}, aerrors.InvalidCredentials("credential audience mismatch")
	}

	return domainauth.Session{
		Provider:      domainauth.ProviderConsumer,
		UserID:        claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		IdentityToken: credential,
	}, nil
}

func audienceContains(aud jwt.ClaimStrings, clientID string) bool {
	for _, a := range aud {
		if a == clientID {
			return true
		}
	}
	return false
}
