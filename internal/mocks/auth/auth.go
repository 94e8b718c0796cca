package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
	"github.com/fleetglass/fleetglass/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.EnterpriseProvider = (*MockEnterpriseProvider)(nil)
	_ ports.ConsumerProvider   = (*MockConsumerProvider)(nil)
	_ ports.LocalProvider      = (*MockLocalProvider)(nil)
	_ ports.SessionStore       = (*MemorySessionStore)(nil)
)

// MockEnterpriseProvider simulates the redirect-based IdP with deterministic
// state/nonce handling.
type MockEnterpriseProvider struct {
	SignInFunc             func(ctx context.Context) (authURL, state, nonce string, err error)
	CompleteRedirectFunc   func(ctx context.Context, cb ports.RedirectCallback) error
	TryRecoverSessionFunc  func() (domainauth.Session, bool)
	SignOutFunc            func(ctx context.Context) (string, error)
	AcquireTokenSilentFunc func(ctx context.Context) (string, error)

	// Deterministic values for predictable testing
	AuthURL       string
	LogoutURL     string
	SilentToken   string
	ActiveSession *domainauth.Session

	mu            sync.Mutex
	completeCalls int
	signOutCalls  int
}

// NewMockEnterpriseProvider creates a MockEnterpriseProvider with sensible defaults.
func NewMockEnterpriseProvider() *MockEnterpriseProvider {
	return &MockEnterpriseProvider{
		AuthURL:     "https://mock-idp/authorize",
		LogoutURL:   "https://mock-idp/logout",
		SilentToken: "mock-enterprise-token",
	}
}

func (m *MockEnterpriseProvider) SignIn(ctx context.Context) (string, string, string, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx)
	}
	return m.AuthURL, "state-1", "nonce-1", nil
}

func (m *MockEnterpriseProvider) CompleteRedirect(ctx context.Context, cb ports.RedirectCallback) error {
	m.mu.Lock()
	m.completeCalls++
	m.mu.Unlock()
	if m.CompleteRedirectFunc != nil {
		return m.CompleteRedirectFunc(ctx, cb)
	}
	return nil
}

func (m *MockEnterpriseProvider) TryRecoverSession() (domainauth.Session, bool) {
	if m.TryRecoverSessionFunc != nil {
		return m.TryRecoverSessionFunc()
	}
	if m.ActiveSession == nil {
		return domainauth.Session{}, false
	}
	return *m.ActiveSession, true
}

func (m *MockEnterpriseProvider) SignOut(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.signOutCalls++
	m.mu.Unlock()
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	m.ActiveSession = nil
	return m.LogoutURL, nil
}

func (m *MockEnterpriseProvider) AcquireTokenSilent(ctx context.Context) (string, error) {
	if m.AcquireTokenSilentFunc != nil {
		return m.AcquireTokenSilentFunc(ctx)
	}
	if m.ActiveSession == nil {
		return "", aerrors.NoActiveAccount()
	}
	return m.SilentToken, nil
}

// CompleteRedirectCalls reports how many times CompleteRedirect ran.
func (m *MockEnterpriseProvider) CompleteRedirectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

// SignOutCalls reports how many times SignOut ran.
func (m *MockEnterpriseProvider) SignOutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signOutCalls
}

// MockConsumerProvider simulates the one-tap provider.
type MockConsumerProvider struct {
	SignInFunc  func(ctx context.Context) (domainauth.Session, error)
	DeliverFunc func(credential string) bool
	SignOutFunc func(ctx context.Context) error

	Session domainauth.Session
}

// NewMockConsumerProvider creates a MockConsumerProvider with a default session.
func NewMockConsumerProvider() *MockConsumerProvider {
	return &MockConsumerProvider{
		Session: domainauth.Session{
			Provider:      domainauth.ProviderConsumer,
			UserID:        "consumer-user-1",
			Email:         "consumer@example.com",
			Name:          "Consumer User",
			IdentityToken: "mock-consumer-id-token",
		},
	}
}

func (m *MockConsumerProvider) SignIn(ctx context.Context) (domainauth.Session, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx)
	}
	return m.Session, nil
}

func (m *MockConsumerProvider) Deliver(credential string) bool {
	if m.DeliverFunc != nil {
		return m.DeliverFunc(credential)
	}
	return true
}

func (m *MockConsumerProvider) SignOut(ctx context.Context) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	return nil
}

// MockLocalProvider simulates the username/password directory.
type MockLocalProvider struct {
	SignUpFunc            func(ctx context.Context, email, password string) (domainauth.SignUpOutcome, error)
	ConfirmFunc           func(ctx context.Context, email, code string) error
	SignInFunc            func(ctx context.Context, email, password string) (domainauth.Session, error)
	TryRecoverSessionFunc func(ctx context.Context) (*domainauth.Session, error)
	SignOutFunc           func(ctx context.Context) error

	Session domainauth.Session
}

// NewMockLocalProvider creates a MockLocalProvider with a default session.
func NewMockLocalProvider() *MockLocalProvider {
	return &MockLocalProvider{
		Session: domainauth.Session{
			Provider:      domainauth.ProviderLocal,
			UserID:        "local-user-1",
			Email:         "local@example.com",
			IdentityToken: "mock-local-id-token",
		},
	}
}

func (m *MockLocalProvider) SignUp(ctx context.Context, email, password string) (domainauth.SignUpOutcome, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, email, password)
	}
	return domainauth.SignUpConfirmationRequired, nil
}

func (m *MockLocalProvider) Confirm(ctx context.Context, email, code string) error {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, email, code)
	}
	return nil
}

func (m *MockLocalProvider) SignIn(ctx context.Context, email, password string) (domainauth.Session, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return m.Session, nil
}

func (m *MockLocalProvider) TryRecoverSession(ctx context.Context) (*domainauth.Session, error) {
	if m.TryRecoverSessionFunc != nil {
		return m.TryRecoverSessionFunc(ctx)
	}
	return nil, nil
}

func (m *MockLocalProvider) SignOut(ctx context.Context) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	return nil
}

// MemorySessionStore is an in-memory ports.SessionStore for tests.
type MemorySessionStore struct {
	mu   sync.Mutex
	sess *domainauth.Session

	// SaveErr, when set, is returned by Save without mutating state.
	SaveErr error
	// LoadErr, when set, is returned by Load.
	LoadErr error

	saves int
}

func (s *MemorySessionStore) Load(_ context.Context) (*domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.sess == nil {
		return nil, nil
	}
	copied := *s.sess
	return &copied, nil
}

func (s *MemorySessionStore) Save(_ context.Context, sess *domainauth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.saves++
	if sess == nil {
		s.sess = nil
		return nil
	}
	copied := *sess
	s.sess = &copied
	return nil
}

// Saves reports how many Save calls succeeded.
func (s *MemorySessionStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Stored returns the stored session without copying semantics of Load.
func (s *MemorySessionStore) Stored() *domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}
