package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	"github.com/fleetglass/fleetglass/internal/domain/model"
)

// RedirectCallback carries the parameters returned by the enterprise IdP
// on the redirect back to the application.
type RedirectCallback struct {
	Code  string
	State string
	Nonce string
}

// EnterpriseProvider is the redirect-based identity provider.
//
// SignIn and SignOut return provider URLs; the HTTP layer issues the
// redirect, so control leaves the application on those paths.
type EnterpriseProvider interface {
	// SignIn begins the redirect flow and returns the provider auth URL,
	// an opaque state, and a nonce.
	SignIn(ctx context.Context) (authURL, state, nonce string, err error)

	// CompleteRedirect consumes a pending redirect response exactly once,
	// verifying the code and nonce and marking the account active.
	CompleteRedirect(ctx context.Context, cb RedirectCallback) error

	// TryRecoverSession inspects already-cached account state and returns a
	// session if one is live. Synchronous and non-blocking; never triggers
	// a redirect.
	TryRecoverSession() (domainauth.Session, bool)

	// SignOut clears the cached account and returns the provider's logout URL.
	SignOut(ctx context.Context) (logoutURL string, err error)

	// AcquireTokenSilent obtains a fresh identity token without user
	// interaction, using the cached account's refresh credential.
	AcquireTokenSilent(ctx context.Context) (string, error)
}

// ConsumerProvider is the one-tap identity provider. Its credential arrives
// asynchronously; SignIn awaits delivery within the adapter's timeout.
type ConsumerProvider interface {
	// SignIn waits for a delivered credential and returns the resulting
	// session. A timed-out wait fails the attempt rather than hanging.
	SignIn(ctx context.Context) (domainauth.Session, error)

	// Deliver hands the signed identity-token credential to a waiting
	// SignIn call. Returns false if no sign-in is waiting.
	Deliver(credential string) bool

	// SignOut clears local provider state. No remote call is made.
	SignOut(ctx context.Context) error
}

// LocalProvider is the username/password user directory with email confirmation.
type LocalProvider interface {
	SignUp(ctx context.Context, email, password string) (domainauth.SignUpOutcome, error)
	Confirm(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, email, password string) (domainauth.Session, error)

	// TryRecoverSession queries the directory for a currently-authenticated
	// user. Absence of such a user is not an error and yields (nil, nil).
	TryRecoverSession(ctx context.Context) (*domainauth.Session, error)

	SignOut(ctx context.Context) error
}

// SessionStore persists the single canonical session record.
// Pure read/write; no protocol knowledge.
type SessionStore interface {
	// Load returns the persisted session, or nil when absent. A record that
	// fails to parse is deleted and treated as absent, never as an error.
	Load(ctx context.Context) (*domainauth.Session, error)

	// Save replaces the persisted record wholesale. A nil session deletes
	// the key rather than storing an empty value.
	Save(ctx context.Context, sess *domainauth.Session) error
}

// OperatorRecorder keeps the durable operator roster in step with sign-ins.
// Recording failures must never block authentication.
type OperatorRecorder interface {
	RecordSignIn(ctx context.Context, sess domainauth.Session) (*model.Operator, error)
}

// TokenResolver produces a current bearer credential for a session.
// It either returns a non-empty token or fails with a coded error;
// it never returns an empty string as success.
type TokenResolver interface {
	ResolveBearerToken(ctx context.Context, sess domainauth.Session) (string, error)
}
