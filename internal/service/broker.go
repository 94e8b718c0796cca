package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	"github.com/fleetglass/fleetglass/internal/observability/metrics"
	"github.com/fleetglass/fleetglass/internal/ports"
)

// ErrProviderUnavailable is returned when an operation targets a provider
// whose adapter was disabled at startup (missing configuration).
var ErrProviderUnavailable = errors.New("identity provider is not configured")

// BrokerOptions groups dependencies for Broker. Any provider may be nil;
// a misconfigured adapter disables only itself.
type BrokerOptions struct {
	Enterprise ports.EnterpriseProvider
	Consumer   ports.ConsumerProvider
	Local      ports.LocalProvider
	Sessions   ports.SessionStore

	// Operators, when set, receives a record of every installed session.
	Operators ports.OperatorRecorder

	Logger *slog.Logger
}

// Broker owns the process-wide session state. It runs provider recovery in
// a fixed priority order at startup and exposes sign-in/sign-up/confirm/
// sign-out to the rest of the application. It is explicitly constructed and
// injected; there is no package-level instance.
type Broker struct {
	enterprise ports.EnterpriseProvider
	consumer   ports.ConsumerProvider
	local      ports.LocalProvider
	sessions   ports.SessionStore
	operators  ports.OperatorRecorder
	logger     *slog.Logger

	mu      sync.RWMutex
	state   domainauth.BrokerState
	session *domainauth.Session

	// settleOnce guards the single transition out of Loading: only the
	// first settling path may apply it, so a slow recovery cannot clobber
	// an already-settled state.
	settleOnce sync.Once
}

// NewBroker constructs the broker and optimistically loads any persisted
// session for instant availability; the broker stays in Loading until
// Start settles it.
func NewBroker(ctx context.Context, opts BrokerOptions) *Broker {
	b := &Broker{
		enterprise: opts.Enterprise,
		consumer:   opts.Consumer,
		local:      opts.Local,
		sessions:   opts.Sessions,
		operators:  opts.Operators,
		logger:     opts.Logger,
		state:      domainauth.StateLoading,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	if sess, err := b.sessions.Load(ctx); err != nil {
		b.logger.WarnContext(ctx, "load persisted session failed", "error", err)
	} else {
		b.session = sess
	}
	return b
}

// Start runs startup recovery in fixed priority order: the enterprise
// adapter first (its recovery is synchronous over cached account state),
// then the local directory check. The first adapter to report a live
// session wins. Recovery errors are swallowed into "no session": an
// unauthenticated visitor is an expected, non-error state.
func (b *Broker) Start(ctx context.Context) {
	if b.enterprise != nil {
		if sess, ok := b.enterprise.TryRecoverSession(); ok {
			metrics.ObserveSessionRecovery(string(sess.Provider))
			b.settle(ctx, &sess)
			return
		}
	}

	if b.local != nil {
		sess, err := b.local.TryRecoverSession(ctx)
		if err != nil {
			b.logger.DebugContext(ctx, "local session recovery failed", "error", err)
		}
		if sess != nil {
			metrics.ObserveSessionRecovery(string(sess.Provider))
			b.settle(ctx, sess)
			return
		}
	}

	metrics.ObserveSessionRecovery("")
	b.settle(ctx, nil)
}

// settle applies the one transition out of Loading. Later callers are
// no-ops; their session is discarded rather than allowed to clobber the
// settled state or the store.
func (b *Broker) settle(ctx context.Context, sess *domainauth.Session) {
	b.settleOnce.Do(func() {
		b.apply(ctx, sess)
	})
}

// apply replaces the held session wholesale and mirrors it to the store.
func (b *Broker) apply(ctx context.Context, sess *domainauth.Session) {
	b.mu.Lock()
	b.session = sess
	if sess != nil {
		b.state = domainauth.StateAuthenticated
	} else {
		b.state = domainauth.StateUnauthenticated
	}
	b.mu.Unlock()

	if err := b.sessions.Save(ctx, sess); err != nil {
		b.logger.WarnContext(ctx, "persist session failed", "error", err)
	}

	if sess != nil && b.operators != nil {
		if _, err := b.operators.RecordSignIn(ctx, *sess); err != nil {
			b.logger.WarnContext(ctx, "record operator sign-in failed", "error", err)
		}
	}
}

// replaceSession is the explicit-action variant of settle: it consumes the
// settle guard (so a slow startup recovery cannot undo a user sign-in) and
// then applies unconditionally.
func (b *Broker) replaceSession(ctx context.Context, sess *domainauth.Session) {
	b.settleOnce.Do(func() {})
	b.apply(ctx, sess)
}

// Session returns the currently held session, or nil.
func (b *Broker) Session() *domainauth.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil {
		return nil
	}
	s := *b.session
	return &s
}

// IsLoading reports whether startup recovery has not yet settled.
func (b *Broker) IsLoading() bool {
	return b.State() == domainauth.StateLoading
}

// State returns the broker's lifecycle state.
func (b *Broker) State() domainauth.BrokerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// SignInEnterprise begins the enterprise redirect flow and returns the
// provider auth URL with state and nonce. No local state changes on this
// path: control leaves the application, and the redirect completion
// handler updates state after return.
func (b *Broker) SignInEnterprise(ctx context.Context) (authURL, state, nonce string, err error) {
	if b.enterprise == nil {
		return "", "", "", fmt.Errorf("enterprise sign-in: %w", ErrProviderUnavailable)
	}
	return b.enterprise.SignIn(ctx)
}

// CompleteRedirect finishes an in-flight enterprise redirect and, on
// success, installs the recovered session. Errors during this explicit
// flow are surfaced, not swallowed.
func (b *Broker) CompleteRedirect(ctx context.Context, cb ports.RedirectCallback) error {
	if b.enterprise == nil {
		return fmt.Errorf("complete redirect: %w", ErrProviderUnavailable)
	}
	if err := b.enterprise.CompleteRedirect(ctx, cb); err != nil {
		metrics.ObserveSignIn(string(domainauth.ProviderEnterprise), err)
		return err
	}
	if sess, ok := b.enterprise.TryRecoverSession(); ok {
		metrics.ObserveSignIn(string(domainauth.ProviderEnterprise), nil)
		b.replaceSession(ctx, &sess)
	}
	return nil
}

// SignInConsumer awaits the one-tap credential and, on success, updates
// the held session and the store before returning.
func (b *Broker) SignInConsumer(ctx context.Context) (domainauth.Session, error) {
	if b.consumer == nil {
		return domainauth.Session{}, fmt.Errorf("consumer sign-in: %w", ErrProviderUnavailable)
	}
	sess, err := b.consumer.SignIn(ctx)
	metrics.ObserveSignIn(string(domainauth.ProviderConsumer), err)
	if err != nil {
		return domainauth.Session{}, err
	}
	b.replaceSession(ctx, &sess)
	return sess, nil
}

// DeliverConsumerCredential hands the asynchronously delivered credential
// to a waiting consumer sign-in. Returns false if none is waiting.
func (b *Broker) DeliverConsumerCredential(credential string) bool {
	if b.consumer == nil {
		return false
	}
	return b.consumer.Deliver(credential)
}

// SignInLocal authenticates against the user directory and, on success,
// updates the held session and the store before returning.
func (b *Broker) SignInLocal(ctx context.Context, email, password string) (domainauth.Session, error) {
	if b.local == nil {
		return domainauth.Session{}, fmt.Errorf("local sign-in: %w", ErrProviderUnavailable)
	}
	sess, err := b.local.SignIn(ctx, email, password)
	metrics.ObserveSignIn(string(domainauth.ProviderLocal), err)
	if err != nil {
		return domainauth.Session{}, err
	}
	b.replaceSession(ctx, &sess)
	return sess, nil
}

// SignUpLocal delegates to the directory and returns its outcome unchanged.
func (b *Broker) SignUpLocal(ctx context.Context, email, password string) (domainauth.SignUpOutcome, error) {
	if b.local == nil {
		return "", fmt.Errorf("local sign-up: %w", ErrProviderUnavailable)
	}
	return b.local.SignUp(ctx, email, password)
}

// ConfirmLocal delegates to the directory and returns its outcome unchanged.
func (b *Broker) ConfirmLocal(ctx context.Context, email, code string) error {
	if b.local == nil {
		return fmt.Errorf("local confirm: %w", ErrProviderUnavailable)
	}
	return b.local.Confirm(ctx, email, code)
}

// SignOut dispatches to the adapter matching the current session's provider
// and then clears held state and the store unconditionally: local state must
// not be left inconsistent with the user's sign-out, so adapter failures are
// logged and ignored. A call with no session is a no-op that performs no
// store write. The returned URL, when non-empty, is the enterprise logout
// redirect the caller should follow.
func (b *Broker) SignOut(ctx context.Context) string {
	sess := b.Session()
	if sess == nil {
		return ""
	}

	var logoutURL string
	switch sess.Provider {
	case domainauth.ProviderEnterprise:
		if b.enterprise != nil {
			u, err := b.enterprise.SignOut(ctx)
			if err != nil {
				b.logger.WarnContext(ctx, "enterprise sign-out failed", "error", err)
			}
			logoutURL = u
		}
	case domainauth.ProviderConsumer:
		if b.consumer != nil {
			if err := b.consumer.SignOut(ctx); err != nil {
				b.logger.WarnContext(ctx, "consumer sign-out failed", "error", err)
			}
		}
	case domainauth.ProviderLocal:
		if b.local != nil {
			if err := b.local.SignOut(ctx); err != nil {
				b.logger.WarnContext(ctx, "local sign-out failed", "error", err)
			}
		}
	default:
		b.logger.WarnContext(ctx, "sign-out for unknown provider", "provider", sess.Provider)
	}

	metrics.ObserveSignOut(string(sess.Provider))
	b.replaceSession(ctx, nil)
	return logoutURL
}
