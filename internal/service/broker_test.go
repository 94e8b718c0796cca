package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	"github.com/fleetglass/fleetglass/internal/mocks"
	mocksauth "github.com/fleetglass/fleetglass/internal/mocks/auth"
	"github.com/fleetglass/fleetglass/internal/ports"
)

func enterpriseSession() domainauth.Session {
	return domainauth.Session{
		Provider: domainauth.ProviderEnterprise,
		UserID:   "ent-user-1",
		Email:    "ent@corp.example.com",
	}
}

func newTestBroker(ctx context.Context, opts BrokerOptions) *Broker {
	if opts.Sessions == nil {
		opts.Sessions = &mocksauth.MemorySessionStore{}
	}
	return NewBroker(ctx, opts)
}

func TestBrokerStartsLoading(t *testing.T) {
	b := newTestBroker(context.Background(), BrokerOptions{})
	assert.Equal(t, domainauth.StateLoading, b.State())
	assert.True(t, b.IsLoading())
}

func TestBrokerLoadsPersistedSessionBeforeSettling(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	persisted := enterpriseSession()
	require.NoError(t, store.Save(context.Background(), &persisted))

	b := newTestBroker(context.Background(), BrokerOptions{Sessions: store})

	// The persisted record is available immediately, but the lifecycle state
	// stays Loading until recovery settles it.
	sess := b.Session()
	require.NotNil(t, sess)
	assert.Equal(t, persisted, *sess)
	assert.Equal(t, domainauth.StateLoading, b.State())
}

func TestStartEnterpriseRecoveryWins(t *testing.T) {
	ent := mocksauth.NewMockEnterpriseProvider()
	entSess := enterpriseSession()
	ent.ActiveSession = &entSess

	local := mocksauth.NewMockLocalProvider()
	localCalled := false
	local.TryRecoverSessionFunc = func(context.Context) (*domainauth.Session, error) {
		localCalled = true
		return &local.Session, nil
	}

	store := &mocksauth.MemorySessionStore{}
	b := newTestBroker(context.Background(), BrokerOptions{
		Enterprise: ent,
		Local:      local,
		Sessions:   store,
	})
	b.Start(context.Background())

	assert.Equal(t, domainauth.StateAuthenticated, b.State())
	require.NotNil(t, b.Session())
	assert.Equal(t, domainauth.ProviderEnterprise, b.Session().Provider)
	// Enterprise recovery succeeded, so the local directory is never asked.
	assert.False(t, localCalled)
	assert.Equal(t, &entSess, store.Stored())
}

func TestStartFallsBackToLocalRecovery(t *testing.T) {
	local := mocksauth.NewMockLocalProvider()
	local.TryRecoverSessionFunc = func(context.Context) (*domainauth.Session, error) {
		return &local.Session, nil
	}

	b := newTestBroker(context.Background(), BrokerOptions{
		Enterprise: mocksauth.NewMockEnterpriseProvider(),
		Local:      local,
	})
	b.Start(context.Background())

	assert.Equal(t, domainauth.StateAuthenticated, b.State())
	require.NotNil(t, b.Session())
	assert.Equal(t, domainauth.ProviderLocal, b.Session().Provider)
}

func TestStartRecoveryErrorSwallowed(t *testing.T) {
	local := mocksauth.NewMockLocalProvider()
	local.TryRecoverSessionFunc = func(context.Context) (*domainauth.Session, error) {
		return nil, errors.New("directory unreachable")
	}

	b := newTestBroker(context.Background(), BrokerOptions{Local: local})
	b.Start(context.Background())

	assert.Equal(t, domainauth.StateUnauthenticated, b.State())
	assert.Nil(t, b.Session())
}

func TestStartNoProviders(t *testing.T) {
	b := newTestBroker(context.Background(), BrokerOptions{})
	b.Start(context.Background())
	assert.Equal(t, domainauth.StateUnauthenticated, b.State())
}

func TestSlowRecoveryCannotClobberExplicitSignIn(t *testing.T) {
	ent := mocksauth.NewMockEnterpriseProvider()
	entSess := enterpriseSession()
	ent.ActiveSession = &entSess

	local := mocksauth.NewMockLocalProvider()
	b := newTestBroker(context.Background(), BrokerOptions{
		Enterprise: ent,
		Local:      local,
	})

	// The user signs in before startup recovery gets a chance to settle.
	sess, err := b.SignInLocal(context.Background(), "local@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, domainauth.ProviderLocal, sess.Provider)

	// A late recovery result must not replace the explicit sign-in.
	b.Start(context.Background())
	require.NotNil(t, b.Session())
	assert.Equal(t, domainauth.ProviderLocal, b.Session().Provider)
}

func TestSignInConsumerPersists(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	b := newTestBroker(context.Background(), BrokerOptions{
		Consumer: mocksauth.NewMockConsumerProvider(),
		Sessions: store,
	})

	sess, err := b.SignInConsumer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domainauth.ProviderConsumer, sess.Provider)
	assert.Equal(t, domainauth.StateAuthenticated, b.State())
	require.NotNil(t, store.Stored())
	assert.Equal(t, sess, *store.Stored())
}

func TestSignInConsumerErrorLeavesStateAlone(t *testing.T) {
	consumer := mocksauth.NewMockConsumerProvider()
	consumer.SignInFunc = func(context.Context) (domainauth.Session, error) {
		return domainauth.Session{}, errors.New("prompt dismissed")
	}
	store := &mocksauth.MemorySessionStore{}
	b := newTestBroker(context.Background(), BrokerOptions{
		Consumer: consumer,
		Sessions: store,
	})

	_, err := b.SignInConsumer(context.Background())
	require.Error(t, err)
	assert.Equal(t, domainauth.StateLoading, b.State())
	assert.Zero(t, store.Saves())
}

func TestProviderUnavailable(t *testing.T) {
	b := newTestBroker(context.Background(), BrokerOptions{})
	ctx := context.Background()

	_, _, _, err := b.SignInEnterprise(ctx)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	assert.ErrorIs(t, b.CompleteRedirect(ctx, ports.RedirectCallback{}), ErrProviderUnavailable)

	_, err = b.SignInConsumer(ctx)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = b.SignInLocal(ctx, "a@b.c", "pw")
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = b.SignUpLocal(ctx, "a@b.c", "pw")
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	assert.ErrorIs(t, b.ConfirmLocal(ctx, "a@b.c", "123"), ErrProviderUnavailable)

	assert.False(t, b.DeliverConsumerCredential("cred"))
}

func TestCompleteRedirectInstallsSession(t *testing.T) {
	ent := mocksauth.NewMockEnterpriseProvider()
	entSess := enterpriseSession()
	ent.CompleteRedirectFunc = func(context.Context, ports.RedirectCallback) error {
		ent.ActiveSession = &entSess
		return nil
	}

	store := &mocksauth.MemorySessionStore{}
	b := newTestBroker(context.Background(), BrokerOptions{
		Enterprise: ent,
		Sessions:   store,
	})

	err := b.CompleteRedirect(context.Background(), ports.RedirectCallback{
		Code:  "auth-code",
		State: "state-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ent.CompleteRedirectCalls())
	assert.Equal(t, domainauth.StateAuthenticated, b.State())
	require.NotNil(t, store.Stored())
	assert.Equal(t, entSess, *store.Stored())
}

func TestCompleteRedirectErrorSurfaced(t *testing.T) {
	ent := mocksauth.NewMockEnterpriseProvider()
	redirectErr := errors.New("invalid nonce")
	ent.CompleteRedirectFunc = func(context.Context, ports.RedirectCallback) error {
		return redirectErr
	}

	b := newTestBroker(context.Background(), BrokerOptions{Enterprise: ent})
	err := b.CompleteRedirect(context.Background(), ports.RedirectCallback{Code: "c"})
	assert.ErrorIs(t, err, redirectErr)
	assert.Equal(t, domainauth.StateLoading, b.State())
}

func TestSignOutEnterpriseReturnsLogoutURL(t *testing.T) {
	ent := mocksauth.NewMockEnterpriseProvider()
	entSess := enterpriseSession()
	ent.ActiveSession = &entSess

	store := &mocksauth.MemorySessionStore{}
	b := newTestBroker(context.Background(), BrokerOptions{
		Enterprise: ent,
		Sessions:   store,
	})
	b.Start(context.Background())
	require.Equal(t, domainauth.StateAuthenticated, b.State())

	logoutURL := b.SignOut(context.Background())
	assert.Equal(t, ent.LogoutURL, logoutURL)
	assert.Equal(t, 1, ent.SignOutCalls())
	assert.Equal(t, domainauth.StateUnauthenticated, b.State())
	assert.Nil(t, b.Session())
	assert.Nil(t, store.Stored())
}

func TestSignOutAdapterFailureStillClears(t *testing.T) {
	local := mocksauth.NewMockLocalProvider()
	local.SignOutFunc = func(context.Context) error {
		return errors.New("directory unreachable")
	}

	b := newTestBroker(context.Background(), BrokerOptions{Local: local})
	_, err := b.SignInLocal(context.Background(), "local@example.com", "pw")
	require.NoError(t, err)

	logoutURL := b.SignOut(context.Background())
	assert.Empty(t, logoutURL)
	assert.Nil(t, b.Session())
	assert.Equal(t, domainauth.StateUnauthenticated, b.State())
}

func TestSignOutWithoutSessionIsNoOp(t *testing.T) {
	store := &mocksauth.MemorySessionStore{}
	b := newTestBroker(context.Background(), BrokerOptions{Sessions: store})
	b.Start(context.Background())
	savesAfterStart := store.Saves()

	assert.Empty(t, b.SignOut(context.Background()))
	// No store write happens for a sign-out with nothing to clear.
	assert.Equal(t, savesAfterStart, store.Saves())
}

func TestSessionReturnsCopy(t *testing.T) {
	b := newTestBroker(context.Background(), BrokerOptions{
		Consumer: mocksauth.NewMockConsumerProvider(),
	})
	_, err := b.SignInConsumer(context.Background())
	require.NoError(t, err)

	first := b.Session()
	first.Email = "mutated@example.com"
	assert.NotEqual(t, first.Email, b.Session().Email)
}

func TestSignInRecordsOperator(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockOperatorRecorder(ctrl)

	consumer := mocksauth.NewMockConsumerProvider()
	recorder.EXPECT().
		RecordSignIn(gomock.Any(), consumer.Session).
		Return(nil, nil)

	b := newTestBroker(context.Background(), BrokerOptions{
		Consumer:  consumer,
		Operators: recorder,
	})
	_, err := b.SignInConsumer(context.Background())
	require.NoError(t, err)
}

func TestOperatorRecordFailureDoesNotBlockSignIn(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockOperatorRecorder(ctrl)
	recorder.EXPECT().
		RecordSignIn(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("database down"))

	b := newTestBroker(context.Background(), BrokerOptions{
		Consumer:  mocksauth.NewMockConsumerProvider(),
		Operators: recorder,
	})

	sess, err := b.SignInConsumer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domainauth.ProviderConsumer, sess.Provider)
	assert.Equal(t, domainauth.StateAuthenticated, b.State())
}
