package service

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
	"github.com/fleetglass/fleetglass/internal/observability/metrics"
	"github.com/fleetglass/fleetglass/internal/ports"
)

// TokenResolver produces a current bearer credential for a session,
// dispatching to the provider's refresh strategy. Callers attach the token
// to exactly one outbound request and never cache it beyond that request;
// a resolution failure means "not authenticated" for that one call, not a
// global sign-out.
type TokenResolver struct {
	enterprise ports.EnterpriseProvider

	// Concurrent enterprise resolutions for the same user coalesce into one
	// silent reacquisition; the provider's own retry policy is never
	// multiplied by fan-out.
	group singleflight.Group
}

var _ ports.TokenResolver = (*TokenResolver)(nil)

// NewTokenResolver constructs a TokenResolver. The enterprise provider may
// be nil when that adapter is disabled.
func NewTokenResolver(enterprise ports.EnterpriseProvider) *TokenResolver {
	return &TokenResolver{enterprise: enterprise}
}

// ResolveBearerToken returns a non-empty bearer string or a coded error;
// it never returns an empty string as success.
func (r *TokenResolver) ResolveBearerToken(ctx context.Context, sess domainauth.Session) (string, error) {
	token, err := r.resolve(ctx, sess)
	metrics.ObserveTokenResolution(string(sess.Provider), err)
	return token, err
}

func (r *TokenResolver) resolve(ctx context.Context, sess domainauth.Session) (string, error) {
	switch sess.Provider {
	case domainauth.ProviderConsumer:
		// The identity token obtained at sign-in is the bearer credential;
		// there is no refresh.
		if sess.IdentityToken == "" {
			return "", aerrors.MissingIdentityToken("consumer")
		}
		return sess.IdentityToken, nil

	case domainauth.ProviderLocal:
		// Reuses the token captured at sign-in/recovery. An expired token
		// requires full re-authentication, not silent reacquisition.
		if sess.IdentityToken == "" {
			return "", aerrors.MissingIdentityToken("local")
		}
		return sess.IdentityToken, nil

	case domainauth.ProviderEnterprise:
		v, err, _ := r.group.Do(sess.UserKey(), func() (any, error) {
			if r.enterprise == nil {
				return "", aerrors.NoActiveAccount()
			}
			return r.enterprise.AcquireTokenSilent(ctx)
		})
		if err != nil {
			return "", err
		}
		token, _ := v.(string)
		if token == "" {
			return "", aerrors.SilentAuthFailed(errors.New("provider returned an empty token"))
		}
		return token, nil

	default:
		return "", aerrors.Internalf("unknown session provider %q", sess.Provider)
	}
}
