package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import "fmt"

// Provider identifies which identity provider authenticated a session.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Provider string

const (
	// ProviderEnterprise is the redirect-based enterprise identity provider.
	ProviderEnterprise Provider = "enterprise"
	// ProviderConsumer is the one-tap consumer identity provider.
	ProviderConsumer Provider = "consumer"
	// ProviderLocal is the username/password user directory.
	ProviderLocal Provider = "local"
)

// Valid reports whether p is one of the known providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderEnterprise, ProviderConsumer, ProviderLocal:
		return true
	default:
		return false
	}
}

// Session is the canonical identity record for the authenticated operator.
// Provider is fixed at creation and never changes for a session's lifetime.
// A Session is immutable: state changes are wholesale replacement, never
// in-place field mutation.
type Session struct {
	Provider Provider `json:"provider"`
	// UserID is the stable per-provider subject identifier.
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`

	// IdentityToken and AccessToken carry optional bearer material whose
	// presence and meaning differ by provider.
	IdentityToken string `json:"idToken,omitempty"`
	AccessToken   string `json:"accessToken,omitempty"`
}

// UserKey returns the globally unique user key "provider:userId".
func (s Session) UserKey() string {
	return fmt.Sprintf("%s:%s", s.Provider, s.UserID)
}

// SignUpOutcome is the result of a local-directory sign-up.
type SignUpOutcome string

const (
	// SignUpConfirmationRequired means a confirmation code was sent and must
	// be submitted before the first sign-in.
	SignUpConfirmationRequired SignUpOutcome = "confirmation_required"
	// SignUpDone means the account is immediately usable.
	SignUpDone SignUpOutcome = "done"
)

// BrokerState is the session broker's lifecycle state.
type BrokerState string

const (
	// StateLoading is the initial state while startup recovery runs.
	StateLoading BrokerState = "loading"
	// StateAuthenticated means a live session is held.
	StateAuthenticated BrokerState = "authenticated"
	// StateUnauthenticated means startup recovery found no session.
	StateUnauthenticated BrokerState = "unauthenticated"
)
