package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result constants for metric labelling.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	signInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetglass_sign_ins_total",
		Help: "Sign-in attempts by identity provider and result.",
	}, []string{"provider", "result"})

	sessionRecoveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetglass_session_recoveries_total",
		Help: "Startup session recoveries by winning identity provider.",
	}, []string{"provider"})

	signOutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetglass_sign_outs_total",
		Help: "Sign-outs by identity provider.",
	}, []string{"provider"})

	tokenResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetglass_token_resolutions_total",
		Help: "Bearer token resolutions by identity provider and result.",
	}, []string{"provider", "result"})
)

// ObserveSignIn records one sign-in attempt.
func ObserveSignIn(provider string, err error) {
	signInsTotal.WithLabelValues(provider, resultOf(err)).Inc()
}

// ObserveSessionRecovery records which provider settled startup recovery.
// An unauthenticated settle is recorded under provider "none".
func ObserveSessionRecovery(provider string) {
	if provider == "" {
		provider = "none"
	}
	sessionRecoveriesTotal.WithLabelValues(provider).Inc()
}

// ObserveSignOut records one sign-out.
func ObserveSignOut(provider string) {
	signOutsTotal.WithLabelValues(provider).Inc()
}

// ObserveTokenResolution records one bearer token resolution.
func ObserveTokenResolution(provider string, err error) {
	tokenResolutionsTotal.WithLabelValues(provider, resultOf(err)).Inc()
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
