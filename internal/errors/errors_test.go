package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "wrapper")

	assert.Equal(t, "wrapper: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestMissingConfigurationNamesSetting(t *testing.T) {
	err := MissingConfiguration("enterprise client id")

	require.True(t, IsMissingConfiguration(err))
	assert.Equal(t, "enterprise client id", GetField(err))
	assert.Contains(t, err.Error(), "enterprise client id")
}

func TestTokenResolutionFailureCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "no active account", err: NoActiveAccount(), want: true},
		{name: "silent auth failed", err: SilentAuthFailed(errors.New("rejected")), want: true},
		{name: "missing identity token", err: MissingIdentityToken("local"), want: true},
		{name: "wrapped", err: fmt.Errorf("call failed: %w", NoActiveAccount()), want: true},
		{name: "invalid credentials", err: InvalidCredentials("nope"), want: false},
		{name: "plain error", err: errors.New("x"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTokenResolutionFailure(tt.err))
		})
	}
}

func TestDirectoryMessagesAreVerbatim(t *testing.T) {
	err := InvalidCode("Invalid verification code provided, please try again.")
	assert.Equal(t, "Invalid verification code provided, please try again.", err.Error())
	assert.Equal(t, ErrCodeInvalidCode, GetCode(err))
}

func TestPromptTimeoutMentionsDuration(t *testing.T) {
	err := PromptTimeout(7 * time.Second)
	assert.Equal(t, ErrCodePromptTimeout, GetCode(err))
	assert.Contains(t, err.Error(), "7s")
}

func TestRedirectNotCompletedIsInternalMarker(t *testing.T) {
	err := RedirectNotCompleted()
	assert.Equal(t, ErrCodeRedirectNotCompleted, GetCode(err))
	// Not a token-resolution failure: it marks an unfinished redirect, which
	// the callback handler resolves by polling, never by re-prompting.
	assert.False(t, IsTokenResolutionFailure(err))
}

func TestGetCodeNonAppError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}
