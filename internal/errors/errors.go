package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"

	// ErrCodeMissingConfiguration indicates a required adapter setting is absent.
	// Fatal at startup for the affected provider adapter only.
	ErrCodeMissingConfiguration ErrorCode = "missing_configuration"
	// ErrCodeNoActiveAccount indicates token resolution found no active enterprise account.
	ErrCodeNoActiveAccount ErrorCode = "no_active_account"
	// ErrCodeSilentAuthFailed indicates silent token reacquisition was rejected by the provider.
	ErrCodeSilentAuthFailed ErrorCode = "silent_auth_failed"
	// ErrCodeMissingIdentityToken indicates a session carries no identity token to present.
	ErrCodeMissingIdentityToken ErrorCode = "missing_identity_token"
	// ErrCodeInvalidCredentials indicates the directory rejected a username/password pair.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeInvalidCode indicates the directory rejected a confirmation code.
	ErrCodeInvalidCode ErrorCode = "invalid_code"
	// ErrCodeAlreadyConfirmed indicates the account needs no confirmation.
	ErrCodeAlreadyConfirmed ErrorCode = "already_confirmed"
	// ErrCodeConfirmationPending indicates sign-in was attempted before confirmation completed.
	ErrCodeConfirmationPending ErrorCode = "confirmation_pending"
	// ErrCodeRedirectNotCompleted indicates the enterprise redirect has not finished yet.
	// Internal: absorbed by the callback handler's bounded poll, never surfaced.
	ErrCodeRedirectNotCompleted ErrorCode = "redirect_not_completed"
	// ErrCodePromptTimeout indicates the consumer credential prompt did not resolve in time.
	ErrCodePromptTimeout ErrorCode = "prompt_timeout"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
}

// MissingConfiguration creates an error naming the absent setting.
func MissingConfiguration(setting string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingConfiguration,
		Message: fmt.Sprintf("missing configuration: %s", setting),
		Field:   setting,
	}
}

// NoActiveAccount creates an error for token resolution with no cached enterprise account.
func NoActiveAccount() *AppError {
	return &AppError{Code: ErrCodeNoActiveAccount, Message: "no active enterprise account"}
}

// SilentAuthFailed wraps a provider rejection of silent token reacquisition.
func SilentAuthFailed(cause error) *AppError {
	return &AppError{Code: ErrCodeSilentAuthFailed, Message: "silent token reacquisition failed", Cause: cause}
}

// MissingIdentityToken creates an error for a session without usable bearer material.
func MissingIdentityToken(provider string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingIdentityToken,
		Message: fmt.Sprintf("missing %s identity token", provider),
	}
}

// InvalidCredentials creates an error carrying the directory's verbatim message.
func InvalidCredentials(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidCredentials, Message: message}
}

// InvalidCode creates an error carrying the directory's verbatim message.
func InvalidCode(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidCode, Message: message}
}

// AlreadyConfirmed creates an error carrying the directory's verbatim message.
func AlreadyConfirmed(message string) *AppError {
	return &AppError{Code: ErrCodeAlreadyConfirmed, Message: message}
}

// ConfirmationPending creates an error for sign-in before confirmation.
func ConfirmationPending(message string) *AppError {
	return &AppError{Code: ErrCodeConfirmationPending, Message: message}
}

// RedirectNotCompleted creates the internal marker error for an unfinished redirect.
func RedirectNotCompleted() *AppError {
	return &AppError{Code: ErrCodeRedirectNotCompleted, Message: "enterprise redirect not completed"}
}

// PromptTimeout creates an error for a timed-out consumer credential prompt.
func PromptTimeout(d time.Duration) *AppError {
	return &AppError{
		Code:    ErrCodePromptTimeout,
		Message: fmt.Sprintf("credential prompt not resolved within %s", d),
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsMissingConfiguration checks if an error is a MissingConfiguration error.
func IsMissingConfiguration(err error) bool { return isCode(err, ErrCodeMissingConfiguration) }

// IsTokenResolutionFailure reports whether err is one of the token-resolution
// failure codes. Callers treat these as "not authenticated for this one call".
func IsTokenResolutionFailure(err error) bool {
	return isCode(err, ErrCodeNoActiveAccount) ||
		isCode(err, ErrCodeSilentAuthFailed) ||
		isCode(err, ErrCodeMissingIdentityToken)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
