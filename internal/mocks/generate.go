// Package mocks provides generated mock implementations for testing.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for the narrow ports consumed across package boundaries. Hand-written
// doubles for the provider ports live in internal/mocks/auth.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for TokenResolver interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=token_resolver_mock.go github.com/fleetglass/fleetglass/internal/ports TokenResolver

// Generate mock for OperatorRecorder interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=operator_recorder_mock.go github.com/fleetglass/fleetglass/internal/ports OperatorRecorder
