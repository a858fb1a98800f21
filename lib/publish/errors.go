// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the closed set of failure categories the engine reports.
type Kind uint8

const (
	// KindAuthentication: the credential is missing, invalid, or
	// expired.
	KindAuthentication Kind = iota + 1

	// KindPermission: the credential is valid but lacks a required
	// scope.
	KindPermission

	// KindValidation: the request was rejected as malformed, or a
	// success-shaped response was missing a field the engine needs.
	KindValidation

	// KindAPI: any other backend failure, including failed and
	// timed-out deploys. Status carries the HTTP code when known.
	KindAPI

	// KindNetwork: no response was obtained at all. Reported as an
	// API failure to callers (see [Kind.IsAPI]).
	KindNetwork
)

// String returns the kind's name.
func (kind Kind) String() string {
	switch kind {
	case KindAuthentication:
		return "authentication"
	case KindPermission:
		return "permission"
	case KindValidation:
		return "validation"
	case KindAPI:
		return "api"
	case KindNetwork:
		return "network"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(kind))
	}
}

// IsAPI reports whether the kind surfaces as an API error. Network
// failures are a sub-case of API failures at the engine boundary.
func (kind Kind) IsAPI() bool {
	return kind == KindAPI || kind == KindNetwork
}

// Error is the single error type returned by engine operations.
type Error struct {
	// Kind is the failure category.
	Kind Kind

	// Backend names the hosting backend, when known.
	Backend string

	// Status is the HTTP status code, or zero when no response was
	// obtained or the failure is not an HTTP failure.
	Status int

	// Message is the backend's error message or the engine's
	// description of the failure.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (err *Error) Error() string {
	var builder strings.Builder
	if err.Backend != "" {
		builder.WriteString(err.Backend)
		builder.WriteString(": ")
	}
	switch err.Kind {
	case KindAuthentication:
		builder.WriteString("authentication failed (check your token)")
	case KindPermission:
		builder.WriteString("permission denied (check the token's required scope)")
	case KindValidation:
		builder.WriteString("invalid request or response")
	case KindAPI:
		if err.Status != 0 {
			fmt.Fprintf(&builder, "API error (HTTP %d)", err.Status)
		} else {
			builder.WriteString("API error")
		}
	case KindNetwork:
		builder.WriteString("network error")
	default:
		builder.WriteString(err.Kind.String())
	}
	if err.Message != "" {
		builder.WriteString(": ")
		builder.WriteString(err.Message)
	}
	if err.Err != nil && err.Message == "" {
		builder.WriteString(": ")
		builder.WriteString(err.Err.Error())
	}
	return builder.String()
}

func (err *Error) Unwrap() error { return err.Err }

// ClassifyStatus maps a non-2xx HTTP status to an Error. message is the
// backend's error text, possibly empty.
func ClassifyStatus(backend string, status int, message string) *Error {
	classified := &Error{Backend: backend, Status: status, Message: message}
	switch status {
	case http.StatusUnauthorized:
		classified.Kind = KindAuthentication
	case http.StatusForbidden:
		classified.Kind = KindPermission
	case http.StatusUnprocessableEntity:
		classified.Kind = KindValidation
	default:
		classified.Kind = KindAPI
	}
	if classified.Message == "" {
		classified.Message = http.StatusText(status)
	}
	return classified
}

// ClassifyTransport wraps a failure in which no HTTP response was
// obtained (DNS, connect, TLS, reset, context cancellation). Errors
// that are already classified are returned unchanged.
func ClassifyTransport(backend string, cause error) *Error {
	var existing *Error
	if errors.As(cause, &existing) {
		return existing
	}
	return &Error{
		Kind:    KindNetwork,
		Backend: backend,
		Message: "request failed before a response was received",
		Err:     cause,
	}
}

// InvalidResponse reports a success-shaped response that the engine
// cannot use: undecodable JSON or a missing required field.
func InvalidResponse(backend, detail string, cause error) *Error {
	return &Error{
		Kind:    KindValidation,
		Backend: backend,
		Message: "invalid response: " + detail,
		Err:     cause,
	}
}

// MissingCredential reports a publish attempted without a token.
func MissingCredential(backend string) *Error {
	return &Error{
		Kind:    KindAuthentication,
		Backend: backend,
		Message: "no token configured",
	}
}

// DeployFailed reports a deployment that reached the terminal error
// state.
func DeployFailed(backend, detail string) *Error {
	message := "deploy failed"
	if detail != "" {
		message += ": " + detail
	}
	return &Error{Kind: KindAPI, Backend: backend, Message: message}
}

// DeployTimedOut reports a readiness poll that exhausted its attempt
// budget without reaching a terminal state.
func DeployTimedOut(backend string, attempts int) *Error {
	return &Error{
		Kind:    KindAPI,
		Backend: backend,
		Message: fmt.Sprintf("deploy timed out after %d status checks", attempts),
	}
}

// As returns the *Error in err's chain, or nil.
func As(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return nil
}

// KindOf returns the Kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	if classified := As(err); classified != nil {
		return classified.Kind
	}
	return 0
}

// IsNotFound reports whether err is an HTTP 404 from a backend.
func IsNotFound(err error) bool {
	classified := As(err)
	return classified != nil && classified.Status == http.StatusNotFound
}
