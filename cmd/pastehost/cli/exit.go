// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/pastehost/pastehost/lib/publish"
)

// Process exit codes. Scripts branch on these, so they are stable.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitAuth       = 2
	ExitPermission = 3
	ExitValidation = 4
	ExitRemote     = 5
)

// ExitError ends the process with Code without printing anything
// more; the command already wrote its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) ExitCode() int {
	return e.Code
}

// UsageError is a mistake in the command line.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Validation returns a UsageError with a formatted message.
func Validation(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps err to the process exit code. Publish failures map by
// kind; usage mistakes share the validation code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitValidation
	}
	if publishError := publish.As(err); publishError != nil {
		switch publishError.Kind {
		case publish.KindAuthentication:
			return ExitAuth
		case publish.KindPermission:
			return ExitPermission
		case publish.KindValidation:
			return ExitValidation
		default:
			return ExitRemote
		}
	}
	return ExitFailure
}

// Silent reports whether err asks for no error message.
func Silent(err error) bool {
	var exit *ExitError
	return errors.As(err, &exit)
}
