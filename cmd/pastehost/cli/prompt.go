// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/pastehost/pastehost/lib/secret"
)

// ReadSecret prompts on stderr and reads one line from the terminal
// without echo. When stdin is not a terminal it reads the first line
// of stdin instead, so tokens can be piped in.
func ReadSecret(prompt string) (*secret.Buffer, error) {
	if !IsTerminal(os.Stdin) {
		return secret.ReadLine(os.Stdin)
	}
	fmt.Fprint(Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	buffer, err := secret.NewFromBytes(bytes.TrimSpace(data))
	secret.Zero(data)
	if err != nil {
		return nil, fmt.Errorf("token is empty")
	}
	return buffer, nil
}
