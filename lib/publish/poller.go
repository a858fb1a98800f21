// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"time"

	"github.com/pastehost/pastehost/lib/clock"
)

const (
	DefaultPollInterval = time.Second
	DefaultPollAttempts = 60
)

// Poller waits for an asynchronous deployment to reach a terminal
// state by reading its status at a fixed interval.
type Poller struct {
	Backend  string
	Status   StatusReader
	Clock    clock.Clock
	Interval time.Duration

	// MaxAttempts bounds the number of status reads.
	MaxAttempts int
}

// WaitUntilReady polls until the deployment is ready, fails, or the
// attempt budget runs out. The final attempt is never followed by a
// wait or another read. Status read errors end the wait and are
// returned unchanged.
func (poller *Poller) WaitUntilReady(ctx context.Context, credential Credential, target Target, deploymentID string, progress ProgressFunc) (DeployState, error) {
	interval := poller.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	attempts := poller.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	clk := poller.Clock
	if clk == nil {
		clk = clock.Real()
	}

	for attempt := 1; ; attempt++ {
		raw, state, err := poller.Status.DeployStatus(ctx, credential, target, deploymentID)
		if err != nil {
			return DeployError, err
		}
		progress.report("deploy " + raw)

		switch state {
		case DeployReady:
			return DeployReady, nil
		case DeployError:
			return DeployError, DeployFailed(poller.Backend, raw)
		}

		if attempt >= attempts {
			return DeployTimeout, DeployTimedOut(poller.Backend, attempts)
		}

		select {
		case <-clk.After(interval):
		case <-ctx.Done():
			return DeployProcessing, ClassifyTransport(poller.Backend, ctx.Err())
		}
	}
}
