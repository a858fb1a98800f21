// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/pastehost/pastehost/lib/clock"
)

// fakeTargets is an in-memory TargetAPI that counts calls.
type fakeTargets struct {
	mu      sync.Mutex
	targets []Target
	nextID  int

	listErr   error
	createErr error

	gets, lists, creates int
}

func (api *fakeTargets) GetTarget(_ context.Context, _ Credential, id string) (Target, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.gets++
	for _, target := range api.targets {
		if target.ID == id {
			return target, nil
		}
	}
	return Target{}, ClassifyStatus("fake", http.StatusNotFound, "")
}

func (api *fakeTargets) ListTargets(_ context.Context, _ Credential) ([]Target, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.lists++
	if api.listErr != nil {
		return nil, api.listErr
	}
	return append([]Target(nil), api.targets...), nil
}

func (api *fakeTargets) CreateTarget(_ context.Context, _ Credential, name string) (Target, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.creates++
	if api.createErr != nil {
		return Target{}, api.createErr
	}
	api.nextID++
	target := Target{
		ID:      "target-" + string(rune('0'+api.nextID)),
		Name:    name,
		BaseURL: "https://" + name + ".example.net",
	}
	api.targets = append(api.targets, target)
	return target, nil
}

// countingStore wraps MemoryStore, counting writes and optionally
// failing.
type countingStore struct {
	*MemoryStore
	sets   int
	getErr error
	setErr error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: NewMemoryStore()}
}

func (store *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if store.getErr != nil {
		return "", false, store.getErr
	}
	return store.MemoryStore.Get(ctx, key)
}

func (store *countingStore) Set(ctx context.Context, key, value string) error {
	store.sets++
	if store.setErr != nil {
		return store.setErr
	}
	return store.MemoryStore.Set(ctx, key, value)
}

// recordingDriver accepts every submission.
type recordingDriver struct {
	submissions []Submission
	state       DeployState
	err         error
}

func (driver *recordingDriver) Submit(_ context.Context, submission Submission) (*Deployment, error) {
	driver.submissions = append(driver.submissions, submission)
	if driver.err != nil {
		return nil, driver.err
	}
	state := driver.state
	if state == 0 {
		state = DeployReady
	}
	return &Deployment{ID: "deploy-1", Target: submission.Target, State: state}, nil
}

// scriptedStatus returns raw states from a script, repeating the last.
type scriptedStatus struct {
	mu     sync.Mutex
	script []string
	calls  int
	err    error
}

func (status *scriptedStatus) DeployStatus(context.Context, Credential, Target, string) (string, DeployState, error) {
	status.mu.Lock()
	defer status.mu.Unlock()
	status.calls++
	if status.err != nil {
		return "", 0, status.err
	}
	index := status.calls - 1
	if index >= len(status.script) {
		index = len(status.script) - 1
	}
	raw := status.script[index]
	switch raw {
	case "ready":
		return raw, DeployReady, nil
	case "error":
		return raw, DeployError, nil
	default:
		return raw, DeployProcessing, nil
	}
}

func (status *scriptedStatus) Calls() int {
	status.mu.Lock()
	defer status.mu.Unlock()
	return status.calls
}

type staticFiles struct {
	entries []ManifestEntry
	err     error
}

func (files staticFiles) CurrentFiles(context.Context, Credential, Target) ([]ManifestEntry, error) {
	return files.entries, files.err
}

// runAdvancing runs fn while advancing fakeClock by step whenever a
// waiter is pending, until fn returns.
func runAdvancing(t *testing.T, fakeClock *clock.FakeClock, step time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("timed out waiting for the operation to finish")
		default:
		}
		if fakeClock.PendingCount() > 0 {
			fakeClock.Advance(step)
		} else {
			time.Sleep(time.Millisecond)
		}
	}
}

var errBoom = errors.New("boom")
