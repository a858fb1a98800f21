// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import "context"

// ProgressFunc receives human-readable progress messages. It is for
// display only and may be nil.
type ProgressFunc func(message string)

func (progress ProgressFunc) report(message string) {
	if progress != nil {
		progress(message)
	}
}

// DeployState is the lifecycle state of a deployment.
type DeployState uint8

const (
	DeploySubmitted DeployState = iota + 1
	DeployProcessing
	DeployReady
	DeployError
	DeployTimeout
)

func (state DeployState) String() string {
	switch state {
	case DeploySubmitted:
		return "submitted"
	case DeployProcessing:
		return "processing"
	case DeployReady:
		return "ready"
	case DeployError:
		return "error"
	case DeployTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (state DeployState) Terminal() bool {
	return state == DeployReady || state == DeployError || state == DeployTimeout
}

// Deployment is the backend's record of one submission.
type Deployment struct {
	ID string

	// Target is the target the deployment landed in. It differs from
	// the submitted target when the driver rotated.
	Target Target

	State DeployState

	// RawState is the backend's own state string.
	RawState string
}

// Submission is everything a Driver needs to publish one artifact.
type Submission struct {
	Credential Credential
	Target     Target

	// Manifest is the complete desired file set, already merged.
	Manifest Manifest

	// Artifact is the only file whose bytes are available locally.
	Artifact Artifact

	// Rotate creates and records a fresh target. Only drivers with a
	// per-target capacity call it.
	Rotate func(ctx context.Context) (Target, error)

	Progress ProgressFunc
}

// Driver submits a merged manifest using one backend's publish
// protocol. A Driver returns after the backend accepted the
// submission; waiting for asynchronous builds is the [Poller]'s job.
// Partial success is failure.
type Driver interface {
	Submit(ctx context.Context, submission Submission) (*Deployment, error)
}

// FileLister is implemented by backends that can report the files a
// target currently serves. Backends without it deploy a manifest
// holding only the new artifact, which is correct for backends that
// keep previous files on their own.
type FileLister interface {
	CurrentFiles(ctx context.Context, credential Credential, target Target) ([]ManifestEntry, error)
}

// StatusReader is implemented by backends whose deployments build
// asynchronously.
type StatusReader interface {
	// DeployStatus returns the backend's raw state string and its
	// mapping onto DeployState.
	DeployStatus(ctx context.Context, credential Credential, target Target, deploymentID string) (string, DeployState, error)
}
