// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the publish
// engine.
//
// Code that waits (the deploy readiness poller) or stamps records (the
// publish history) takes a Clock instead of calling the time package
// directly. Production wiring passes Real(); tests pass Fake() and move
// time forward explicitly with Advance, so a sixty-attempt poll budget
// runs in microseconds.
//
// # FakeClock Synchronization
//
// A goroutine blocked in After has registered a pending waiter. Tests
// call WaitForTimers before Advance so the advance cannot race ahead of
// the registration:
//
//	go func() { done <- poller.WaitUntilReady(...) }()
//	fake.WaitForTimers(1)
//	fake.Advance(time.Second)
package clock
