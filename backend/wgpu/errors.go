// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import "errors"

var (
	// ErrNoAdapter is returned by Open when no GPU adapter is found.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

	// ErrNoHalAccess is returned by FromProvider when the provider does
	// not expose its HAL device and queue.
	ErrNoHalAccess = errors.New("wgpu: provider does not expose HAL device")

	// ErrWaitForever is returned when waiting on a fence that no pending
	// submission will signal.
	ErrWaitForever = errors.New("wgpu: fence wait can never complete")

	// ErrSemaphore is returned by Submit for a semaphore wait nobody
	// signaled, or a signal of an already signaled semaphore.
	ErrSemaphore = errors.New("wgpu: semaphore misuse")
)
