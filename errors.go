// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import "errors"

// Errors returned by the Engine.
var (
	// ErrInvalidConfig is returned by Config.Validate and New.
	ErrInvalidConfig = errors.New("pacer: invalid config")

	// ErrNoWindow is returned by New in windowed mode without WithWindow.
	ErrNoWindow = errors.New("pacer: windowed mode requires a window")

	// ErrNoApplication is returned by Run when app is nil.
	ErrNoApplication = errors.New("pacer: nil application")

	// ErrEngineDone is returned by Run when called a second time.
	ErrEngineDone = errors.New("pacer: engine already ran")
)
