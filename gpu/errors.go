// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import "errors"

// Status is the non-error outcome of an acquire or present.
type Status int

const (
	// StatusOptimal means the surface matches the swapchain exactly.
	StatusOptimal Status = iota

	// StatusSuboptimal means the operation succeeded but the swapchain no
	// longer matches the surface exactly. The image is still usable.
	StatusSuboptimal
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusSuboptimal:
		return "suboptimal"
	default:
		return "unknown"
	}
}

// Package errors.
var (
	// ErrOutOfDate is returned by acquire and present when the surface has
	// changed so that the swapchain can no longer be used. The swapchain must
	// be recreated.
	ErrOutOfDate = errors.New("gpu: surface out of date")

	// ErrDeviceLost is returned once the device has failed. Every subsequent
	// call returns an error wrapping it.
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrTimeout is returned by bounded waits that expire.
	ErrTimeout = errors.New("gpu: wait timed out")

	// ErrDestroyed is returned when a destroyed object is used.
	ErrDestroyed = errors.New("gpu: object destroyed")

	// ErrForeignHandle is returned when a handle created by another device
	// is passed in.
	ErrForeignHandle = errors.New("gpu: handle belongs to another device")

	// ErrInUse is returned when an object is reset while pending work
	// still references it.
	ErrInUse = errors.New("gpu: object in use by pending work")

	// ErrUnsupportedFormat is returned for pixel formats the caller cannot
	// handle.
	ErrUnsupportedFormat = errors.New("gpu: unsupported pixel format")

	// ErrInvalidExtent is returned for zero-sized images.
	ErrInvalidExtent = errors.New("gpu: invalid extent")
)
