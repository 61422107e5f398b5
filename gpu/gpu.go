// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpu defines the narrow device contract the frame loop is written
// against.
//
// The contract exposes exactly two synchronization primitive kinds:
//
//   - [Fence]: a host-waitable completion signal. Fences gate host-side reuse
//     of a resource (a workspace, a readback buffer).
//   - [Semaphore]: a GPU-only ordering signal between queued operations. The
//     host never waits on a semaphore.
//
// Everything else (images, views, host-visible buffers, command buffers) is
// the minimum needed to emulate a presentation ring without a window.
//
// Implementations live in the backend packages:
//
//	import "github.com/gogpu/pacer/backend/soft" // software, deterministic
//	import "github.com/gogpu/pacer/backend/wgpu" // gogpu/wgpu HAL
package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Extent is a two-dimensional size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Pixels returns Width*Height.
func (e Extent) Pixels() int {
	return int(e.Width) * int(e.Height)
}

// String returns "WxH".
func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Extent3D converts the extent to a single-layer gputypes.Extent3D.
func (e Extent) Extent3D() gputypes.Extent3D {
	return gputypes.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: 1}
}
