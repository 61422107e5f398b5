// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import (
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/gpu"
)

// Application is the single consumer of the Engine's frames. All methods
// run on the goroutine that called Run, in the order OnInput, Update,
// Render within each frame.
type Application interface {
	// OnSwapchain is called before the first frame and again after every
	// image set recreation, always before the next Render.
	OnSwapchain(e *Engine, info SwapchainInfo)

	// Update advances the application by dt seconds.
	Update(dt float64)

	// OnInput receives one queued window event. Never called headless.
	OnInput(ev InputEvent)

	// Render records and submits this frame's GPU work. The submission must
	// wait on p.ImageAcquired, signal p.ImageDone and signal
	// p.WorkspaceAvailable.
	Render(e *Engine, p RenderParams) error
}

// StatsObserver may be implemented by an Application to receive per-frame
// statistics after each present.
type StatsObserver interface {
	OnFrameStats(s FrameStats)
}

// SwapchainInfo describes the current image set.
type SwapchainInfo struct {
	Extent gpu.Extent
	Format gputypes.TextureFormat
	Images []gpu.Image
	Views  []gpu.View
}

// RenderParams carries the only synchronization state an Application sees.
type RenderParams struct {
	WorkspaceIndex     int
	ImageIndex         uint32
	ImageAcquired      gpu.Semaphore
	ImageDone          gpu.Semaphore
	WorkspaceAvailable gpu.Fence
}

// FrameStats describes one completed iteration.
type FrameStats struct {
	Frame          uint64
	Dt             float64
	WorkspaceIndex int
	ImageIndex     uint32
	RenderTime     time.Duration

	// Recreated counts image set recreations during this frame.
	Recreated int
}
