// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/gpu"
)

// Config is the per-run configuration consumed by the Engine.
type Config struct {
	// Headless replaces the window with an emulated swapchain and reads
	// frames from a script.
	Headless bool

	// Width and Height are the drawing size in headless mode. Windowed mode
	// follows the window.
	Width, Height uint32

	// Workspaces is the workspace pool depth, the bound on frames in flight.
	Workspaces int

	// Format is the image format of the emulated swapchain.
	Format gputypes.TextureFormat

	// MaxDelta clamps windowed frame deltas after a stall.
	MaxDelta time.Duration

	// AcquireTimeout bounds each blocking wait for a workspace or image.
	// Zero waits until the resource is free or the context is done.
	AcquireTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Width:      1280,
		Height:     720,
		Workspaces: 2,
		Format:     gputypes.TextureFormatBGRA8Unorm,
		MaxDelta:   100 * time.Millisecond,
	}
}

// Extent returns the configured drawing size.
func (c Config) Extent() gpu.Extent {
	return gpu.Extent{Width: c.Width, Height: c.Height}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	switch {
	case c.Workspaces < 1:
		return fmt.Errorf("%w: workspaces must be at least 1, got %d", ErrInvalidConfig, c.Workspaces)
	case c.Headless && (c.Width == 0 || c.Height == 0):
		return fmt.Errorf("%w: drawing size must be non-zero, got %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.MaxDelta < 0:
		return fmt.Errorf("%w: negative max delta %v", ErrInvalidConfig, c.MaxDelta)
	case c.AcquireTimeout < 0:
		return fmt.Errorf("%w: negative acquire timeout %v", ErrInvalidConfig, c.AcquireTimeout)
	}
	if c.Headless {
		if _, err := gpu.BytesPerPixel(c.Format); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}
