// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface produces and maintains the ring of images frames are
// rendered into.
//
// Two Presenter implementations share one contract. Windowed drives a real
// platform swapchain through the Surface interface. Headless emulates the
// swapchain with a fixed ring of HeadlessDepth device images, copies each
// finished frame to a host-visible buffer and writes it to disk one cycle
// later, when the slot comes around again.
//
// Every Recreate replaces the ImageSet wholesale. Handles taken from the
// previous set are invalid as soon as Recreate returns.
package surface

import (
	"context"
	"errors"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/gpu"
)

// HeadlessDepth is the number of images in the emulated swapchain.
const HeadlessDepth = 3

// ErrNoImages is returned when a swapchain reports zero images.
var ErrNoImages = errors.New("surface: swapchain has no images")

// ImageSet is the current set of presentable images. Images, Views and Done
// always have the same length.
type ImageSet struct {
	Extent gpu.Extent
	Format gputypes.TextureFormat
	Images []gpu.Image
	Views  []gpu.View

	// Done[i] is signaled by rendering into Images[i] and waited on by its
	// presentation.
	Done []gpu.Semaphore
}

// Len returns the number of images.
func (s *ImageSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Images)
}

// FrameRequest carries per-frame data to Acquire.
type FrameRequest struct {
	Frame uint64

	// Save names the file that receives this frame's pixels. Headless only;
	// empty means no capture.
	Save string
}

// Presenter owns the image ring. It is selected once at construction.
type Presenter interface {
	// ImageSet returns the current images.
	ImageSet() *ImageSet

	// Recreate waits for the device to go idle and rebuilds the image set.
	Recreate(ctx context.Context) error

	// Acquire returns the index of the next image and arranges for acquired
	// to be signaled once the image may be rendered to. A stale swapchain
	// is reported as gpu.ErrOutOfDate.
	Acquire(ctx context.Context, acquired gpu.Semaphore, req FrameRequest) (uint32, gpu.Status, error)

	// Present queues image index for display once done is signaled.
	Present(ctx context.Context, index uint32, done gpu.Semaphore) (gpu.Status, error)

	// Drain completes any deferred work, such as pending captures.
	Drain(ctx context.Context) error

	// Destroy releases all resources. The device must be idle.
	Destroy()
}

// Capabilities describes what a platform surface supports.
type Capabilities struct {
	MinImageCount uint32
	MaxImageCount uint32 // zero means unbounded
	CurrentExtent gpu.Extent
	Format        gputypes.TextureFormat
}

// ImageCount picks one more image than the minimum, clamped to the maximum.
func (c Capabilities) ImageCount() uint32 {
	n := c.MinImageCount + 1
	if c.MaxImageCount != 0 && n > c.MaxImageCount {
		n = c.MaxImageCount
	}
	return n
}

// SwapchainDescriptor describes a swapchain to create.
type SwapchainDescriptor struct {
	ImageCount uint32
	Extent     gpu.Extent
	Format     gputypes.TextureFormat

	// Old is the swapchain being replaced, if any.
	Old Swapchain
}

// Swapchain is a platform image ring.
type Swapchain interface {
	// Images returns the swapchain images. They belong to the swapchain.
	Images() []gpu.Image

	// Acquire returns the next image index, signaling signal once the image
	// is free. timeout <= 0 waits without limit.
	Acquire(ctx context.Context, signal gpu.Semaphore, timeout time.Duration) (uint32, gpu.Status, error)

	// Present shows image index after wait is signaled.
	Present(ctx context.Context, index uint32, wait gpu.Semaphore) (gpu.Status, error)
}

// Surface is a platform presentation target such as a window.
type Surface interface {
	// Capabilities reports the surface's current properties. It may block
	// while the surface has no drawable area, and returns ErrClosed once the
	// window is gone.
	Capabilities(ctx context.Context) (Capabilities, error)
	CreateSwapchain(dev gpu.Device, desc SwapchainDescriptor) (Swapchain, error)
	DestroySwapchain(sc Swapchain)
}

// destroySet releases the views and semaphores of set. Images are released
// by the caller since their owner differs between presenters.
func destroySet(dev gpu.Device, set *ImageSet) {
	if set == nil {
		return
	}
	for _, v := range set.Views {
		dev.DestroyView(v)
	}
	for _, s := range set.Done {
		dev.DestroySemaphore(s)
	}
	set.Views, set.Done = nil, nil
}
