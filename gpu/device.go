// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	"time"

	"github.com/gogpu/gputypes"
)

// Fence is a host-waitable completion signal.
//
// A fence is either signaled or unsignaled. Submitting work with a fence
// signals it once that work has finished executing; ResetFence returns it to
// the unsignaled state. A fence must not be reset while a submission that
// signals it is still pending.
type Fence interface {
	Label() string
}

// Semaphore is a GPU-only ordering signal.
//
// A submission that waits on a semaphore does not start executing until an
// earlier submission has signaled it; the wait consumes the signal.
type Semaphore interface {
	Label() string
}

// Image is a two-dimensional device image.
type Image interface {
	Label() string
	Extent() Extent
	Format() gputypes.TextureFormat
}

// View is a view onto an Image.
type View interface {
	Image() Image
}

// Buffer is a host-visible buffer that receives image copies.
type Buffer interface {
	Label() string
	Size() uint64
}

// CommandBuffer records GPU work. Commands execute in record order when the
// buffer is submitted. A command buffer may be submitted more than once; it
// must not be reset while a submission that uses it is pending.
type CommandBuffer interface {
	Label() string

	// Reset discards all recorded commands.
	Reset() error

	// ClearImage fills the whole image with c.
	ClearImage(img Image, c gputypes.Color)

	// WriteImage replaces the image contents with tightly packed pixels in
	// the image's own format. len(pixels) must equal Width*Height*bpp.
	WriteImage(img Image, pixels []byte)

	// CopyImageToBuffer copies the whole image into buf, tightly packed,
	// row-major, top row first.
	CopyImageToBuffer(img Image, buf Buffer)
}

// ImageDescriptor describes an image to create.
type ImageDescriptor struct {
	Label  string
	Extent Extent
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// SubmitInfo describes one queue submission.
//
// Execution order: wait on every semaphore in Wait, run Commands in order,
// signal every semaphore in Signal, then signal Fence (if non-nil). A
// submission with no commands is valid and is how a semaphore or fence is
// signaled without GPU work.
type SubmitInfo struct {
	Label    string
	Wait     []Semaphore
	Commands []CommandBuffer
	Signal   []Semaphore
	Fence    Fence
}

// Device is a GPU device with a single in-order queue.
//
// All methods are called from the host control thread. Implementations
// execute submissions asynchronously with respect to the caller.
type Device interface {
	// Name identifies the backend, e.g. "soft" or "wgpu".
	Name() string

	CreateFence(label string, signaled bool) (Fence, error)
	DestroyFence(f Fence)

	// WaitFence blocks until f is signaled, ctx is done, or timeout elapses.
	// A timeout <= 0 waits without bound. Returns ErrTimeout on timeout.
	WaitFence(ctx context.Context, f Fence, timeout time.Duration) error

	// FenceSignaled reports the current state of f without blocking.
	FenceSignaled(f Fence) (bool, error)

	// ResetFence returns f to the unsignaled state.
	ResetFence(f Fence) error

	CreateSemaphore(label string) (Semaphore, error)
	DestroySemaphore(s Semaphore)

	CreateImage(desc ImageDescriptor) (Image, error)
	DestroyImage(img Image)

	CreateView(img Image, label string) (View, error)
	DestroyView(v View)

	CreateBuffer(label string, size uint64) (Buffer, error)
	DestroyBuffer(buf Buffer)

	// ReadBuffer copies the host-visible contents of buf into dst. The
	// caller guarantees that every submission writing buf has completed.
	ReadBuffer(buf Buffer, dst []byte) error

	CreateCommandBuffer(label string) (CommandBuffer, error)
	FreeCommandBuffer(cb CommandBuffer)

	// Submit queues work. It never blocks on GPU execution.
	Submit(info SubmitInfo) error

	// WaitIdle blocks until every queued submission has completed.
	WaitIdle(ctx context.Context) error

	// Destroy waits for the queue to drain and releases the device.
	Destroy()
}
