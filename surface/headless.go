// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/capture"
	"github.com/gogpu/pacer/gpu"
)

// HeadlessOption configures a Headless presenter.
type HeadlessOption func(*Headless)

// WithSaveObserver registers fn to be called after each frame is written.
func WithSaveObserver(fn func(capture.Saved)) HeadlessOption {
	return func(h *Headless) {
		h.observer = fn
	}
}

// WithPresentTimeout bounds the wait for a slot's previous copy. Zero waits
// until it completes or the context is done.
func WithPresentTimeout(d time.Duration) HeadlessOption {
	return func(h *Headless) {
		h.timeout = d
	}
}

type slot struct {
	index     int
	image     gpu.Image
	staging   gpu.Buffer
	copy      gpu.CommandBuffer
	presented gpu.Fence

	// save is the file awaiting this slot's pixels; empty when none.
	save  string
	frame uint64

	// armed is set between Acquire and Present. An armed slot's fence
	// will not be signaled, so its save is dropped.
	armed bool
}

// Headless emulates a swapchain of HeadlessDepth images whose contents are
// copied to host memory after each present and saved one cycle later.
type Headless struct {
	dev      gpu.Device
	extent   gpu.Extent
	format   gputypes.TextureFormat
	slots    []*slot
	set      *ImageSet
	cursor   int
	timeout  time.Duration
	observer func(capture.Saved)
	saved    int
}

// NewHeadless creates an emulated swapchain of the given extent and format.
func NewHeadless(dev gpu.Device, extent gpu.Extent, format gputypes.TextureFormat, opts ...HeadlessOption) (*Headless, error) {
	h := &Headless{dev: dev, extent: extent, format: format}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.build(); err != nil {
		h.teardown()
		return nil, err
	}
	return h, nil
}

// ImageSet returns the emulated swapchain images.
func (h *Headless) ImageSet() *ImageSet { return h.set }

// Saved returns how many frames have been written.
func (h *Headless) Saved() int { return h.saved }

// Resize changes the extent used by the next Recreate. Captures already
// pending keep the extent their frame was rendered at.
func (h *Headless) Resize(extent gpu.Extent) { h.extent = extent }

// Recreate writes any pending captures, waits for the device to go idle and
// rebuilds every slot from scratch.
func (h *Headless) Recreate(ctx context.Context) error {
	if err := h.Drain(ctx); err != nil {
		return err
	}
	if err := h.dev.WaitIdle(ctx); err != nil {
		return fmt.Errorf("surface: recreate: %w", err)
	}
	h.teardown()
	if err := h.build(); err != nil {
		h.teardown()
		return err
	}
	return nil
}

func (h *Headless) build() error {
	size, err := gpu.ImageSize(h.extent, h.format)
	if err != nil {
		return fmt.Errorf("surface: headless: %w", err)
	}
	if h.extent.IsZero() {
		return fmt.Errorf("surface: headless: %w: %v", gpu.ErrInvalidExtent, h.extent)
	}

	set := &ImageSet{Extent: h.extent, Format: h.format}
	h.set = set
	for i := 0; i < HeadlessDepth; i++ {
		s := &slot{index: i}
		h.slots = append(h.slots, s)

		if s.image, err = h.dev.CreateImage(gpu.ImageDescriptor{
			Label:  fmt.Sprintf("headless[%d]", i),
			Extent: h.extent,
			Format: h.format,
			Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
		}); err != nil {
			return fmt.Errorf("surface: headless image %d: %w", i, err)
		}
		set.Images = append(set.Images, s.image)

		v, err := h.dev.CreateView(s.image, fmt.Sprintf("headless[%d].view", i))
		if err != nil {
			return fmt.Errorf("surface: headless view %d: %w", i, err)
		}
		set.Views = append(set.Views, v)

		done, err := h.dev.CreateSemaphore(fmt.Sprintf("headless[%d].done", i))
		if err != nil {
			return fmt.Errorf("surface: headless semaphore %d: %w", i, err)
		}
		set.Done = append(set.Done, done)

		if s.staging, err = h.dev.CreateBuffer(fmt.Sprintf("headless[%d].staging", i), size); err != nil {
			return fmt.Errorf("surface: headless staging buffer %d: %w", i, err)
		}
		if s.copy, err = h.dev.CreateCommandBuffer(fmt.Sprintf("headless[%d].copy", i)); err != nil {
			return fmt.Errorf("surface: headless copy command %d: %w", i, err)
		}
		s.copy.CopyImageToBuffer(s.image, s.staging)

		// Signaled so the first acquire of each slot does not block.
		if s.presented, err = h.dev.CreateFence(fmt.Sprintf("headless[%d].presented", i), true); err != nil {
			return fmt.Errorf("surface: headless fence %d: %w", i, err)
		}
	}
	h.cursor = 0
	slogger().Debug("swapchain is now", "images", HeadlessDepth, "size", h.extent.String(), "headless", true)
	return nil
}

// teardown releases every slot. Nil handles from a partial build are skipped.
func (h *Headless) teardown() {
	destroySet(h.dev, h.set)
	h.set = nil
	for _, s := range h.slots {
		if s.presented != nil {
			h.dev.DestroyFence(s.presented)
		}
		if s.copy != nil {
			h.dev.FreeCommandBuffer(s.copy)
		}
		if s.staging != nil {
			h.dev.DestroyBuffer(s.staging)
		}
		if s.image != nil {
			h.dev.DestroyImage(s.image)
		}
	}
	h.slots = nil
}

// Acquire advances the ring, writes the slot's pending capture if it has
// one, records req.Save for this frame and signals acquired right away.
func (h *Headless) Acquire(ctx context.Context, acquired gpu.Semaphore, req FrameRequest) (uint32, gpu.Status, error) {
	s := h.slots[h.cursor]
	h.cursor = (h.cursor + 1) % len(h.slots)

	if err := h.dev.WaitFence(ctx, s.presented, h.timeout); err != nil {
		return 0, gpu.StatusOptimal, fmt.Errorf("surface: headless acquire %d: %w", s.index, err)
	}
	if err := h.flush(s); err != nil {
		return 0, gpu.StatusOptimal, err
	}
	s.save = req.Save
	s.frame = req.Frame

	if err := h.dev.ResetFence(s.presented); err != nil {
		return 0, gpu.StatusOptimal, fmt.Errorf("surface: headless acquire %d: %w", s.index, err)
	}
	s.armed = true
	if err := h.dev.Submit(gpu.SubmitInfo{
		Label:  "headless acquire",
		Signal: []gpu.Semaphore{acquired},
	}); err != nil {
		return 0, gpu.StatusOptimal, fmt.Errorf("surface: headless acquire %d: %w", s.index, err)
	}
	return uint32(s.index), gpu.StatusOptimal, nil
}

// Present queues the copy of image index into its staging buffer once done
// is signaled. It never blocks.
func (h *Headless) Present(_ context.Context, index uint32, done gpu.Semaphore) (gpu.Status, error) {
	if int(index) >= len(h.slots) {
		return gpu.StatusOptimal, fmt.Errorf("surface: headless present: index %d out of range", index)
	}
	s := h.slots[index]
	if err := h.dev.Submit(gpu.SubmitInfo{
		Label:    "headless copy",
		Wait:     []gpu.Semaphore{done},
		Commands: []gpu.CommandBuffer{s.copy},
		Fence:    s.presented,
	}); err != nil {
		return gpu.StatusOptimal, fmt.Errorf("surface: headless present %d: %w", index, err)
	}
	s.armed = false
	return gpu.StatusOptimal, nil
}

// Drain waits for and writes every pending capture in ring order.
func (h *Headless) Drain(ctx context.Context) error {
	n := len(h.slots)
	for i := 0; i < n; i++ {
		s := h.slots[(h.cursor+i)%n]
		if s.save == "" {
			continue
		}
		if s.armed {
			slogger().Warn("surface: dropping capture of a frame that was never presented",
				"file", s.save, "frame", s.frame)
			s.save = ""
			continue
		}
		if err := h.dev.WaitFence(ctx, s.presented, h.timeout); err != nil {
			return fmt.Errorf("surface: drain slot %d: %w", s.index, err)
		}
		if err := h.flush(s); err != nil {
			return err
		}
	}
	return nil
}

// flush writes the slot's pending capture. The slot's fence must be signaled.
func (h *Headless) flush(s *slot) error {
	if s.save == "" {
		return nil
	}
	path := s.save
	s.save = ""

	if !capture.Supported(h.format) {
		slogger().Warn("surface: cannot save frame, unsupported pixel format",
			"file", path, "format", h.format)
		return nil
	}

	pixels := make([]byte, s.staging.Size())
	if err := h.dev.ReadBuffer(s.staging, pixels); err != nil {
		return fmt.Errorf("surface: read slot %d: %w", s.index, err)
	}
	// h.extent may already hold a size requested through Resize.
	saved, err := capture.Save(path, h.set.Extent, h.format, pixels)
	if errors.Is(err, capture.ErrUnsupportedFormat) {
		slogger().Warn("surface: cannot save frame", "file", path, "err", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("surface: save frame %d: %w", s.frame, err)
	}
	saved.Frame = s.frame
	h.saved++
	slogger().Debug("surface: saved frame", "file", path, "frame", s.frame)
	if h.observer != nil {
		h.observer(saved)
	}
	return nil
}

// Destroy releases every slot. The device must be idle.
func (h *Headless) Destroy() {
	h.teardown()
}

var _ Presenter = (*Headless)(nil)
