// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/pacer/gpu"
)

// WindowedOption configures a Windowed presenter.
type WindowedOption func(*Windowed)

// WithAcquireTimeout bounds each swapchain acquire and each wait for the
// surface to become drawable again. Zero, the default, waits until an image
// is available or the context is done.
func WithAcquireTimeout(d time.Duration) WindowedOption {
	return func(w *Windowed) {
		w.timeout = d
	}
}

// Windowed presents through a platform swapchain.
type Windowed struct {
	dev     gpu.Device
	surf    Surface
	sc      Swapchain
	set     *ImageSet
	timeout time.Duration
}

// NewWindowed creates a presenter for surf and builds the first swapchain.
func NewWindowed(dev gpu.Device, surf Surface, opts ...WindowedOption) (*Windowed, error) {
	w := &Windowed{dev: dev, surf: surf}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.build(context.Background()); err != nil {
		return nil, err
	}
	return w, nil
}

// ImageSet returns the current swapchain images.
func (w *Windowed) ImageSet() *ImageSet { return w.set }

// Recreate rebuilds the swapchain for the surface's current capabilities.
func (w *Windowed) Recreate(ctx context.Context) error {
	if err := w.dev.WaitIdle(ctx); err != nil {
		return fmt.Errorf("surface: recreate: %w", err)
	}
	destroySet(w.dev, w.set)
	w.set = nil
	return w.build(ctx)
}

func (w *Windowed) build(ctx context.Context) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, w.timeout, gpu.ErrTimeout)
		defer cancel()
	}
	caps, err := w.surf.Capabilities(ctx)
	if errors.Is(err, ErrClosed) {
		return err
	}
	if err != nil {
		return fmt.Errorf("surface: capabilities: %w", err)
	}
	if caps.CurrentExtent.IsZero() {
		return fmt.Errorf("surface: %w: %v", gpu.ErrInvalidExtent, caps.CurrentExtent)
	}

	old := w.sc
	sc, err := w.surf.CreateSwapchain(w.dev, SwapchainDescriptor{
		ImageCount: caps.ImageCount(),
		Extent:     caps.CurrentExtent,
		Format:     caps.Format,
		Old:        old,
	})
	if err != nil {
		return fmt.Errorf("surface: create swapchain: %w", err)
	}
	if old != nil {
		w.surf.DestroySwapchain(old)
	}
	w.sc = sc

	images := sc.Images()
	if len(images) == 0 {
		return ErrNoImages
	}
	set := &ImageSet{Extent: caps.CurrentExtent, Format: caps.Format, Images: images}
	for i, img := range images {
		v, err := w.dev.CreateView(img, fmt.Sprintf("swapchain[%d].view", i))
		if err != nil {
			destroySet(w.dev, set)
			return fmt.Errorf("surface: image view %d: %w", i, err)
		}
		set.Views = append(set.Views, v)
		s, err := w.dev.CreateSemaphore(fmt.Sprintf("swapchain[%d].done", i))
		if err != nil {
			destroySet(w.dev, set)
			return fmt.Errorf("surface: done semaphore %d: %w", i, err)
		}
		set.Done = append(set.Done, s)
	}
	w.set = set
	slogger().Debug("swapchain is now", "images", len(images), "size", set.Extent.String())
	return nil
}

// Acquire acquires the next swapchain image.
func (w *Windowed) Acquire(ctx context.Context, acquired gpu.Semaphore, _ FrameRequest) (uint32, gpu.Status, error) {
	return w.sc.Acquire(ctx, acquired, w.timeout)
}

// Present queues image index for display.
func (w *Windowed) Present(ctx context.Context, index uint32, done gpu.Semaphore) (gpu.Status, error) {
	return w.sc.Present(ctx, index, done)
}

// Drain is a no-op; windowed presentation defers nothing.
func (w *Windowed) Drain(context.Context) error { return nil }

// Destroy releases the image set and the swapchain.
func (w *Windowed) Destroy() {
	destroySet(w.dev, w.set)
	w.set = nil
	if w.sc != nil {
		w.surf.DestroySwapchain(w.sc)
		w.sc = nil
	}
}

var _ Presenter = (*Windowed)(nil)
