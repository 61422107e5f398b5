// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surfacetest provides a scriptable platform surface for tests.
package surfacetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/gpu"
	"github.com/gogpu/pacer/surface"
)

// Surface is a fake platform surface whose swapchain images are ordinary
// device images. Fields may be changed between frames to script staleness
// and resizes.
type Surface struct {
	mu sync.Mutex

	Caps surface.Capabilities

	// StaleAcquires is the number of upcoming acquires that report
	// gpu.ErrOutOfDate. StalePresents and SuboptimalPresents likewise.
	StaleAcquires      int
	StalePresents      int
	SuboptimalPresents int

	// Minimized surfaces block Capabilities and Acquire until restored.
	// Closed surfaces report surface.ErrClosed from both.
	Minimized bool
	Closed    bool

	// Created counts swapchains created; Live counts those not destroyed.
	Created  int
	Live     int
	Presents int
}

// New returns a surface reporting extent with min images 2 and no maximum.
func New(extent gpu.Extent) *Surface {
	return &Surface{Caps: surface.Capabilities{
		MinImageCount: 2,
		CurrentExtent: extent,
		Format:        gputypes.TextureFormatBGRA8Unorm,
	}}
}

// Resize changes the reported extent and makes the next acquire stale.
func (s *Surface) Resize(extent gpu.Extent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Caps.CurrentExtent = extent
	s.StaleAcquires++
}

// SetMinimized minimizes or restores the surface.
func (s *Surface) SetMinimized(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Minimized = v
}

// Close marks the surface's window as closed.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
}

// visible reports whether the surface can be drawn to.
func (s *Surface) visible() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Closed {
		return false, surface.ErrClosed
	}
	return !s.Minimized, nil
}

// Capabilities implements surface.Surface.
func (s *Surface) Capabilities(ctx context.Context) (surface.Capabilities, error) {
	if err := surface.WaitUntil(ctx, 0, s.visible, time.Sleep); err != nil {
		return surface.Capabilities{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Caps, nil
}

// CreateSwapchain implements surface.Surface.
func (s *Surface) CreateSwapchain(dev gpu.Device, desc surface.SwapchainDescriptor) (surface.Swapchain, error) {
	sc := &Swapchain{surf: s, dev: dev}
	for i := uint32(0); i < desc.ImageCount; i++ {
		img, err := dev.CreateImage(gpu.ImageDescriptor{
			Label:  fmt.Sprintf("fake-swapchain[%d]", i),
			Extent: desc.Extent,
			Format: desc.Format,
			Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			sc.destroy()
			return nil, err
		}
		sc.images = append(sc.images, img)
	}
	s.mu.Lock()
	s.Created++
	s.Live++
	s.mu.Unlock()
	return sc, nil
}

// DestroySwapchain implements surface.Surface.
func (s *Surface) DestroySwapchain(sc surface.Swapchain) {
	if fsc, ok := sc.(*Swapchain); ok {
		fsc.destroy()
		s.mu.Lock()
		s.Live--
		s.mu.Unlock()
	}
}

func (s *Surface) take(n *int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *n > 0 {
		*n--
		return true
	}
	return false
}

// Swapchain is the fake swapchain created by Surface.
type Swapchain struct {
	surf   *Surface
	dev    gpu.Device
	images []gpu.Image
	next   uint32
}

func (sc *Swapchain) destroy() {
	for _, img := range sc.images {
		sc.dev.DestroyImage(img)
	}
	sc.images = nil
}

// Images implements surface.Swapchain.
func (sc *Swapchain) Images() []gpu.Image { return sc.images }

// Acquire implements surface.Swapchain.
func (sc *Swapchain) Acquire(ctx context.Context, signal gpu.Semaphore, timeout time.Duration) (uint32, gpu.Status, error) {
	if err := surface.WaitUntil(ctx, timeout, sc.surf.visible, time.Sleep); err != nil {
		return 0, gpu.StatusOptimal, err
	}
	if sc.surf.take(&sc.surf.StaleAcquires) {
		return 0, gpu.StatusOptimal, gpu.ErrOutOfDate
	}
	i := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	if err := sc.dev.Submit(gpu.SubmitInfo{Label: "fake acquire", Signal: []gpu.Semaphore{signal}}); err != nil {
		return 0, gpu.StatusOptimal, err
	}
	return i, gpu.StatusOptimal, nil
}

// Present implements surface.Swapchain.
func (sc *Swapchain) Present(_ context.Context, _ uint32, wait gpu.Semaphore) (gpu.Status, error) {
	if sc.surf.take(&sc.surf.StalePresents) {
		return gpu.StatusOptimal, gpu.ErrOutOfDate
	}
	if err := sc.dev.Submit(gpu.SubmitInfo{Label: "fake present", Wait: []gpu.Semaphore{wait}}); err != nil {
		return gpu.StatusOptimal, err
	}
	sc.surf.mu.Lock()
	sc.surf.Presents++
	sc.surf.mu.Unlock()
	if sc.surf.take(&sc.surf.SuboptimalPresents) {
		return gpu.StatusSuboptimal, nil
	}
	return gpu.StatusOptimal, nil
}
