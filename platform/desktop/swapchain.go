// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package desktop

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/gpu"
	"github.com/gogpu/pacer/surface"
)

// swapchain is a ring of device images shown through the window's GL
// texture.
type swapchain struct {
	win    *Window
	dev    gpu.Device
	extent gpu.Extent
	images []gpu.Image
	copies []gpu.CommandBuffer
	shown  gpu.Fence
	stage  gpu.Buffer
	pixels []byte
	next   uint32
}

// CreateSwapchain implements surface.Surface.
func (w *Window) CreateSwapchain(dev gpu.Device, desc surface.SwapchainDescriptor) (surface.Swapchain, error) {
	size, err := gpu.ImageSize(desc.Extent, desc.Format)
	if err != nil {
		return nil, fmt.Errorf("desktop: swapchain: %w", err)
	}
	sc := &swapchain{win: w, dev: dev, extent: desc.Extent, pixels: make([]byte, size)}
	if err := sc.build(desc, size); err != nil {
		sc.destroy()
		return nil, fmt.Errorf("desktop: swapchain: %w", err)
	}

	gl.BindTexture(gl.TEXTURE_2D, w.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(desc.Extent.Width), int32(desc.Extent.Height),
		0, gl.BGRA, gl.UNSIGNED_BYTE, nil)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, w.fbo)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, w.tex, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	slogger().Debug("desktop: swapchain created", "images", len(sc.images), "extent", desc.Extent.String())
	return sc, nil
}

func (sc *swapchain) build(desc surface.SwapchainDescriptor, size uint64) error {
	var err error
	if sc.stage, err = sc.dev.CreateBuffer("desktop-stage", size); err != nil {
		return err
	}
	if sc.shown, err = sc.dev.CreateFence("desktop-shown", true); err != nil {
		return err
	}
	for i := uint32(0); i < desc.ImageCount; i++ {
		img, err := sc.dev.CreateImage(gpu.ImageDescriptor{
			Label:  fmt.Sprintf("desktop-swapchain[%d]", i),
			Extent: desc.Extent,
			Format: desc.Format,
			Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			return err
		}
		sc.images = append(sc.images, img)
		cb, err := sc.dev.CreateCommandBuffer(fmt.Sprintf("desktop-copy[%d]", i))
		if err != nil {
			return err
		}
		cb.CopyImageToBuffer(img, sc.stage)
		sc.copies = append(sc.copies, cb)
	}
	return nil
}

// DestroySwapchain implements surface.Surface.
func (w *Window) DestroySwapchain(s surface.Swapchain) {
	if sc, ok := s.(*swapchain); ok && sc.win == w {
		sc.destroy()
	}
}

func (sc *swapchain) destroy() {
	for _, cb := range sc.copies {
		sc.dev.FreeCommandBuffer(cb)
	}
	for _, img := range sc.images {
		sc.dev.DestroyImage(img)
	}
	if sc.shown != nil {
		sc.dev.DestroyFence(sc.shown)
	}
	if sc.stage != nil {
		sc.dev.DestroyBuffer(sc.stage)
	}
	sc.copies, sc.images, sc.shown, sc.stage = nil, nil, nil, nil
}

// Images implements surface.Swapchain.
func (sc *swapchain) Images() []gpu.Image { return sc.images }

// Acquire implements surface.Swapchain. Presentation completes before it
// returns, so every image is free by the time it is handed out again. While
// the window is minimized it waits for it to be restored, up to timeout.
func (sc *swapchain) Acquire(ctx context.Context, signal gpu.Semaphore, timeout time.Duration) (uint32, gpu.Status, error) {
	if err := sc.win.waitVisible(ctx, timeout); err != nil {
		return 0, gpu.StatusOptimal, err
	}
	if sc.win.framebufferExtent() != sc.extent {
		return 0, gpu.StatusOptimal, gpu.ErrOutOfDate
	}
	i := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	if err := sc.dev.Submit(gpu.SubmitInfo{Label: "desktop acquire", Signal: []gpu.Semaphore{signal}}); err != nil {
		return 0, gpu.StatusOptimal, err
	}
	return i, gpu.StatusOptimal, nil
}

// Present implements surface.Swapchain. It reads the image back, uploads
// it and swaps buffers. A window resized since the swapchain was created
// still shows the frame and reports StatusSuboptimal.
func (sc *swapchain) Present(ctx context.Context, index uint32, wait gpu.Semaphore) (gpu.Status, error) {
	if int(index) >= len(sc.images) {
		return gpu.StatusOptimal, fmt.Errorf("desktop: present index %d of %d", index, len(sc.images))
	}
	if err := sc.dev.ResetFence(sc.shown); err != nil {
		return gpu.StatusOptimal, err
	}
	if err := sc.dev.Submit(gpu.SubmitInfo{
		Label:    "desktop present",
		Wait:     []gpu.Semaphore{wait},
		Commands: []gpu.CommandBuffer{sc.copies[index]},
		Fence:    sc.shown,
	}); err != nil {
		return gpu.StatusOptimal, err
	}
	if err := sc.dev.WaitFence(ctx, sc.shown, 0); err != nil {
		return gpu.StatusOptimal, err
	}
	if err := sc.dev.ReadBuffer(sc.stage, sc.pixels); err != nil {
		return gpu.StatusOptimal, err
	}

	w, h := int32(sc.extent.Width), int32(sc.extent.Height)
	gl.BindTexture(gl.TEXTURE_2D, sc.win.tex)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, w, h, gl.BGRA, gl.UNSIGNED_BYTE, gl.Ptr(sc.pixels))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, sc.win.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	// Device images are top row first; GL framebuffers are bottom row first.
	gl.BlitFramebuffer(0, 0, w, h, 0, h, w, 0, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	sc.win.w.SwapBuffers()

	if sc.win.framebufferExtent() != sc.extent {
		return gpu.StatusSuboptimal, nil
	}
	return gpu.StatusOptimal, nil
}
