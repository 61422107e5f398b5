// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pacer/gpu"
)

// Name is the registry name of the wgpu backend.
const Name = "wgpu"

const (
	// copyRowAlignment is the required BytesPerRow alignment for
	// texture-to-buffer copies.
	copyRowAlignment = 256

	// waitSlice bounds a single hal fence wait so that context
	// cancellation is noticed.
	waitSlice = 10 * time.Millisecond

	// destroyTimeout bounds the final drain in Destroy.
	destroyTimeout = 5 * time.Second
)

// Device implements gpu.Device on a hal device and queue.
type Device struct {
	mu       sync.Mutex
	device   hal.Device
	queue    hal.Queue
	timeline hal.Fence
	adapter  string

	submitted uint64 // last timeline value handed to the queue
	completed uint64 // last timeline value known to be reached
	inflight  []inflight

	lost    error
	closed  bool
	release func() // set when the Device owns the hal device
}

// inflight holds hal command buffers until the timeline passes value.
type inflight struct {
	value uint64
	cmds  []hal.CommandBuffer
}

// New wraps an existing hal device and queue. The caller keeps ownership
// of both; Destroy releases only what the Device created.
func New(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil device or queue")
	}
	timeline, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create timeline fence: %w", err)
	}
	d := &Device{device: device, queue: queue, timeline: timeline}
	slogger().Debug("wgpu: device created")
	return d, nil
}

// Open creates a Device on the first discrete or integrated Vulkan adapter,
// falling back to whatever adapter is found first.
func Open() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	d, err := New(openDev.Device, openDev.Queue)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.adapter = selected.Info.Name
	d.release = func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	slogger().Info("wgpu: device opened", "adapter", d.adapter)
	return d, nil
}

// Name returns "wgpu".
func (d *Device) Name() string { return Name }

// Adapter returns the adapter name when the Device was created by Open.
func (d *Device) Adapter() string { return d.adapter }

// Err returns the device-lost error, or nil while the device is healthy.
func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

// CreateFence creates a fence, optionally already signaled.
func (d *Device) CreateFence(label string, signaled bool) (gpu.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return nil, err
	}
	// Timeline value 0 is reached from the start.
	return &fence{object: object{dev: d, label: label}, armed: signaled}, nil
}

// DestroyFence releases f.
func (d *Device) DestroyFence(f gpu.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if wf, ok := f.(*fence); ok && wf.dev == d {
		wf.destroyed = true
	}
}

// WaitFence blocks until f is signaled.
func (d *Device) WaitFence(ctx context.Context, f gpu.Fence, timeout time.Duration) error {
	d.mu.Lock()
	wf, err := d.fence(f)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if d.lost != nil {
		d.mu.Unlock()
		return d.lost
	}
	if !wf.armed {
		d.mu.Unlock()
		return fmt.Errorf("wait %q: %w", wf.label, ErrWaitForever)
	}
	value := wf.value
	d.mu.Unlock()

	if err := d.waitValue(ctx, value, timeout); err != nil {
		return fmt.Errorf("wait %q: %w", wf.label, err)
	}
	return nil
}

// FenceSignaled reports whether f is signaled.
func (d *Device) FenceSignaled(f gpu.Fence) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.fence(f)
	if err != nil {
		return false, err
	}
	return wf.armed && d.reached(wf.value), d.lost
}

// ResetFence returns f to the unsignaled state.
func (d *Device) ResetFence(f gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	wf, err := d.fence(f)
	if err != nil {
		return err
	}
	if wf.armed && !d.reached(wf.value) {
		return fmt.Errorf("reset %q: %w", wf.label, gpu.ErrInUse)
	}
	wf.armed = false
	return nil
}

// CreateSemaphore creates an unsignaled semaphore.
func (d *Device) CreateSemaphore(label string) (gpu.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return nil, err
	}
	return &semaphore{object: object{dev: d, label: label}}, nil
}

// DestroySemaphore releases s.
func (d *Device) DestroySemaphore(s gpu.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ws, ok := s.(*semaphore); ok && ws.dev == d {
		ws.destroyed = true
	}
}

// CreateImage creates a texture usable as a render target and copy source.
func (d *Device) CreateImage(desc gpu.ImageDescriptor) (gpu.Image, error) {
	if desc.Extent.IsZero() {
		return nil, fmt.Errorf("create image %q: %w: %v", desc.Label, gpu.ErrInvalidExtent, desc.Extent)
	}
	bpp, err := gpu.BytesPerPixel(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return nil, err
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Extent.Width,
			Height:             desc.Extent.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage: desc.Usage | gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, err)
	}
	target, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: desc.Label + "_target"})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create image %q: view: %w", desc.Label, err)
	}
	return &image{
		object: object{dev: d, label: desc.Label},
		extent: desc.Extent,
		format: desc.Format,
		bpp:    uint32(bpp),
		tex:    tex,
		target: target,
	}, nil
}

// DestroyImage releases img. The caller guarantees no pending work uses it.
func (d *Device) DestroyImage(img gpu.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wi, ok := img.(*image)
	if !ok || wi.dev != d || wi.destroyed {
		return
	}
	wi.destroyed = true
	d.device.DestroyTextureView(wi.target)
	d.device.DestroyTexture(wi.tex)
}

// CreateView creates a view of img.
func (d *Device) CreateView(img gpu.Image, label string) (gpu.View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wi, err := d.image(img)
	if err != nil {
		return nil, err
	}
	raw, err := d.device.CreateTextureView(wi.tex, &hal.TextureViewDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("create view of %q: %w", wi.label, err)
	}
	return &view{img: wi, raw: raw}, nil
}

// DestroyView releases v.
func (d *Device) DestroyView(v gpu.View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wv, ok := v.(*view)
	if !ok || wv.img.dev != d || wv.destroyed {
		return
	}
	wv.destroyed = true
	d.device.DestroyTextureView(wv.raw)
}

// CreateBuffer creates a host-readable buffer of at least size bytes.
func (d *Device) CreateBuffer(label string, size uint64) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return nil, err
	}
	raw, err := d.createRawBuffer(label, size)
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	return &buffer{object: object{dev: d, label: label}, size: size, raw: raw, alloc: size}, nil
}

// DestroyBuffer releases buf.
func (d *Device) DestroyBuffer(buf gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wb, ok := buf.(*buffer)
	if !ok || wb.dev != d || wb.destroyed {
		return
	}
	wb.destroyed = true
	d.device.DestroyBuffer(wb.raw)
}

// ReadBuffer copies the tightly packed contents of buf into dst.
func (d *Device) ReadBuffer(buf gpu.Buffer, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	wb, err := d.buffer(buf)
	if err != nil {
		return err
	}
	if uint64(len(dst)) > wb.size {
		return fmt.Errorf("read %q: want %d bytes, buffer holds %d", wb.label, len(dst), wb.size)
	}
	if wb.pitch == wb.rowBytes {
		if err := d.queue.ReadBuffer(wb.raw, 0, dst); err != nil {
			return fmt.Errorf("read %q: %w", wb.label, err)
		}
		return nil
	}

	padded := make([]byte, uint64(wb.pitch)*uint64(wb.rows))
	if err := d.queue.ReadBuffer(wb.raw, 0, padded); err != nil {
		return fmt.Errorf("read %q: %w", wb.label, err)
	}
	unpad(dst, padded, wb.rowBytes, wb.pitch)
	return nil
}

// CreateCommandBuffer creates an empty command buffer.
func (d *Device) CreateCommandBuffer(label string) (gpu.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return nil, err
	}
	return &commandBuffer{object: object{dev: d, label: label}}, nil
}

// FreeCommandBuffer releases cb.
func (d *Device) FreeCommandBuffer(cb gpu.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if wc, ok := cb.(*commandBuffer); ok && wc.dev == d {
		wc.destroyed = true
		wc.cmds = nil
	}
}

// Submit validates info, encodes its command buffers and hands them to the
// queue.
func (d *Device) Submit(info gpu.SubmitInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}

	// Semaphore state after this submission, applied only if it is valid.
	next := make(map[*semaphore]bool)
	state := func(s *semaphore) bool {
		if v, ok := next[s]; ok {
			return v
		}
		return s.signaled
	}
	for _, s := range info.Wait {
		ws, err := d.semaphore(s)
		if err != nil {
			return fmt.Errorf("submit %q: wait: %w", info.Label, err)
		}
		if !state(ws) {
			return fmt.Errorf("submit %q: %w: waits on semaphore %q that no earlier submission signaled",
				info.Label, ErrSemaphore, ws.label)
		}
		next[ws] = false
	}
	var cmds []command
	var used []*commandBuffer
	for _, cb := range info.Commands {
		wc, ok := cb.(*commandBuffer)
		if !ok || wc.dev != d {
			return fmt.Errorf("submit %q: %w", info.Label, gpu.ErrForeignHandle)
		}
		if wc.destroyed {
			return fmt.Errorf("submit %q: command buffer %q: %w", info.Label, wc.label, gpu.ErrDestroyed)
		}
		if wc.err != nil {
			return fmt.Errorf("submit %q: command buffer %q: %w", info.Label, wc.label, wc.err)
		}
		used = append(used, wc)
		cmds = append(cmds, wc.cmds...)
	}
	for _, s := range info.Signal {
		ws, err := d.semaphore(s)
		if err != nil {
			return fmt.Errorf("submit %q: signal: %w", info.Label, err)
		}
		if state(ws) {
			return fmt.Errorf("submit %q: %w: signals semaphore %q which is already signaled",
				info.Label, ErrSemaphore, ws.label)
		}
		next[ws] = true
	}
	var wf *fence
	if info.Fence != nil {
		f, err := d.fence(info.Fence)
		if err != nil {
			return fmt.Errorf("submit %q: %w", info.Label, err)
		}
		if f.armed {
			return fmt.Errorf("submit %q: fence %q is already signaled or pending: %w", info.Label, f.label, gpu.ErrInUse)
		}
		wf = f
	}

	if err := d.encode(info.Label, cmds); err != nil {
		return fmt.Errorf("submit %q: %w", info.Label, err)
	}
	for s, v := range next {
		s.signaled = v
	}
	for _, wc := range used {
		wc.busy = d.submitted
	}
	for _, c := range cmds {
		if c.kind == opCopy {
			c.buf.busy = d.submitted
		}
	}
	if wf != nil {
		wf.value = d.submitted
		wf.armed = true
	}
	return nil
}

// WaitIdle blocks until every submission so far has completed.
func (d *Device) WaitIdle(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return gpu.ErrDestroyed
	}
	if d.lost != nil {
		d.mu.Unlock()
		return d.lost
	}
	value := d.submitted
	d.mu.Unlock()
	return d.waitValue(ctx, value, 0)
}

// Destroy waits for the queue to drain and releases the Device. A device
// from Open also releases its hal device and instance.
func (d *Device) Destroy() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	value := d.submitted
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
	if err := d.waitValue(ctx, value, 0); err != nil {
		slogger().Warn("wgpu: destroy before queue drained", "err", err)
	}
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, in := range d.inflight {
		for _, cb := range in.cmds {
			d.device.FreeCommandBuffer(cb)
		}
	}
	d.inflight = nil
	d.device.DestroyFence(d.timeline)
	if d.release != nil {
		d.release()
	}
	slogger().Debug("wgpu: device destroyed", "submissions", d.submitted)
}

// encode records cmds into hal command buffers and submits them. Each hal
// submit advances the timeline; WriteImage commands split the sequence
// because they go through the queue directly. The final submit, possibly
// empty, carries d.submitted for the caller's fence. Must hold d.mu.
func (d *Device) encode(label string, cmds []command) error {
	var enc hal.CommandEncoder
	var pending []hal.CommandBuffer
	end := func() error {
		if enc == nil {
			return nil
		}
		cb, err := enc.EndEncoding()
		enc = nil
		if err != nil {
			return fmt.Errorf("end encoding: %w", err)
		}
		pending = append(pending, cb)
		return nil
	}
	discard := func() {
		if enc != nil {
			enc.DiscardEncoding()
		}
		for _, cb := range pending {
			d.device.FreeCommandBuffer(cb)
		}
	}

	for _, c := range cmds {
		if c.img.destroyed {
			discard()
			return fmt.Errorf("image %q used after destroy", c.img.label)
		}
		if c.kind == opWrite {
			if err := end(); err != nil {
				discard()
				return err
			}
			if len(pending) > 0 {
				if err := d.submitRaw(pending); err != nil {
					return err
				}
				pending = nil
			}
			d.writeTexture(c.img, c.pixels)
			continue
		}
		if enc == nil {
			e, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
			if err != nil {
				discard()
				return fmt.Errorf("create encoder: %w", err)
			}
			if err := e.BeginEncoding(label); err != nil {
				discard()
				return fmt.Errorf("begin encoding: %w", err)
			}
			enc = e
		}
		switch c.kind {
		case opClear:
			rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
				Label: label + "_clear",
				ColorAttachments: []hal.RenderPassColorAttachment{{
					View:       c.img.target,
					LoadOp:     gputypes.LoadOpClear,
					StoreOp:    gputypes.StoreOpStore,
					ClearValue: c.color,
				}},
			})
			rp.End()
		case opCopy:
			if c.buf.destroyed {
				discard()
				return fmt.Errorf("buffer %q used after destroy", c.buf.label)
			}
			recordCopy(enc, c.img, c.buf)
		}
	}
	if err := end(); err != nil {
		discard()
		return err
	}
	return d.submitRaw(pending)
}

// recordCopy copies img into buf using buf's padded row layout.
func recordCopy(enc hal.CommandEncoder, img *image, buf *buffer) {
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	enc.CopyTextureToBuffer(img.tex, buf.raw, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: buf.pitch, RowsPerImage: buf.rows},
		TextureBase:  hal.ImageCopyTexture{Texture: img.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: img.extent.Width, Height: img.extent.Height, DepthOrArrayLayers: 1},
	}})
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
}

func (d *Device) writeTexture(img *image, pixels []byte) {
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  img.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		pixels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: img.rowBytes(), RowsPerImage: img.extent.Height},
		&hal.Extent3D{Width: img.extent.Width, Height: img.extent.Height, DepthOrArrayLayers: 1},
	)
}

// submitRaw hands cbs to the queue with the next timeline value. Must hold
// d.mu.
func (d *Device) submitRaw(cbs []hal.CommandBuffer) error {
	value := d.submitted + 1
	if err := d.queue.Submit(cbs, d.timeline, value); err != nil {
		for _, cb := range cbs {
			d.device.FreeCommandBuffer(cb)
		}
		d.lose(fmt.Errorf("queue submit: %w", err))
		return d.lost
	}
	d.submitted = value
	if len(cbs) > 0 {
		d.inflight = append(d.inflight, inflight{value: value, cmds: cbs})
	}
	return nil
}

// waitValue blocks until the timeline reaches value. It waits in slices so
// that ctx is honored.
func (d *Device) waitValue(ctx context.Context, value uint64, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		d.mu.Lock()
		if d.reached(value) {
			d.mu.Unlock()
			return nil
		}
		if d.lost != nil {
			d.mu.Unlock()
			return d.lost
		}
		d.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return err
		}
		slice := waitSlice
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return fmt.Errorf("after %v: %w", timeout, gpu.ErrTimeout)
			}
			slice = min(slice, left)
		}
		ok, err := d.device.Wait(d.timeline, value, slice)
		if err != nil {
			d.mu.Lock()
			d.lose(fmt.Errorf("fence wait: %w", err))
			lost := d.lost
			d.mu.Unlock()
			return lost
		}
		if ok {
			d.mu.Lock()
			d.advance(value)
			d.mu.Unlock()
			return nil
		}
	}
}

// reached reports whether the timeline has passed value, polling the hal
// fence without blocking. Must hold d.mu.
func (d *Device) reached(value uint64) bool {
	if value <= d.completed {
		return true
	}
	if d.lost != nil || d.closed {
		return false
	}
	ok, err := d.device.Wait(d.timeline, value, 0)
	if err != nil {
		d.lose(fmt.Errorf("fence poll: %w", err))
		return false
	}
	if ok {
		d.advance(value)
	}
	return ok
}

// advance records that the timeline reached value and frees the command
// buffers it retired. Must hold d.mu.
func (d *Device) advance(value uint64) {
	if value <= d.completed {
		return
	}
	d.completed = value
	n := 0
	for _, in := range d.inflight {
		if in.value > value {
			break
		}
		for _, cb := range in.cmds {
			d.device.FreeCommandBuffer(cb)
		}
		n++
	}
	d.inflight = d.inflight[n:]
}

// layout makes buf ready to receive a padded copy of img, growing its hal
// allocation when the padded rows do not fit. Must hold d.mu.
func (d *Device) layout(buf *buffer, img *image) error {
	rowBytes := img.rowBytes()
	pitch := alignedPitch(rowBytes)
	need := uint64(pitch) * uint64(img.extent.Height)
	if need > buf.alloc {
		if !d.reached(buf.busy) {
			return gpu.ErrInUse
		}
		raw, err := d.createRawBuffer(buf.label, need)
		if err != nil {
			return err
		}
		d.device.DestroyBuffer(buf.raw)
		buf.raw = raw
		buf.alloc = need
	}
	buf.rowBytes = rowBytes
	buf.pitch = pitch
	buf.rows = img.extent.Height
	return nil
}

func (d *Device) createRawBuffer(label string, size uint64) (hal.Buffer, error) {
	return d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
}

// unpad copies rows of rowBytes from src, whose rows are pitch bytes apart,
// into dst.
func unpad(dst, src []byte, rowBytes, pitch uint32) {
	for row := 0; len(dst) > 0; row++ {
		off := row * int(pitch)
		if off >= len(src) {
			return
		}
		n := copy(dst, src[off:min(off+int(rowBytes), len(src))])
		dst = dst[n:]
	}
}

// lose marks the device lost. Must hold d.mu.
func (d *Device) lose(err error) {
	if d.lost != nil {
		return
	}
	d.lost = fmt.Errorf("%w: %w", gpu.ErrDeviceLost, err)
	slogger().Error("wgpu: device lost", "err", err)
}

// usable reports whether new work may be created. Must hold d.mu.
func (d *Device) usable() error {
	if d.closed {
		return gpu.ErrDestroyed
	}
	return d.lost
}

// The lookup helpers below must be called with d.mu held.

func (d *Device) fence(f gpu.Fence) (*fence, error) {
	wf, ok := f.(*fence)
	if !ok || wf.dev != d {
		return nil, gpu.ErrForeignHandle
	}
	if wf.destroyed {
		return nil, fmt.Errorf("fence %q: %w", wf.label, gpu.ErrDestroyed)
	}
	return wf, nil
}

func (d *Device) semaphore(s gpu.Semaphore) (*semaphore, error) {
	ws, ok := s.(*semaphore)
	if !ok || ws.dev != d {
		return nil, gpu.ErrForeignHandle
	}
	if ws.destroyed {
		return nil, fmt.Errorf("semaphore %q: %w", ws.label, gpu.ErrDestroyed)
	}
	return ws, nil
}

func (d *Device) image(img gpu.Image) (*image, error) {
	wi, ok := img.(*image)
	if !ok || wi.dev != d {
		return nil, gpu.ErrForeignHandle
	}
	if wi.destroyed {
		return nil, fmt.Errorf("image %q: %w", wi.label, gpu.ErrDestroyed)
	}
	return wi, nil
}

func (d *Device) buffer(buf gpu.Buffer) (*buffer, error) {
	wb, ok := buf.(*buffer)
	if !ok || wb.dev != d {
		return nil, gpu.ErrForeignHandle
	}
	if wb.destroyed {
		return nil, fmt.Errorf("buffer %q: %w", wb.label, gpu.ErrDestroyed)
	}
	return wb, nil
}

var _ gpu.Device = (*Device)(nil)
