// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package soft provides a software gpu.Device.
//
// The device keeps images and buffers in host memory and executes
// submissions on its own goroutine, in submission order, so the host and
// the "GPU" genuinely overlap. Fences and semaphores follow Vulkan binary
// semantics and are validated: waiting on a semaphore nobody signaled,
// signaling one twice, or resetting a fence that pending work will signal
// loses the device with a descriptive error instead of hanging.
//
// Output is fully deterministic, which makes the device the reference
// backend for scripted headless runs.
package soft

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/pacer/gpu"
)

// Name is the registry name of the software backend.
const Name = "soft"

// Option configures a Device.
type Option func(*Device)

// WithLatency delays the execution of every submission by d, simulating a
// slow GPU. Useful for exercising backpressure.
func WithLatency(d time.Duration) Option {
	return func(dev *Device) {
		dev.latency = d
	}
}

// Device is a software implementation of gpu.Device.
type Device struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*submission
	pending int
	idle    chan struct{} // closed while pending == 0
	lost    error
	lostCh  chan struct{}
	closed  bool
	done    chan struct{}
	latency time.Duration

	executed uint64
}

type submission struct {
	label   string
	wait    []*semaphore
	signal  []*semaphore
	buffers []*commandBuffer
	cmds    []command
	fence   *fence
}

// New creates a software device and starts its queue goroutine.
func New(opts ...Option) *Device {
	d := &Device{
		idle:   make(chan struct{}),
		lostCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	close(d.idle)
	d.cond = sync.NewCond(&d.mu)
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	slogger().Debug("soft: device created", "latency", d.latency)
	return d
}

// Name returns "soft".
func (d *Device) Name() string { return Name }

// Executed returns the number of submissions the queue has completed.
func (d *Device) Executed() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.executed
}

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
	f := &fence{object: object{dev: d, label: label}, ch: make(chan struct{})}
	if signaled {
		f.signal()
	}
	return f, nil
}

// DestroyFence releases f.
func (d *Device) DestroyFence(f gpu.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sf, ok := f.(*fence); ok && sf.dev == d {
		sf.destroyed = true
	}
}

// WaitFence blocks until f is signaled.
func (d *Device) WaitFence(ctx context.Context, f gpu.Fence, timeout time.Duration) error {
	d.mu.Lock()
	sf, err := d.fence(f)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if d.lost != nil {
		d.mu.Unlock()
		return d.lost
	}
	if sf.signaled {
		d.mu.Unlock()
		return nil
	}
	if sf.pending == 0 {
		d.mu.Unlock()
		return fmt.Errorf("wait %q: %w", sf.label, ErrWaitForever)
	}
	ch := sf.ch
	d.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-ch:
		return nil
	case <-d.lostCh:
		return d.Err()
	case <-expired:
		return fmt.Errorf("wait %q after %v: %w", sf.label, timeout, gpu.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FenceSignaled reports whether f is signaled.
func (d *Device) FenceSignaled(f gpu.Fence) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sf, err := d.fence(f)
	if err != nil {
		return false, err
	}
	return sf.signaled, nil
}

// ResetFence returns f to the unsignaled state.
func (d *Device) ResetFence(f gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sf, err := d.fence(f)
	if err != nil {
		return err
	}
	if sf.pending > 0 {
		return fmt.Errorf("reset %q: %w", sf.label, gpu.ErrInUse)
	}
	if sf.signaled {
		sf.signaled = false
		sf.ch = make(chan struct{})
	}
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
	if ss, ok := s.(*semaphore); ok && ss.dev == d {
		ss.destroyed = true
	}
}

// CreateImage allocates a zero-filled image.
func (d *Device) CreateImage(desc gpu.ImageDescriptor) (gpu.Image, error) {
	if desc.Extent.IsZero() {
		return nil, fmt.Errorf("create image %q: %w: %v", desc.Label, gpu.ErrInvalidExtent, desc.Extent)
	}
	size, err := gpu.ImageSize(desc.Extent, desc.Format)
	if err != nil {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return nil, err
	}
	return &image{
		object: object{dev: d, label: desc.Label},
		extent: desc.Extent,
		format: desc.Format,
		pix:    make([]byte, size),
	}, nil
}

// DestroyImage releases img.
func (d *Device) DestroyImage(img gpu.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if si, ok := img.(*image); ok && si.dev == d {
		si.destroyed = true
	}
}

// CreateView creates a view of img.
func (d *Device) CreateView(img gpu.Image, _ string) (gpu.View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	si, err := d.image(img)
	if err != nil {
		return nil, err
	}
	return &view{img: si}, nil
}

// DestroyView releases v.
func (d *Device) DestroyView(v gpu.View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sv, ok := v.(*view); ok && sv.img.dev == d {
		sv.destroyed = true
	}
}

// CreateBuffer allocates a zero-filled host-visible buffer.
func (d *Device) CreateBuffer(label string, size uint64) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return nil, err
	}
	return &buffer{object: object{dev: d, label: label}, data: make([]byte, size)}, nil
}

// DestroyBuffer releases buf.
func (d *Device) DestroyBuffer(buf gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sb, ok := buf.(*buffer); ok && sb.dev == d {
		sb.destroyed = true
	}
}

// ReadBuffer copies the contents of buf into dst.
func (d *Device) ReadBuffer(buf gpu.Buffer, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sb, err := d.buffer(buf)
	if err != nil {
		return err
	}
	if len(dst) > len(sb.data) {
		return fmt.Errorf("read %q: want %d bytes, buffer holds %d", sb.label, len(dst), len(sb.data))
	}
	copy(dst, sb.data)
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
	if sc, ok := cb.(*commandBuffer); ok && sc.dev == d {
		sc.destroyed = true
		sc.cmds = nil
	}
}

// Submit validates info and queues it for execution.
func (d *Device) Submit(info gpu.SubmitInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}

	sub := &submission{label: info.Label}
	for _, s := range info.Wait {
		ss, err := d.semaphore(s)
		if err != nil {
			return fmt.Errorf("submit %q: wait: %w", info.Label, err)
		}
		sub.wait = append(sub.wait, ss)
	}
	for _, s := range info.Signal {
		ss, err := d.semaphore(s)
		if err != nil {
			return fmt.Errorf("submit %q: signal: %w", info.Label, err)
		}
		sub.signal = append(sub.signal, ss)
	}
	for _, cb := range info.Commands {
		sc, ok := cb.(*commandBuffer)
		if !ok || sc.dev != d {
			return fmt.Errorf("submit %q: %w", info.Label, gpu.ErrForeignHandle)
		}
		if sc.destroyed {
			return fmt.Errorf("submit %q: command buffer %q: %w", info.Label, sc.label, gpu.ErrDestroyed)
		}
		if sc.err != nil {
			return fmt.Errorf("submit %q: command buffer %q: %w", info.Label, sc.label, sc.err)
		}
		sub.buffers = append(sub.buffers, sc)
		sub.cmds = append(sub.cmds, sc.cmds...)
	}
	if info.Fence != nil {
		sf, err := d.fence(info.Fence)
		if err != nil {
			return fmt.Errorf("submit %q: %w", info.Label, err)
		}
		if sf.signaled {
			return fmt.Errorf("submit %q: fence %q is already signaled: %w", info.Label, sf.label, gpu.ErrInUse)
		}
		sub.fence = sf
		sf.pending++
	}
	for _, sc := range sub.buffers {
		sc.pending++
	}

	if d.pending == 0 {
		d.idle = make(chan struct{})
	}
	d.pending++
	d.queue = append(d.queue, sub)
	d.cond.Broadcast()
	return nil
}

// WaitIdle blocks until every queued submission has executed.
func (d *Device) WaitIdle(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return gpu.ErrDestroyed
	}
	idle := d.idle
	d.mu.Unlock()

	select {
	case <-idle:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Destroy drains the queue and stops the queue goroutine.
func (d *Device) Destroy() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
	<-d.done
	slogger().Debug("soft: device destroyed", "submissions", d.Executed())
}

func (d *Device) run() {
	defer close(d.done)
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			return
		}
		sub := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]

		if d.latency > 0 {
			d.mu.Unlock()
			time.Sleep(d.latency)
			d.mu.Lock()
		}
		d.execute(sub)
		d.executed++
		d.pending--
		if d.pending == 0 {
			close(d.idle)
		}
	}
}

// execute runs one submission. Must hold d.mu.
func (d *Device) execute(sub *submission) {
	defer func() {
		for _, sc := range sub.buffers {
			sc.pending--
		}
		if sub.fence != nil {
			sub.fence.pending--
			if d.lost == nil {
				sub.fence.signal()
			}
		}
	}()
	if d.lost != nil {
		return
	}

	for _, s := range sub.wait {
		if !s.signaled {
			d.lose(fmt.Errorf("submission %q waits on semaphore %q that no earlier submission signaled", sub.label, s.label))
			return
		}
		s.signaled = false
	}
	for _, c := range sub.cmds {
		if err := d.run1(c); err != nil {
			d.lose(fmt.Errorf("submission %q: %w", sub.label, err))
			return
		}
	}
	for _, s := range sub.signal {
		if s.signaled {
			d.lose(fmt.Errorf("submission %q signals semaphore %q which is already signaled", sub.label, s.label))
			return
		}
		s.signaled = true
	}
}

func (d *Device) run1(c command) error {
	if c.img.destroyed {
		return fmt.Errorf("image %q used after destroy", c.img.label)
	}
	switch c.kind {
	case opClear:
		pix := c.img.pix
		for i := 0; i+4 <= len(pix); i += 4 {
			copy(pix[i:i+4], c.texel[:])
		}
	case opWrite:
		copy(c.img.pix, c.pixels)
	case opCopy:
		if c.buf.destroyed {
			return fmt.Errorf("buffer %q used after destroy", c.buf.label)
		}
		copy(c.buf.data, c.img.pix)
	}
	return nil
}

// lose marks the device lost. Must hold d.mu.
func (d *Device) lose(err error) {
	if d.lost != nil {
		return
	}
	d.lost = fmt.Errorf("%w: %w", gpu.ErrDeviceLost, err)
	close(d.lostCh)
	slogger().Error("soft: device lost", "err", err)
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
	sf, ok := f.(*fence)
	if !ok || sf.dev != d {
		return nil, gpu.ErrForeignHandle
	}
	if sf.destroyed {
		return nil, fmt.Errorf("fence %q: %w", sf.label, gpu.ErrDestroyed)
	}
	return sf, nil
}

func (d *Device) semaphore(s gpu.Semaphore) (*semaphore, error) {
	ss, ok := s.(*semaphore)
	if !ok || ss.dev != d {
		return nil, gpu.ErrForeignHandle
	}
	if ss.destroyed {
		return nil, fmt.Errorf("semaphore %q: %w", ss.label, gpu.ErrDestroyed)
	}
	return ss, nil
}

func (d *Device) image(img gpu.Image) (*image, error) {
	si, ok := img.(*image)
	if !ok || si.dev != d {
		return nil, gpu.ErrForeignHandle
	}
	if si.destroyed {
		return nil, fmt.Errorf("image %q: %w", si.label, gpu.ErrDestroyed)
	}
	return si, nil
}

func (d *Device) buffer(buf gpu.Buffer) (*buffer, error) {
	sb, ok := buf.(*buffer)
	if !ok || sb.dev != d {
		return nil, gpu.ErrForeignHandle
	}
	if sb.destroyed {
		return nil, fmt.Errorf("buffer %q: %w", sb.label, gpu.ErrDestroyed)
	}
	return sb, nil
}

var _ gpu.Device = (*Device)(nil)
