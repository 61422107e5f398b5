// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pacer/gpu"
)

// All mutable object state is guarded by the owning Device's mu.

type object struct {
	dev       *Device
	label     string
	destroyed bool
}

func (o *object) Label() string { return o.label }

// fence is a binary fence over the device timeline. It is signaled once the
// timeline reaches value, provided it is armed.
type fence struct {
	object
	value uint64
	armed bool
}

type semaphore struct {
	object
	signaled bool
}

type image struct {
	object
	extent gpu.Extent
	format gputypes.TextureFormat
	bpp    uint32
	tex    hal.Texture
	target hal.TextureView // render pass target for clears
}

func (i *image) Extent() gpu.Extent             { return i.extent }
func (i *image) Format() gputypes.TextureFormat { return i.format }

func (i *image) rowBytes() uint32 { return i.extent.Width * i.bpp }

type view struct {
	img       *image
	raw       hal.TextureView
	destroyed bool
}

func (v *view) Image() gpu.Image { return v.img }

// buffer is a mappable hal buffer. Copies write rows at pitch bytes apart;
// rowBytes of each are meaningful.
type buffer struct {
	object
	size  uint64
	raw   hal.Buffer
	alloc uint64

	rowBytes uint32
	pitch    uint32
	rows     uint32

	busy uint64 // timeline value of the last submission writing the buffer
}

func (b *buffer) Size() uint64 { return b.size }

type opKind int

const (
	opClear opKind = iota
	opWrite
	opCopy
)

type command struct {
	kind   opKind
	img    *image
	buf    *buffer
	color  gputypes.Color
	pixels []byte
}

// commandBuffer implements gpu.CommandBuffer. Recording errors are kept
// and reported by the next Submit that uses the buffer.
type commandBuffer struct {
	object
	cmds []command
	err  error
	busy uint64
}

func (c *commandBuffer) Reset() error {
	d := c.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.destroyed {
		return fmt.Errorf("reset %q: %w", c.label, gpu.ErrDestroyed)
	}
	if !d.reached(c.busy) {
		return fmt.Errorf("reset %q: %w", c.label, gpu.ErrInUse)
	}
	c.cmds = c.cmds[:0]
	c.err = nil
	return nil
}

func (c *commandBuffer) ClearImage(img gpu.Image, col gputypes.Color) {
	d := c.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if !c.recordable() {
		return
	}
	wi, err := d.image(img)
	if err != nil {
		c.fail(fmt.Errorf("clear: %w", err))
		return
	}
	c.cmds = append(c.cmds, command{kind: opClear, img: wi, color: col})
}

func (c *commandBuffer) WriteImage(img gpu.Image, pixels []byte) {
	d := c.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if !c.recordable() {
		return
	}
	wi, err := d.image(img)
	if err != nil {
		c.fail(fmt.Errorf("write: %w", err))
		return
	}
	want := int(wi.rowBytes()) * int(wi.extent.Height)
	if len(pixels) != want {
		c.fail(fmt.Errorf("write %q: got %d bytes, image holds %d", wi.label, len(pixels), want))
		return
	}
	c.cmds = append(c.cmds, command{kind: opWrite, img: wi, pixels: append([]byte(nil), pixels...)})
}

func (c *commandBuffer) CopyImageToBuffer(img gpu.Image, buf gpu.Buffer) {
	d := c.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if !c.recordable() {
		return
	}
	wi, err := d.image(img)
	if err != nil {
		c.fail(fmt.Errorf("copy: %w", err))
		return
	}
	wb, err := d.buffer(buf)
	if err != nil {
		c.fail(fmt.Errorf("copy: %w", err))
		return
	}
	tight := uint64(wi.rowBytes()) * uint64(wi.extent.Height)
	if wb.size < tight {
		c.fail(fmt.Errorf("copy %q -> %q: buffer holds %d bytes, image needs %d",
			wi.label, wb.label, wb.size, tight))
		return
	}
	if err := d.layout(wb, wi); err != nil {
		c.fail(fmt.Errorf("copy %q -> %q: %w", wi.label, wb.label, err))
		return
	}
	c.cmds = append(c.cmds, command{kind: opCopy, img: wi, buf: wb})
}

// recordable reports whether commands may be appended. Must hold d.mu.
func (c *commandBuffer) recordable() bool {
	switch {
	case c.destroyed:
		c.fail(fmt.Errorf("record %q: %w", c.label, gpu.ErrDestroyed))
	case !c.dev.reached(c.busy):
		c.fail(fmt.Errorf("record %q: %w", c.label, gpu.ErrInUse))
	case c.err != nil:
	default:
		return true
	}
	return false
}

func (c *commandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// alignedPitch rounds a row size up to the copy row alignment.
func alignedPitch(rowBytes uint32) uint32 {
	return (rowBytes + copyRowAlignment - 1) &^ (copyRowAlignment - 1)
}
