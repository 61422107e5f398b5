// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/gpu"
)

// All mutable object state is guarded by the owning Device's mu.

type object struct {
	dev       *Device
	label     string
	destroyed bool
}

func (o *object) Label() string { return o.label }

type fence struct {
	object
	signaled bool
	ch       chan struct{} // closed once signaled
	pending  int           // queued submissions that will signal this fence
}

func (f *fence) signal() {
	if f.signaled {
		return
	}
	f.signaled = true
	close(f.ch)
}

type semaphore struct {
	object
	signaled bool
}

type image struct {
	object
	extent gpu.Extent
	format gputypes.TextureFormat
	pix    []byte
}

func (i *image) Extent() gpu.Extent             { return i.extent }
func (i *image) Format() gputypes.TextureFormat { return i.format }

type view struct {
	img       *image
	destroyed bool
}

func (v *view) Image() gpu.Image { return v.img }

type buffer struct {
	object
	data []byte
}

func (b *buffer) Size() uint64 { return uint64(len(b.data)) }

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
	texel  [4]byte
	pixels []byte
}

// commandBuffer implements gpu.CommandBuffer. Recording errors are kept
// and reported by the next Submit that uses the buffer.
type commandBuffer struct {
	object
	cmds    []command
	err     error
	pending int
}

func (c *commandBuffer) Reset() error {
	d := c.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.destroyed {
		return fmt.Errorf("reset %q: %w", c.label, gpu.ErrDestroyed)
	}
	if c.pending > 0 {
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
	si, err := d.image(img)
	if err != nil {
		c.fail(fmt.Errorf("clear: %w", err))
		return
	}
	texel, err := gpu.PackColor(si.format, col)
	if err != nil {
		c.fail(fmt.Errorf("clear %q: %w", si.label, err))
		return
	}
	c.cmds = append(c.cmds, command{kind: opClear, img: si, texel: texel})
}

func (c *commandBuffer) WriteImage(img gpu.Image, pixels []byte) {
	d := c.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if !c.recordable() {
		return
	}
	si, err := d.image(img)
	if err != nil {
		c.fail(fmt.Errorf("write: %w", err))
		return
	}
	if len(pixels) != len(si.pix) {
		c.fail(fmt.Errorf("write %q: got %d bytes, image holds %d", si.label, len(pixels), len(si.pix)))
		return
	}
	c.cmds = append(c.cmds, command{kind: opWrite, img: si, pixels: append([]byte(nil), pixels...)})
}

func (c *commandBuffer) CopyImageToBuffer(img gpu.Image, buf gpu.Buffer) {
	d := c.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if !c.recordable() {
		return
	}
	si, err := d.image(img)
	if err != nil {
		c.fail(fmt.Errorf("copy: %w", err))
		return
	}
	sb, err := d.buffer(buf)
	if err != nil {
		c.fail(fmt.Errorf("copy: %w", err))
		return
	}
	if len(sb.data) < len(si.pix) {
		c.fail(fmt.Errorf("copy %q -> %q: buffer holds %d bytes, image needs %d",
			si.label, sb.label, len(sb.data), len(si.pix)))
		return
	}
	c.cmds = append(c.cmds, command{kind: opCopy, img: si, buf: sb})
}

// recordable reports whether commands may be appended. Must hold d.mu.
func (c *commandBuffer) recordable() bool {
	switch {
	case c.destroyed:
		c.fail(fmt.Errorf("record %q: %w", c.label, gpu.ErrDestroyed))
	case c.pending > 0:
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
