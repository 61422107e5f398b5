// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// hud draws the demo frame on the host: a slowly cycling background and a
// few lines of status text.
type hud struct {
	canvas *image.RGBA
	pixels []byte
}

func newHUD(w, h int) *hud {
	return &hud{
		canvas: image.NewRGBA(image.Rect(0, 0, w, h)),
		pixels: make([]byte, w*h*4),
	}
}

// background returns the fill color at time t seconds.
func background(t float64) color.RGBA {
	wave := func(phase float64) uint8 {
		return uint8(64 + 63*math.Sin(t*0.7+phase))
	}
	return color.RGBA{R: wave(0), G: wave(2.1), B: wave(4.2), A: 255}
}

func (h *hud) draw(t float64, lines []string) {
	draw.Draw(h.canvas, h.canvas.Bounds(), &image.Uniform{C: background(t)}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  h.canvas,
		Src:  image.White,
		Face: basicfont.Face7x13,
	}
	lineHeight := basicfont.Face7x13.Metrics().Height
	y := fixed.I(8) + basicfont.Face7x13.Metrics().Ascent
	for _, line := range lines {
		d.Dot = fixed.Point26_6{X: fixed.I(8), Y: y}
		d.DrawString(line)
		y += lineHeight
	}
}

// encode converts the canvas to the device format into h.pixels.
func (h *hud) encode(format gputypes.TextureFormat) ([]byte, error) {
	src := h.canvas.Pix
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		copy(h.pixels, src)
	case gputypes.TextureFormatBGRA8Unorm:
		for i := 0; i+4 <= len(src); i += 4 {
			h.pixels[i+0] = src[i+2]
			h.pixels[i+1] = src[i+1]
			h.pixels[i+2] = src[i+0]
			h.pixels[i+3] = src[i+3]
		}
	default:
		return nil, fmt.Errorf("hud: unsupported format %v", format)
	}
	return h.pixels, nil
}
