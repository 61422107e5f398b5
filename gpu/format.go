// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
)

// BytesPerPixel returns the texel size of the 8-bit color formats the frame
// loop handles.
func BytesPerPixel(format gputypes.TextureFormat) (int, error) {
	switch format {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
}

// ImageSize returns the tightly packed byte size of an image.
func ImageSize(extent Extent, format gputypes.TextureFormat) (uint64, error) {
	bpp, err := BytesPerPixel(format)
	if err != nil {
		return 0, err
	}
	return uint64(extent.Width) * uint64(extent.Height) * uint64(bpp), nil
}

// PackColor converts c to the byte layout of format.
// Channels are clamped to [0, 1] and rounded to the nearest 8-bit value.
func PackColor(format gputypes.TextureFormat, c gputypes.Color) ([4]byte, error) {
	r, g, b, a := unorm8(float64(c.R)), unorm8(float64(c.G)), unorm8(float64(c.B)), unorm8(float64(c.A))
	switch format {
	case gputypes.TextureFormatBGRA8Unorm:
		return [4]byte{b, g, r, a}, nil
	case gputypes.TextureFormatRGBA8Unorm:
		return [4]byte{r, g, b, a}, nil
	default:
		return [4]byte{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
}

func unorm8(v float64) byte {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(math.Round(v * 255))
}
