// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package capture writes rendered frames to binary PPM (P6) files.
//
// Frames arrive as raw 4-channel device pixels. Only BGRA8 is supported as
// a source layout; it is reordered to RGB on the way out. The file layout is
//
//	"P6\n" "<width> <height>\n" "255\n" <width*height*3 bytes, top row first>
package capture

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/gpu"
)

// Errors returned by this package.
var (
	// ErrUnsupportedFormat is returned for source layouts other than BGRA8.
	ErrUnsupportedFormat = errors.New("capture: unsupported source pixel format")

	// ErrShortPixels is returned when the pixel slice is smaller than the extent.
	ErrShortPixels = errors.New("capture: pixel data shorter than extent")

	// ErrMalformed is returned by Decode for input that is not a P6 image.
	ErrMalformed = errors.New("capture: malformed PPM")
)

// Saved describes a frame written to disk.
type Saved struct {
	Path     string
	Extent   gpu.Extent
	Frame    uint64
	Checksum string // hex sha256 of the RGB payload
}

// Supported reports whether frames in format can be saved.
func Supported(format gputypes.TextureFormat) bool {
	return format == gputypes.TextureFormatBGRA8Unorm
}

// RGB converts device pixels to tightly packed RGB triples.
func RGB(extent gpu.Extent, format gputypes.TextureFormat, pixels []byte) ([]byte, error) {
	if !Supported(format) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	n := extent.Pixels()
	if len(pixels) < n*4 {
		return nil, fmt.Errorf("%w: %d bytes for %v", ErrShortPixels, len(pixels), extent)
	}
	rgb := make([]byte, n*3)
	for i := 0; i < n; i++ {
		src := pixels[i*4 : i*4+4 : i*4+4]
		dst := rgb[i*3 : i*3+3 : i*3+3]
		dst[0], dst[1], dst[2] = src[2], src[1], src[0]
	}
	return rgb, nil
}

// Encode writes pixels to w as a P6 image.
func Encode(w io.Writer, extent gpu.Extent, format gputypes.TextureFormat, pixels []byte) error {
	rgb, err := RGB(extent, format, pixels)
	if err != nil {
		return err
	}
	return encodeRGB(w, extent, rgb)
}

func encodeRGB(w io.Writer, extent gpu.Extent, rgb []byte) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P6\n%d %d\n255\n", extent.Width, extent.Height)
	if _, err := bw.Write(rgb); err != nil {
		return err
	}
	return bw.Flush()
}

// Save writes pixels to path as a P6 image. The data goes to a temporary
// file in the same directory which is renamed over path on success, so a
// failed save never leaves a partial file behind.
func Save(path string, extent gpu.Extent, format gputypes.TextureFormat, pixels []byte) (Saved, error) {
	rgb, err := RGB(extent, format, pixels)
	if err != nil {
		return Saved{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return Saved{}, fmt.Errorf("capture: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := encodeRGB(tmp, extent, rgb); err != nil {
		tmp.Close()
		return Saved{}, fmt.Errorf("capture: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return Saved{}, fmt.Errorf("capture: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Saved{}, fmt.Errorf("capture: %w", err)
	}

	return Saved{Path: path, Extent: extent, Checksum: Checksum(rgb)}, nil
}

// Checksum returns the hex sha256 of an RGB payload, matching Saved.Checksum.
func Checksum(rgb []byte) string {
	sum := sha256.Sum256(rgb)
	return hex.EncodeToString(sum[:])
}

// Decode reads a P6 image with a maximum sample value of 255 and returns its
// extent and RGB payload.
func Decode(r io.Reader) (gpu.Extent, []byte, error) {
	br := bufio.NewReader(r)
	magic, err := token(br)
	if err != nil {
		return gpu.Extent{}, nil, err
	}
	if magic != "P6" {
		return gpu.Extent{}, nil, fmt.Errorf("%w: magic %q", ErrMalformed, magic)
	}
	var vals [3]uint64
	for i := range vals {
		tok, err := token(br)
		if err != nil {
			return gpu.Extent{}, nil, err
		}
		if vals[i], err = strconv.ParseUint(tok, 10, 32); err != nil {
			return gpu.Extent{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if vals[2] != 255 {
		return gpu.Extent{}, nil, fmt.Errorf("%w: max value %d", ErrMalformed, vals[2])
	}
	extent := gpu.Extent{Width: uint32(vals[0]), Height: uint32(vals[1])}
	rgb := make([]byte, extent.Pixels()*3)
	if _, err := io.ReadFull(br, rgb); err != nil {
		return gpu.Extent{}, nil, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	return extent, rgb, nil
}

// token reads one whitespace-delimited header token and consumes exactly one
// trailing whitespace byte.
func token(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: header: %v", ErrMalformed, err)
		}
		switch c {
		case ' ', '\t', '\n', '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		case '#':
			if len(tok) > 0 {
				return "", fmt.Errorf("%w: comment inside token", ErrMalformed)
			}
			if _, err := br.ReadString('\n'); err != nil {
				return "", fmt.Errorf("%w: header: %v", ErrMalformed, err)
			}
		default:
			tok = append(tok, c)
		}
	}
}
