// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/backend/soft"
	"github.com/gogpu/pacer/capture"
	"github.com/gogpu/pacer/gpu"
	"github.com/gogpu/pacer/surface"
)

type headlessRig struct {
	t        *testing.T
	dev      *soft.Device
	h        *surface.Headless
	acquired gpu.Semaphore
	cmd      gpu.CommandBuffer
	fence    gpu.Fence
	saved    []capture.Saved
}

func newHeadless(t *testing.T, extent gpu.Extent, format gputypes.TextureFormat) *headlessRig {
	t.Helper()
	r := &headlessRig{t: t, dev: soft.New()}
	h, err := surface.NewHeadless(r.dev, extent, format,
		surface.WithSaveObserver(func(s capture.Saved) { r.saved = append(r.saved, s) }))
	if err != nil {
		t.Fatalf("NewHeadless() error = %v", err)
	}
	r.h = h
	r.acquired, _ = r.dev.CreateSemaphore("acquired")
	r.cmd, _ = r.dev.CreateCommandBuffer("render")
	r.fence, _ = r.dev.CreateFence("render", true)
	t.Cleanup(func() {
		_ = r.dev.WaitIdle(context.Background())
		h.Destroy()
		r.dev.Destroy()
	})
	return r
}

// frame runs one acquire/render/present cycle clearing the image to col.
func (r *headlessRig) frame(frame uint64, save string, col gputypes.Color) {
	r.t.Helper()
	ctx := context.Background()
	idx, _, err := r.h.Acquire(ctx, r.acquired, surface.FrameRequest{Frame: frame, Save: save})
	if err != nil {
		r.t.Fatalf("Acquire() error = %v", err)
	}
	set := r.h.ImageSet()

	if err := r.dev.WaitFence(ctx, r.fence, 0); err != nil {
		r.t.Fatal(err)
	}
	_ = r.dev.ResetFence(r.fence)
	if err := r.cmd.Reset(); err != nil {
		r.t.Fatal(err)
	}
	r.cmd.ClearImage(set.Images[idx], col)
	if err := r.dev.Submit(gpu.SubmitInfo{
		Label:    "render",
		Wait:     []gpu.Semaphore{r.acquired},
		Commands: []gpu.CommandBuffer{r.cmd},
		Signal:   []gpu.Semaphore{set.Done[idx]},
		Fence:    r.fence,
	}); err != nil {
		r.t.Fatal(err)
	}
	if _, err := r.h.Present(ctx, idx, set.Done[idx]); err != nil {
		r.t.Fatalf("Present() error = %v", err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestHeadlessDepthIndependentOfExtent(t *testing.T) {
	for _, extent := range []gpu.Extent{{Width: 1, Height: 1}, {Width: 640, Height: 480}, {Width: 3, Height: 1000}} {
		r := newHeadless(t, extent, gputypes.TextureFormatBGRA8Unorm)
		set := r.h.ImageSet()
		if set.Len() != surface.HeadlessDepth || len(set.Views) != 3 || len(set.Done) != 3 {
			t.Errorf("extent %v: image set has %d/%d/%d entries, want 3", extent, set.Len(), len(set.Views), len(set.Done))
		}
		if set.Extent != extent {
			t.Errorf("extent = %v, want %v", set.Extent, extent)
		}
	}
}

func TestHeadlessRingOrder(t *testing.T) {
	r := newHeadless(t, gpu.Extent{Width: 2, Height: 2}, gputypes.TextureFormatBGRA8Unorm)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		idx, _, err := r.h.Acquire(ctx, r.acquired, surface.FrameRequest{})
		if err != nil {
			t.Fatal(err)
		}
		if int(idx) != i%3 {
			t.Fatalf("frame %d acquired image %d, want %d", i, idx, i%3)
		}
		// Present straight away with acquired standing in for the done signal.
		if _, err := r.h.Present(ctx, idx, r.acquired); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHeadlessWriteBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame0.ppm")
	r := newHeadless(t, gpu.Extent{Width: 4, Height: 3}, gputypes.TextureFormatBGRA8Unorm)
	red := gputypes.Color{R: 1, A: 1}

	r.frame(0, path, red)
	r.frame(1, "", red)
	r.frame(2, "", red)
	if exists(path) {
		t.Fatal("frame saved before its slot was reused")
	}
	r.frame(3, "", red)
	if !exists(path) {
		t.Fatal("frame not saved when its slot was reused")
	}
	if len(r.saved) != 1 || r.saved[0].Frame != 0 || r.saved[0].Path != path {
		t.Fatalf("observer saw %+v", r.saved)
	}

	data, _ := os.ReadFile(path)
	want := append([]byte("P6\n4 3\n255\n"), bytes.Repeat([]byte{255, 0, 0}, 12)...)
	if !bytes.Equal(data, want) {
		t.Errorf("saved file = %q, want %q", data, want)
	}

	if err := r.h.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r.h.Saved() != 1 {
		t.Errorf("Saved() = %d after drain, want 1", r.h.Saved())
	}
}

func TestHeadlessDrainWritesPending(t *testing.T) {
	dir := t.TempDir()
	r := newHeadless(t, gpu.Extent{Width: 2, Height: 2}, gputypes.TextureFormatBGRA8Unorm)
	names := []string{filepath.Join(dir, "a.ppm"), "", filepath.Join(dir, "c.ppm")}
	for i, name := range names {
		r.frame(uint64(i), name, gputypes.Color{G: 1, A: 1})
	}
	if err := r.h.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(r.saved) != 2 || r.saved[0].Frame != 0 || r.saved[1].Frame != 2 {
		t.Fatalf("drain saved %+v, want frames 0 and 2 in order", r.saved)
	}
	// Draining twice writes nothing new.
	if err := r.h.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(r.saved) != 2 {
		t.Errorf("second drain saved %d frames", len(r.saved)-2)
	}
}

func TestHeadlessUnsupportedFormatSkipsSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rgba.ppm")
	r := newHeadless(t, gpu.Extent{Width: 2, Height: 2}, gputypes.TextureFormatRGBA8Unorm)
	r.frame(0, path, gputypes.Color{B: 1, A: 1})
	if err := r.h.Drain(context.Background()); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if exists(path) {
		t.Error("file written for unsupported format")
	}
	if len(r.saved) != 0 {
		t.Errorf("observer called %d times", len(r.saved))
	}
}

func TestHeadlessRecreateFlushesAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "before.ppm")
	r := newHeadless(t, gpu.Extent{Width: 5, Height: 5}, gputypes.TextureFormatBGRA8Unorm)
	r.frame(0, path, gputypes.Color{A: 1})

	ctx := context.Background()
	if err := r.h.Recreate(ctx); err != nil {
		t.Fatal(err)
	}
	if !exists(path) {
		t.Error("Recreate() lost a pending capture")
	}
	first := r.h.ImageSet()
	if err := r.h.Recreate(ctx); err != nil {
		t.Fatal(err)
	}
	second := r.h.ImageSet()
	if first.Len() != second.Len() || first.Extent != second.Extent {
		t.Errorf("Recreate() twice: %d %v then %d %v", first.Len(), first.Extent, second.Len(), second.Extent)
	}

	r.h.Resize(gpu.Extent{Width: 7, Height: 2})
	if err := r.h.Recreate(ctx); err != nil {
		t.Fatal(err)
	}
	if got := r.h.ImageSet(); got.Len() != 3 || got.Extent != (gpu.Extent{Width: 7, Height: 2}) {
		t.Errorf("after Resize: %d images %v", got.Len(), got.Extent)
	}
	r.frame(1, "", gputypes.Color{A: 1})
}

func TestHeadlessDrainDropsUnpresentedFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.ppm")
	r := newHeadless(t, gpu.Extent{Width: 2, Height: 2}, gputypes.TextureFormatBGRA8Unorm)
	if _, _, err := r.h.Acquire(context.Background(), r.acquired, surface.FrameRequest{Save: path}); err != nil {
		t.Fatal(err)
	}
	if err := r.h.Drain(context.Background()); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if exists(path) {
		t.Error("unpresented frame was saved")
	}
}

func TestHeadlessResizeKeepsPendingCaptureExtent(t *testing.T) {
	tests := []struct {
		name     string
		from, to gpu.Extent
	}{
		{"grow", gpu.Extent{Width: 2, Height: 2}, gpu.Extent{Width: 4, Height: 4}},
		{"shrink", gpu.Extent{Width: 4, Height: 4}, gpu.Extent{Width: 2, Height: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "resized.ppm")
			r := newHeadless(t, tt.from, gputypes.TextureFormatBGRA8Unorm)
			r.frame(0, path, gputypes.Color{R: 1, A: 1})

			r.h.Resize(tt.to)
			if err := r.h.Recreate(context.Background()); err != nil {
				t.Fatalf("Recreate() error = %v", err)
			}
			if len(r.saved) != 1 || r.saved[0].Extent != tt.from {
				t.Fatalf("saved = %+v, want one capture at %v", r.saved, tt.from)
			}
			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			extent, rgb, err := capture.Decode(f)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if extent != tt.from {
				t.Errorf("file extent = %v, want %v", extent, tt.from)
			}
			if want := bytes.Repeat([]byte{255, 0, 0}, int(tt.from.Pixels())); !bytes.Equal(rgb, want) {
				t.Errorf("payload = %v, want all red", rgb)
			}
			if got := r.h.ImageSet().Extent; got != tt.to {
				t.Errorf("ImageSet().Extent = %v, want %v", got, tt.to)
			}
		})
	}
}
