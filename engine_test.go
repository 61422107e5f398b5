// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer/backend/soft"
	"github.com/gogpu/pacer/capture"
	"github.com/gogpu/pacer/gpu"
	"github.com/gogpu/pacer/surface/surfacetest"
)

// recorder is an Application that clears each image and logs every call.
type recorder struct {
	t          *testing.T
	calls      []string
	dts        []float64
	renders    int
	swapchains []gpu.Extent
	inFlight   int // highest workspace in-flight count seen during Render
	stats      []FrameStats
	renderErr  error
	onRender   func(e *Engine)
}

func (r *recorder) OnSwapchain(_ *Engine, info SwapchainInfo) {
	if len(info.Images) != len(info.Views) {
		r.t.Errorf("OnSwapchain: %d images, %d views", len(info.Images), len(info.Views))
	}
	r.swapchains = append(r.swapchains, info.Extent)
	r.calls = append(r.calls, "swapchain "+info.Extent.String())
}

func (r *recorder) Update(dt float64) {
	r.dts = append(r.dts, dt)
	r.calls = append(r.calls, fmt.Sprintf("update %g", dt))
}

func (r *recorder) OnInput(ev InputEvent) {
	r.calls = append(r.calls, fmt.Sprintf("input %v", ev))
}

func (r *recorder) Render(e *Engine, p RenderParams) error {
	r.calls = append(r.calls, fmt.Sprintf("render %s", e.Extent()))
	if r.onRender != nil {
		r.onRender(e)
	}
	if r.renderErr != nil {
		return r.renderErr
	}
	if n := e.pool.InFlight(); n > r.inFlight {
		r.inFlight = n
	}
	r.renders++

	ws := e.Workspace(p.WorkspaceIndex)
	if err := ws.Commands.Reset(); err != nil {
		return err
	}
	ws.Commands.ClearImage(e.ImageSet().Images[p.ImageIndex], gputypes.Color{R: 1, G: 0.5, A: 1})
	return e.Device().Submit(gpu.SubmitInfo{
		Label:    "render",
		Wait:     []gpu.Semaphore{p.ImageAcquired},
		Commands: []gpu.CommandBuffer{ws.Commands},
		Signal:   []gpu.Semaphore{p.ImageDone},
		Fence:    p.WorkspaceAvailable,
	})
}

func (r *recorder) OnFrameStats(s FrameStats) { r.stats = append(r.stats, s) }

func newDevice(t *testing.T, opts ...soft.Option) *soft.Device {
	t.Helper()
	dev := soft.New(opts...)
	t.Cleanup(dev.Destroy)
	return dev
}

func headlessConfig(w, h uint32) Config {
	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.Width, cfg.Height = w, h
	return cfg
}

func runHeadless(t *testing.T, script string, opts ...Option) (*recorder, error) {
	t.Helper()
	dev := newDevice(t)
	opts = append([]Option{WithScript(strings.NewReader(script))}, opts...)
	e, err := New(dev, headlessConfig(4, 2), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	app := &recorder{t: t}
	err = e.Run(context.Background(), app)
	if lost := dev.Err(); lost != nil {
		t.Fatalf("device lost: %v", lost)
	}
	return app, err
}

func TestScenarioSingleFrameNoSave(t *testing.T) {
	dir := t.TempDir()
	app, err := runHeadless(t, "AVAILABLE 0.016\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if app.renders != 1 {
		t.Errorf("renders = %d, want 1", app.renders)
	}
	if len(app.dts) != 1 || app.dts[0] != 0.016 {
		t.Errorf("Update dts = %v, want [0.016]", app.dts)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("%d files written", len(entries))
	}
}

func TestScenarioWriteBehindSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame0.ppm")
	script := "AVAILABLE 0.016 " + path + "\nAVAILABLE 0.016\n"

	var saves []capture.Saved
	app, err := runHeadless(t, script, WithSaveObserver(func(s capture.Saved) {
		saves = append(saves, s)
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if app.renders != 2 {
		t.Errorf("renders = %d, want 2", app.renders)
	}
	if len(saves) != 1 || saves[0].Path != path || saves[0].Frame != 0 {
		t.Fatalf("saves = %+v, want one save of frame 0", saves)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("P6\n4 2\n255\n")) {
		t.Errorf("header = %q", data[:min(len(data), 11)])
	}
	if want := 11 + 4*2*3; len(data) != want {
		t.Errorf("file size = %d, want %d", len(data), want)
	}
	if got := data[11:14]; !bytes.Equal(got, []byte{255, 128, 0}) {
		t.Errorf("first pixel = %v, want [255 128 0]", got)
	}
}

func TestScenarioNegativeDeltaRejected(t *testing.T) {
	app, err := runHeadless(t, "AVAILABLE -1\nAVAILABLE 0.5\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if app.renders != 1 {
		t.Errorf("renders = %d, want 1", app.renders)
	}
	if len(app.dts) != 1 || app.dts[0] != 0.5 {
		t.Errorf("Update dts = %v, want [0.5]", app.dts)
	}
}

func TestScenarioOnlyRejectedLines(t *testing.T) {
	app, err := runHeadless(t, "AVAILABLE -1\nNOPE\nAVAILABLE 1 x.png\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if app.renders != 0 || len(app.dts) != 0 {
		t.Errorf("renders = %d, updates = %d; want none", app.renders, len(app.dts))
	}
}

func TestSaveHappensAfterNextLine(t *testing.T) {
	// With the script fed line by line, the capture of frame 0 must not
	// exist until the second line has been consumed.
	dir := t.TempDir()
	path := filepath.Join(dir, "f.ppm")
	pr := &lineFeeder{lines: []string{"AVAILABLE 0.016 " + path + "\n", "AVAILABLE 0.016\n"}}
	pr.before = func(i int) {
		if i == 1 {
			if _, err := os.Stat(path); err == nil {
				t.Error("capture written before the next line was read")
			}
		}
	}
	dev := newDevice(t)
	e, err := New(dev, headlessConfig(2, 2), WithScript(pr))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Run(context.Background(), &recorder{t: t}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("capture missing after shutdown: %v", err)
	}
}

// lineFeeder returns one line per Read call and calls before(i) first.
type lineFeeder struct {
	lines  []string
	i      int
	before func(i int)
}

func (f *lineFeeder) Read(p []byte) (int, error) {
	if f.i >= len(f.lines) {
		return 0, io.EOF
	}
	if f.before != nil {
		f.before(f.i)
	}
	n := copy(p, f.lines[f.i])
	f.i++
	return n, nil
}

func TestWorkspacesInFlightBounded(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			dev := newDevice(t, soft.WithLatency(time.Millisecond))
			cfg := headlessConfig(8, 8)
			cfg.Workspaces = n
			script := strings.Repeat("AVAILABLE 0.01\n", 12)
			e, err := New(dev, cfg, WithScript(strings.NewReader(script)))
			if err != nil {
				t.Fatal(err)
			}
			app := &recorder{t: t}
			if err := e.Run(context.Background(), app); err != nil {
				t.Fatal(err)
			}
			if app.inFlight > n {
				t.Errorf("in flight = %d, want <= %d", app.inFlight, n)
			}
			if app.renders != 12 {
				t.Errorf("renders = %d, want 12", app.renders)
			}
		})
	}
}

func TestHeadlessImageSetDepth(t *testing.T) {
	dev := newDevice(t)
	for _, size := range [][2]uint32{{1, 1}, {320, 200}} {
		e, err := New(dev, headlessConfig(size[0], size[1]), WithScript(strings.NewReader("")))
		if err != nil {
			t.Fatal(err)
		}
		if got := e.ImageSet().Len(); got != 3 {
			t.Errorf("%v: image set depth = %d, want 3", size, got)
		}
		if err := e.Run(context.Background(), &recorder{t: t}); err != nil {
			t.Fatal(err)
		}
	}
}

// fakeWindow is a scripted window over surfacetest.Surface.
type fakeWindow struct {
	*surfacetest.Surface
	frames int
	polls  int
	queue  []InputEvent
	onPoll func(poll int)
}

func (w *fakeWindow) PollEvents() {
	w.polls++
	if w.onPoll != nil {
		w.onPoll(w.polls)
	}
}

func (w *fakeWindow) Drain() []InputEvent {
	q := w.queue
	w.queue = nil
	return q
}

func (w *fakeWindow) ShouldClose() bool { return w.polls >= w.frames }

func newWindowed(t *testing.T, win *fakeWindow, opts ...Option) *Engine {
	t.Helper()
	dev := newDevice(t)
	e, err := New(dev, DefaultConfig(), append([]Option{WithWindow(win)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestScenarioStaleAcquireRecreatesBeforeRender(t *testing.T) {
	win := &fakeWindow{Surface: surfacetest.New(gpu.Extent{Width: 64, Height: 32}), frames: 2}
	win.onPoll = func(poll int) {
		if poll == 2 {
			win.Resize(gpu.Extent{Width: 100, Height: 50})
		}
	}
	e := newWindowed(t, win)
	app := &recorder{t: t}
	if err := e.Run(context.Background(), app); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"swapchain 64x32",
		"update 0",
		"render 64x32",
		"update 0",
		"swapchain 100x50",
		"render 100x50",
	}
	// dt depends on the wall clock; compare without it.
	got := make([]string, len(app.calls))
	for i, c := range app.calls {
		if strings.HasPrefix(c, "update ") {
			c = "update 0"
		}
		got[i] = c
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("calls:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if len(app.stats) != 2 || app.stats[1].Recreated != 1 {
		t.Errorf("stats = %+v", app.stats)
	}
	if win.Live != 0 {
		t.Errorf("%d swapchains leaked", win.Live)
	}
}

func TestPresentStaleAndSuboptimalRecreate(t *testing.T) {
	win := &fakeWindow{Surface: surfacetest.New(gpu.Extent{Width: 8, Height: 8}), frames: 3}
	win.StalePresents = 1
	win.onPoll = func(poll int) {
		if poll == 2 {
			win.SuboptimalPresents = 1
		}
	}
	e := newWindowed(t, win)
	app := &recorder{t: t}
	if err := e.Run(context.Background(), app); err != nil {
		t.Fatal(err)
	}
	if len(app.swapchains) != 3 {
		t.Errorf("OnSwapchain called %d times, want 3", len(app.swapchains))
	}
	if app.renders != 3 {
		t.Errorf("renders = %d, want 3", app.renders)
	}
}

func TestWindowedDeltaClampedAndInputFirst(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	win := &fakeWindow{Surface: surfacetest.New(gpu.Extent{Width: 4, Height: 4}), frames: 1}
	win.queue = []InputEvent{
		Key{Key: 65, Down: true, Mods: ModShift},
		MouseMotion{X: 1, Y: 2},
	}
	e := newWindowed(t, win, WithClock(clock))
	app := &recorder{t: t}
	if err := e.Run(context.Background(), app); err != nil {
		t.Fatal(err)
	}
	if len(app.dts) != 1 || app.dts[0] != 0.1 {
		t.Errorf("dts = %v, want [0.1]", app.dts)
	}
	want := []string{
		"swapchain 4x4",
		"input key(65 down=true shift)",
		"input motion(1,2 buttons=0x0)",
		"update 0.1",
		"render 4x4",
	}
	if strings.Join(app.calls, "\n") != strings.Join(want, "\n") {
		t.Errorf("calls:\n%s\nwant:\n%s", strings.Join(app.calls, "\n"), strings.Join(want, "\n"))
	}
}

func TestRequestRecreate(t *testing.T) {
	dev := newDevice(t)
	e, err := New(dev, headlessConfig(2, 2), WithScript(strings.NewReader("AVAILABLE 0\nAVAILABLE 0\n")))
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{t: t}
	rec.onRender = func(e *Engine) {
		if e.Frame() == 0 {
			e.RequestRecreate()
			e.RequestRecreate() // coalesced
		}
	}
	if err := e.Run(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	want := []string{"swapchain 2x2", "update 0", "render 2x2", "update 0", "swapchain 2x2", "render 2x2"}
	if strings.Join(rec.calls, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestRenderErrorIsFatal(t *testing.T) {
	dev := newDevice(t)
	path := filepath.Join(t.TempDir(), "x.ppm")
	e, err := New(dev, headlessConfig(2, 2), WithScript(strings.NewReader("AVAILABLE 0 "+path+"\nAVAILABLE 0\n")))
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	app := &recorder{t: t, renderErr: boom}
	err = e.Run(context.Background(), app)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() = %v, want %v", err, boom)
	}
	if len(app.dts) != 1 {
		t.Errorf("frames after failure: %d updates", len(app.dts))
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("capture written for a failed frame")
	}
}

func TestRunCancelled(t *testing.T) {
	dev := newDevice(t)
	e, err := New(dev, headlessConfig(2, 2), WithScript(strings.NewReader("AVAILABLE 0\n")))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx, &recorder{t: t}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if err := e.Run(context.Background(), &recorder{t: t}); !errors.Is(err, ErrEngineDone) {
		t.Errorf("second Run() = %v, want ErrEngineDone", err)
	}
}

func TestNewErrors(t *testing.T) {
	dev := newDevice(t)
	if _, err := New(dev, DefaultConfig()); !errors.Is(err, ErrNoWindow) {
		t.Errorf("windowed without window: %v, want ErrNoWindow", err)
	}
	cfg := headlessConfig(0, 10)
	if _, err := New(dev, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero width: %v, want ErrInvalidConfig", err)
	}
	cfg = headlessConfig(1, 1)
	cfg.Workspaces = 0
	if _, err := New(dev, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero workspaces: %v, want ErrInvalidConfig", err)
	}
	cfg = headlessConfig(1, 1)
	cfg.Format = gputypes.TextureFormatR8Unorm
	if _, err := New(dev, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("R8 format: %v, want ErrInvalidConfig", err)
	}
	e, _ := New(dev, headlessConfig(1, 1), WithScript(strings.NewReader("")))
	if err := e.Run(context.Background(), nil); !errors.Is(err, ErrNoApplication) {
		t.Errorf("nil app: %v, want ErrNoApplication", err)
	}
}

func TestWindowClosedEndsRun(t *testing.T) {
	t.Run("while minimized", func(t *testing.T) {
		win := &fakeWindow{Surface: surfacetest.New(gpu.Extent{Width: 8, Height: 8}), frames: 5}
		win.onPoll = func(poll int) {
			if poll == 2 {
				win.SetMinimized(true)
				go func() {
					time.Sleep(20 * time.Millisecond)
					win.Close()
				}()
			}
		}
		e := newWindowed(t, win)
		app := &recorder{t: t}
		if err := e.Run(context.Background(), app); err != nil {
			t.Fatalf("Run() = %v, want nil", err)
		}
		if app.renders != 1 {
			t.Errorf("renders = %d, want 1", app.renders)
		}
		if win.Live != 0 {
			t.Errorf("%d swapchains leaked", win.Live)
		}
	})
	t.Run("during recreate", func(t *testing.T) {
		win := &fakeWindow{Surface: surfacetest.New(gpu.Extent{Width: 8, Height: 8}), frames: 5}
		win.StalePresents = 1
		e := newWindowed(t, win)
		app := &recorder{t: t, onRender: func(*Engine) { win.Close() }}
		if err := e.Run(context.Background(), app); err != nil {
			t.Fatalf("Run() = %v, want nil", err)
		}
		if len(app.swapchains) != 1 {
			t.Errorf("OnSwapchain called %d times, want 1", len(app.swapchains))
		}
		if win.Live != 0 {
			t.Errorf("%d swapchains leaked", win.Live)
		}
	})
}

func TestAcquireTimeoutWhileMinimized(t *testing.T) {
	win := &fakeWindow{Surface: surfacetest.New(gpu.Extent{Width: 8, Height: 8}), frames: 5}
	win.onPoll = func(poll int) {
		if poll == 2 {
			win.SetMinimized(true)
		}
	}
	cfg := DefaultConfig()
	cfg.AcquireTimeout = 20 * time.Millisecond
	e, err := New(newDevice(t), cfg, WithWindow(win))
	if err != nil {
		t.Fatal(err)
	}
	app := &recorder{t: t}
	if err := e.Run(context.Background(), app); !errors.Is(err, gpu.ErrTimeout) {
		t.Fatalf("Run() = %v, want ErrTimeout", err)
	}
	if app.renders != 1 {
		t.Errorf("renders = %d, want 1", app.renders)
	}
}
