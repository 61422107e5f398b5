// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package desktop

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/pacer"
	"github.com/gogpu/pacer/gpu"
	"github.com/gogpu/pacer/surface"
)

// Config describes the window to open.
type Config struct {
	Title  string
	Width  int
	Height int
	VSync  bool
}

// Window is a GLFW window with an OpenGL blit target.
type Window struct {
	w      *glfw.Window
	tex    uint32
	fbo    uint32
	events []pacer.InputEvent

	x, y    float64
	buttons uint8
}

// Open creates the window and its GL context. It must be called on the
// main thread.
func Open(cfg Config) (*Window, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("desktop: init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Samples, 0)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("desktop: create window: %w", err)
	}
	win.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("desktop: init gl: %w", err)
	}
	slogger().Info("desktop: window opened",
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"gl", gl.GoStr(gl.GetString(gl.VERSION)))

	w := &Window{w: win}
	gl.GenTextures(1, &w.tex)
	gl.GenFramebuffers(1, &w.fbo)
	w.installCallbacks()
	return w, nil
}

func (w *Window) installCallbacks() {
	w.w.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.x, w.y = x, y
		w.emit(pacer.MouseMotion{X: x, Y: y, Buttons: w.buttons})
	})
	w.w.SetMouseButtonCallback(func(_ *glfw.Window, b glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		down := action != glfw.Release
		w.buttons = buttonMask(w.buttons, int(b), down)
		w.emit(pacer.MouseButton{X: w.x, Y: w.y, Button: int(b), Down: down, Mods: translateMods(mods)})
	})
	w.w.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		w.emit(pacer.MouseWheel{X: xoff, Y: yoff})
	})
	w.w.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		w.emit(pacer.Key{Key: int(key), Scancode: scancode, Down: action != glfw.Release, Mods: translateMods(mods)})
	})
}

func (w *Window) emit(ev pacer.InputEvent) {
	w.events = append(w.events, ev)
}

// PollEvents implements pacer.InputSource.
func (w *Window) PollEvents() { glfw.PollEvents() }

// Drain implements pacer.InputSource.
func (w *Window) Drain() []pacer.InputEvent {
	evs := w.events
	w.events = nil
	return evs
}

// ShouldClose implements pacer.InputSource.
func (w *Window) ShouldClose() bool { return w.w.ShouldClose() }

// SetTitle changes the window title.
func (w *Window) SetTitle(title string) { w.w.SetTitle(title) }

// framebufferExtent returns the drawable size in pixels.
func (w *Window) framebufferExtent() gpu.Extent {
	fw, fh := w.w.GetFramebufferSize()
	if fw < 0 || fh < 0 {
		return gpu.Extent{}
	}
	return gpu.Extent{Width: uint32(fw), Height: uint32(fh)}
}

// waitVisible blocks while the window is minimized, processing events in
// slices. It returns surface.ErrClosed once the window is asked to close.
func (w *Window) waitVisible(ctx context.Context, timeout time.Duration) error {
	return surface.WaitUntil(ctx, timeout, w.visible, func(d time.Duration) {
		glfw.WaitEventsTimeout(d.Seconds())
	})
}

func (w *Window) visible() (bool, error) {
	if w.w.ShouldClose() {
		return false, surface.ErrClosed
	}
	return !w.framebufferExtent().IsZero(), nil
}

// Capabilities implements surface.Surface.
func (w *Window) Capabilities(ctx context.Context) (surface.Capabilities, error) {
	if err := w.waitVisible(ctx, 0); err != nil {
		return surface.Capabilities{}, err
	}
	return surface.Capabilities{
		MinImageCount: 2,
		MaxImageCount: 3,
		CurrentExtent: w.framebufferExtent(),
		Format:        gputypes.TextureFormatBGRA8Unorm,
	}, nil
}

// Close destroys the window and terminates GLFW.
func (w *Window) Close() {
	gl.DeleteFramebuffers(1, &w.fbo)
	gl.DeleteTextures(1, &w.tex)
	w.w.Destroy()
	glfw.Terminate()
}

var _ pacer.Window = (*Window)(nil)

func translateMods(m glfw.ModifierKey) pacer.Mods {
	var out pacer.Mods
	if m&glfw.ModShift != 0 {
		out |= pacer.ModShift
	}
	if m&glfw.ModControl != 0 {
		out |= pacer.ModControl
	}
	if m&glfw.ModAlt != 0 {
		out |= pacer.ModAlt
	}
	if m&glfw.ModSuper != 0 {
		out |= pacer.ModSuper
	}
	return out
}

// buttonMask sets or clears the bit for button. Buttons past 7 are ignored.
func buttonMask(mask uint8, button int, down bool) uint8 {
	if button < 0 || button > 7 {
		return mask
	}
	bit := uint8(1) << button
	if down {
		return mask | bit
	}
	return mask &^ bit
}
