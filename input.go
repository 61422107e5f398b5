// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import (
	"fmt"

	"github.com/gogpu/pacer/surface"
)

// Mods is a bitmask of modifier keys held during an input event.
type Mods uint8

// Modifier keys.
const (
	ModShift Mods = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// String returns the held modifiers joined with "+", or "" for none.
func (m Mods) String() string {
	var s string
	for _, n := range []struct {
		bit  Mods
		name string
	}{{ModShift, "shift"}, {ModControl, "ctrl"}, {ModAlt, "alt"}, {ModSuper, "super"}} {
		if m&n.bit != 0 {
			if s != "" {
				s += "+"
			}
			s += n.name
		}
	}
	return s
}

// InputEvent is one of MouseMotion, MouseButton, MouseWheel or Key.
type InputEvent interface {
	isInputEvent()
}

// MouseMotion reports the cursor position in window pixels. Buttons is the
// bitmask of pressed mouse buttons.
type MouseMotion struct {
	X, Y    float64
	Buttons uint8
}

// MouseButton reports a press (Down) or release of Button at X, Y.
type MouseButton struct {
	X, Y   float64
	Button int
	Down   bool
	Mods   Mods
}

// MouseWheel reports a scroll by X, Y.
type MouseWheel struct {
	X, Y float64
}

// Key reports a press (Down) or release of Key. Repeats arrive as presses.
type Key struct {
	Key      int
	Scancode int
	Down     bool
	Mods     Mods
}

func (MouseMotion) isInputEvent() {}
func (MouseButton) isInputEvent() {}
func (MouseWheel) isInputEvent()  {}
func (Key) isInputEvent()         {}

func (e MouseMotion) String() string {
	return fmt.Sprintf("motion(%g,%g buttons=%#x)", e.X, e.Y, e.Buttons)
}

func (e MouseButton) String() string {
	return fmt.Sprintf("button(%d down=%t at %g,%g %s)", e.Button, e.Down, e.X, e.Y, e.Mods)
}

func (e MouseWheel) String() string {
	return fmt.Sprintf("wheel(%g,%g)", e.X, e.Y)
}

func (e Key) String() string {
	return fmt.Sprintf("key(%d down=%t %s)", e.Key, e.Down, e.Mods)
}

// InputSource delivers window events.
type InputSource interface {
	// PollEvents processes pending platform events and queues input.
	PollEvents()

	// Drain returns the events queued since the last call, in arrival order.
	Drain() []InputEvent

	// ShouldClose reports whether the user asked to close the window.
	ShouldClose() bool
}

// Window is a platform surface that also produces input.
type Window interface {
	surface.Surface
	InputSource
}
