// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gogpu/pacer/internal/protocol"
)

// frameInput is what one iteration consumes before rendering.
type frameInput struct {
	dt     float64
	save   string
	events []InputEvent
}

// frameSource yields frame inputs until io.EOF.
type frameSource interface {
	next(ctx context.Context) (frameInput, error)
}

// windowSource polls a window and measures wall-clock deltas.
type windowSource struct {
	win   InputSource
	clock func() time.Time
	last  time.Time
	max   time.Duration
}

func newWindowSource(win InputSource, clock func() time.Time, max time.Duration) *windowSource {
	return &windowSource{win: win, clock: clock, last: clock(), max: max}
}

func (s *windowSource) next(context.Context) (frameInput, error) {
	if s.win.ShouldClose() {
		return frameInput{}, io.EOF
	}
	s.win.PollEvents()
	events := s.win.Drain()

	now := s.clock()
	dt := now.Sub(s.last)
	s.last = now
	if dt < 0 {
		dt = 0
	}
	if s.max > 0 && dt > s.max {
		dt = s.max
	}
	return frameInput{dt: dt.Seconds(), events: events}, nil
}

// scriptSource reads the headless protocol. Reads block and are not
// interruptible; closing the underlying reader ends the run.
type scriptSource struct {
	r *protocol.Reader
}

func (s *scriptSource) next(context.Context) (frameInput, error) {
	cmd, err := s.r.Next()
	if errors.Is(err, io.EOF) {
		return frameInput{}, io.EOF
	}
	if err != nil {
		return frameInput{}, err
	}
	Logger().Debug("pacer: script line", "line", cmd.Line, "dt", cmd.Dt, "save", cmd.Save)
	return frameInput{dt: cmd.Dt, save: cmd.Save}, nil
}
