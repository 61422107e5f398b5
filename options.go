// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import (
	"io"
	"time"

	"github.com/gogpu/pacer/capture"
	"github.com/gogpu/pacer/surface"
)

// Option configures an Engine during creation.
//
// Example:
//
//	e, err := pacer.New(dev, cfg,
//	    pacer.WithScript(strings.NewReader("AVAILABLE 0.016 out.ppm\n")),
//	    pacer.WithSaveObserver(func(s capture.Saved) { log.Println(s.Path) }),
//	)
type Option func(*engineOptions)

type engineOptions struct {
	window    Window
	script    io.Reader
	clock     func() time.Time
	onSave    func(capture.Saved)
	presenter surface.Presenter
}

func defaultOptions() engineOptions {
	return engineOptions{
		clock: time.Now,
	}
}

// WithWindow sets the window used in windowed mode. The window supplies both
// the platform surface and the input events.
func WithWindow(w Window) Option {
	return func(o *engineOptions) {
		o.window = w
	}
}

// WithScript sets the headless protocol source. Defaults to os.Stdin.
func WithScript(r io.Reader) Option {
	return func(o *engineOptions) {
		o.script = r
	}
}

// WithClock replaces the wall clock used for windowed frame deltas.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithSaveObserver registers fn to be called after each headless capture
// is written to disk.
func WithSaveObserver(fn func(capture.Saved)) Option {
	return func(o *engineOptions) {
		o.onSave = fn
	}
}

// WithPresenter replaces the presenter New would build. The Engine takes
// ownership and destroys it at shutdown.
func WithPresenter(p surface.Presenter) Option {
	return func(o *engineOptions) {
		o.presenter = p
	}
}
