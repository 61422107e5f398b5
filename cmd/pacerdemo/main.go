// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command pacerdemo drives the pacer frame loop with a small HUD
// application, either in a window or headless from a script.
//
// Headless mode reads lines of the form
//
//	AVAILABLE <dt> [<file>.ppm]
//
// from stdin (or --script) and renders one frame per line, saving the
// frame to <file>.ppm when a name is given:
//
//	printf 'AVAILABLE 0.016\nAVAILABLE 0.016 out.ppm\n' | pacerdemo --headless --drawing-size 320 240
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/gogpu/pacer"
	"github.com/gogpu/pacer/backend"
	"github.com/gogpu/pacer/backend/soft"
	"github.com/gogpu/pacer/backend/wgpu"
	"github.com/gogpu/pacer/capture"
	"github.com/gogpu/pacer/gpu"
	"github.com/gogpu/pacer/internal/journal"
	"github.com/gogpu/pacer/platform/desktop"
)

func init() {
	// GLFW and OpenGL calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdin *os.File, stderr io.Writer) int {
	o, err := parseArgs(args)
	if errors.Is(err, errHelp) {
		usage(stderr)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "pacerdemo: %v\n", err)
		usage(stderr)
		return 1
	}

	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	pacer.SetLogger(logger)
	soft.SetLogger(logger)
	wgpu.SetLogger(logger)
	desktop.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, o, stdin, logger); err != nil {
		fmt.Fprintf(stderr, "pacerdemo: %v\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, o options, stdin *os.File, logger *slog.Logger) error {
	dev, err := openDevice(o.backend)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	cfg := pacer.DefaultConfig()
	cfg.Headless = o.headless
	cfg.Width, cfg.Height = o.width, o.height
	cfg.Workspaces = o.workspaces
	cfg.AcquireTimeout = o.timeout

	var opts []pacer.Option
	if o.headless {
		script, closeScript, err := openScript(o.script, stdin, logger)
		if err != nil {
			return err
		}
		defer closeScript()
		opts = append(opts, pacer.WithScript(script))
	} else {
		win, err := desktop.Open(desktop.Config{
			Title:  "pacerdemo",
			Width:  int(o.width),
			Height: int(o.height),
			VSync:  o.vsync,
		})
		if err != nil {
			return err
		}
		defer win.Close()
		opts = append(opts, pacer.WithWindow(win))
	}

	saves := 0
	var jr *journal.Journal
	if o.journal != "" {
		jr, err = journal.Open(ctx, o.journal, dev.Name(), cfg.Extent())
		if err != nil {
			return err
		}
		defer jr.Close()
		logger.Info("pacerdemo: journal run started", "path", o.journal, "run", jr.Run())
	}
	opts = append(opts, pacer.WithSaveObserver(func(s capture.Saved) {
		saves++
		logger.Info("pacerdemo: saved frame",
			"frame", s.Frame,
			"path", s.Path,
			"size", humanize.Bytes(uint64(s.Extent.Pixels())*3))
		if jr == nil {
			return
		}
		// Shutdown drains captures after ctx is cancelled; record them anyway.
		if err := jr.Record(context.WithoutCancel(ctx), s); err != nil {
			logger.Warn("pacerdemo: journal", "err", err)
		}
	}))

	engine, err := pacer.New(dev, cfg, opts...)
	if err != nil {
		return err
	}
	app := &demo{backend: dev.Name()}
	err = engine.Run(ctx, app)
	logger.Info("pacerdemo: done", "frames", engine.Frame(), "saved", saves)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openDevice(name string) (gpu.Device, error) {
	if name != "" {
		return backend.Open(name)
	}
	return backend.OpenDefault()
}

// openScript returns the headless script reader.
func openScript(path string, stdin *os.File, logger *slog.Logger) (io.Reader, func(), error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open script: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
	if term.IsTerminal(int(stdin.Fd())) {
		logger.Info("pacerdemo: reading AVAILABLE <dt> [<file>.ppm] lines from the terminal; end with Ctrl-D")
	}
	return stdin, func() {}, nil
}
