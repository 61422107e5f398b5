// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/pacer/gpu"
	"github.com/gogpu/pacer/internal/protocol"
	"github.com/gogpu/pacer/surface"
	"github.com/gogpu/pacer/workspace"
)

// Engine is the frame orchestrator. It is driven by a single goroutine
// through Run and is not safe for concurrent use, except for
// RequestRecreate.
type Engine struct {
	dev       gpu.Device
	cfg       Config
	pool      *workspace.Pool
	presenter surface.Presenter
	source    frameSource

	frame     uint64
	recreated int
	ran       bool

	recreate chan struct{}
}

// New creates an Engine on dev. The Engine does not own dev.
//
// In headless mode the Engine builds an emulated swapchain of cfg's extent
// and format and reads frames from the script (os.Stdin unless WithScript
// is given). In windowed mode WithWindow is required.
func New(dev gpu.Device, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{dev: dev, cfg: cfg, recreate: make(chan struct{}, 1)}

	switch {
	case cfg.Headless:
		script := o.script
		if script == nil {
			script = os.Stdin
		}
		e.source = &scriptSource{r: protocol.NewReader(script, Logger)}
	case o.window != nil:
		e.source = newWindowSource(o.window, o.clock, cfg.MaxDelta)
	default:
		return nil, ErrNoWindow
	}

	e.presenter = o.presenter
	if e.presenter == nil {
		var err error
		if cfg.Headless {
			e.presenter, err = surface.NewHeadless(dev, cfg.Extent(), cfg.Format,
				surface.WithSaveObserver(o.onSave),
				surface.WithPresentTimeout(cfg.AcquireTimeout))
		} else {
			e.presenter, err = surface.NewWindowed(dev, o.window,
				surface.WithAcquireTimeout(cfg.AcquireTimeout))
		}
		if err != nil {
			return nil, fmt.Errorf("pacer: %w", err)
		}
	}

	pool, err := workspace.New(dev, cfg.Workspaces, workspace.WithTimeout(cfg.AcquireTimeout))
	if err != nil {
		e.presenter.Destroy()
		return nil, fmt.Errorf("pacer: %w", err)
	}
	e.pool = pool

	Logger().Info("pacer: engine created",
		"device", dev.Name(),
		"headless", cfg.Headless,
		"workspaces", cfg.Workspaces,
		"images", e.presenter.ImageSet().Len(),
		"extent", e.Extent().String())
	return e, nil
}

// Device returns the device the Engine renders with.
func (e *Engine) Device() gpu.Device { return e.dev }

// Config returns the Engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// ImageSet returns the current image set. It is replaced on recreation.
func (e *Engine) ImageSet() *surface.ImageSet { return e.presenter.ImageSet() }

// Extent returns the current image size.
func (e *Engine) Extent() gpu.Extent { return e.presenter.ImageSet().Extent }

// Workspaces returns the workspace pool depth.
func (e *Engine) Workspaces() int { return e.pool.Len() }

// Workspace returns workspace i, for recording into during Render.
func (e *Engine) Workspace(i int) *workspace.Workspace { return e.pool.At(i) }

// Frame returns the number of frames rendered so far.
func (e *Engine) Frame() uint64 { return e.frame }

// RequestRecreate asks for the image set to be rebuilt before the next
// image acquire. It may be called from any goroutine.
func (e *Engine) RequestRecreate() {
	select {
	case e.recreate <- struct{}{}:
	default:
	}
}

// Run drives frames until the window closes, the script ends, ctx is done
// or an error occurs. It then writes pending captures, waits for the device
// to go idle and releases the Engine's resources. Run may be called once.
//
// End of script and window close return nil, including a window closed
// while the engine waits for it to become drawable. Cancellation returns
// ctx.Err().
func (e *Engine) Run(ctx context.Context, app Application) (err error) {
	if app == nil {
		return ErrNoApplication
	}
	if e.ran {
		return ErrEngineDone
	}
	e.ran = true
	defer func() {
		err = e.shutdown(ctx, err)
	}()

	e.notify(app)
	stats, _ := app.(StatsObserver)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, err := e.step(ctx, app)
		if errors.Is(err, io.EOF) {
			Logger().Info("pacer: end of frames", "frames", e.frame)
			return nil
		}
		if errors.Is(err, surface.ErrClosed) {
			Logger().Info("pacer: window closed", "frames", e.frame)
			return nil
		}
		if err != nil {
			return err
		}
		if stats != nil {
			stats.OnFrameStats(st)
		}
	}
}

// step runs one iteration. It returns io.EOF when there are no more frames.
func (e *Engine) step(ctx context.Context, app Application) (FrameStats, error) {
	in, err := e.source.next(ctx)
	if err != nil {
		return FrameStats{}, err
	}
	for _, ev := range in.events {
		app.OnInput(ev)
	}
	app.Update(in.dt)

	st := FrameStats{Frame: e.frame, Dt: in.dt}
	before := e.recreated

	ws, err := e.pool.Lease(ctx)
	if err != nil {
		return st, fmt.Errorf("pacer: frame %d: %w", e.frame, err)
	}
	st.WorkspaceIndex = ws.Index

	select {
	case <-e.recreate:
		if err := e.rebuild(ctx, app, "requested"); err != nil {
			return st, err
		}
	default:
	}

	index, err := e.acquire(ctx, app, ws.Acquired, surface.FrameRequest{Frame: e.frame, Save: in.save})
	if err != nil {
		return st, err
	}
	st.ImageIndex = index

	set := e.presenter.ImageSet()
	params := RenderParams{
		WorkspaceIndex:     ws.Index,
		ImageIndex:         index,
		ImageAcquired:      ws.Acquired,
		ImageDone:          set.Done[index],
		WorkspaceAvailable: ws.Available,
	}
	st.RenderTime, err = timed(func() error { return app.Render(e, params) })
	if err != nil {
		return st, fmt.Errorf("pacer: render frame %d: %w", e.frame, err)
	}

	status, err := e.presenter.Present(ctx, index, params.ImageDone)
	switch {
	case errors.Is(err, gpu.ErrOutOfDate):
		err = e.rebuild(ctx, app, "out of date at present")
	case err != nil:
		err = fmt.Errorf("pacer: present frame %d: %w", e.frame, err)
	case status == gpu.StatusSuboptimal:
		err = e.rebuild(ctx, app, "suboptimal at present")
	}
	if err != nil {
		return st, err
	}

	st.Recreated = e.recreated - before
	Logger().Debug("pacer: frame",
		"frame", st.Frame,
		"dt", st.Dt,
		"workspace", st.WorkspaceIndex,
		"image", st.ImageIndex,
		"render", st.RenderTime)
	e.frame++
	return st, nil
}

// acquire gets the next image, rebuilding the image set and retrying for as
// long as the surface reports it is out of date.
func (e *Engine) acquire(ctx context.Context, app Application, acquired gpu.Semaphore, req surface.FrameRequest) (uint32, error) {
	for {
		index, status, err := e.presenter.Acquire(ctx, acquired, req)
		if errors.Is(err, gpu.ErrOutOfDate) {
			if err := e.rebuild(ctx, app, "out of date at acquire"); err != nil {
				return 0, err
			}
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("pacer: acquire frame %d: %w", e.frame, err)
		}
		if status == gpu.StatusSuboptimal {
			Logger().Warn("pacer: surface is suboptimal", "frame", e.frame)
		}
		return index, nil
	}
}

// rebuild recreates the image set and tells the application about it.
func (e *Engine) rebuild(ctx context.Context, app Application, reason string) error {
	if err := e.presenter.Recreate(ctx); err != nil {
		return fmt.Errorf("pacer: recreate image set (%s): %w", reason, err)
	}
	e.recreated++
	set := e.presenter.ImageSet()
	Logger().Info("pacer: image set recreated",
		"reason", reason,
		"images", set.Len(),
		"extent", set.Extent.String())
	e.notify(app)
	return nil
}

func (e *Engine) notify(app Application) {
	set := e.presenter.ImageSet()
	app.OnSwapchain(e, SwapchainInfo{
		Extent: set.Extent,
		Format: set.Format,
		Images: set.Images,
		Views:  set.Views,
	})
}

// shutdown writes pending captures unless the run failed, waits for the
// device and releases resources. It returns the error Run should report.
func (e *Engine) shutdown(ctx context.Context, runErr error) error {
	// Waits here must complete even after cancellation.
	wctx := context.WithoutCancel(ctx)

	failed := runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded)
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if !failed {
		if err := e.presenter.Drain(wctx); err != nil {
			errs = append(errs, fmt.Errorf("pacer: drain: %w", err))
		}
	}
	if err := e.dev.WaitIdle(wctx); err != nil && !failed {
		errs = append(errs, fmt.Errorf("pacer: wait idle: %w", err))
	}
	e.pool.Destroy()
	e.presenter.Destroy()
	Logger().Info("pacer: shut down", "frames", e.frame, "recreated", e.recreated)
	return errors.Join(errs...)
}
