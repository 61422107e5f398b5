// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package workspace implements the pool of per-frame resource bundles that
// bounds how many frames the host may have in flight on the GPU.
//
// A Workspace is leased round-robin. Lease blocks until the GPU has finished
// everything submitted with the slot's previous use, then resets the slot's
// Available fence so the caller can attach it to this frame's submission.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/pacer/gpu"
)

// ErrEmptyPool is returned by New when asked for fewer than one workspace.
var ErrEmptyPool = errors.New("workspace: pool depth must be at least 1")

// Workspace is one frame's worth of reusable host/GPU resources.
type Workspace struct {
	// Index is the position of the workspace in its pool.
	Index int

	// Commands is the command buffer the application records into.
	Commands gpu.CommandBuffer

	// Available is signaled when the GPU has finished the work submitted
	// for this workspace. Created signaled so the first lease never blocks.
	Available gpu.Fence

	// Acquired orders rendering after image acquisition.
	Acquired gpu.Semaphore
}

// Pool is a fixed-size ring of workspaces.
//
// Pool is not safe for concurrent use; it belongs to the host thread.
type Pool struct {
	dev     gpu.Device
	slots   []*Workspace
	cursor  int
	timeout time.Duration
}

// Option configures a Pool.
type Option func(*Pool)

// WithTimeout bounds how long Lease waits for a slot. Zero waits until the
// slot is free or the context is done.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.timeout = d
	}
}

// New creates n workspaces on dev.
func New(dev gpu.Device, n int, opts ...Option) (*Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrEmptyPool, n)
	}
	p := &Pool{dev: dev}
	for _, opt := range opts {
		opt(p)
	}
	for i := 0; i < n; i++ {
		ws, err := p.create(i)
		if err != nil {
			p.Destroy()
			return nil, err
		}
		p.slots = append(p.slots, ws)
	}
	return p, nil
}

func (p *Pool) create(i int) (*Workspace, error) {
	ws := &Workspace{Index: i}
	var err error
	if ws.Commands, err = p.dev.CreateCommandBuffer(fmt.Sprintf("workspace[%d].commands", i)); err != nil {
		return nil, fmt.Errorf("workspace %d: command buffer: %w", i, err)
	}
	if ws.Available, err = p.dev.CreateFence(fmt.Sprintf("workspace[%d].available", i), true); err != nil {
		p.dev.FreeCommandBuffer(ws.Commands)
		return nil, fmt.Errorf("workspace %d: fence: %w", i, err)
	}
	if ws.Acquired, err = p.dev.CreateSemaphore(fmt.Sprintf("workspace[%d].acquired", i)); err != nil {
		p.dev.DestroyFence(ws.Available)
		p.dev.FreeCommandBuffer(ws.Commands)
		return nil, fmt.Errorf("workspace %d: semaphore: %w", i, err)
	}
	return ws, nil
}

// Lease returns the next workspace in ring order once the GPU is done with
// its previous use. Its Available fence is reset before return.
func (p *Pool) Lease(ctx context.Context) (*Workspace, error) {
	ws := p.slots[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.slots)

	if err := p.dev.WaitFence(ctx, ws.Available, p.timeout); err != nil {
		return nil, fmt.Errorf("lease workspace %d: %w", ws.Index, err)
	}
	if err := p.dev.ResetFence(ws.Available); err != nil {
		return nil, fmt.Errorf("lease workspace %d: reset: %w", ws.Index, err)
	}
	return ws, nil
}

// Len returns the pool depth.
func (p *Pool) Len() int { return len(p.slots) }

// At returns workspace i.
func (p *Pool) At(i int) *Workspace { return p.slots[i] }

// InFlight counts the workspaces that are leased but not yet available.
func (p *Pool) InFlight() int {
	n := 0
	for _, ws := range p.slots {
		if ok, err := p.dev.FenceSignaled(ws.Available); err == nil && !ok {
			n++
		}
	}
	return n
}

// Destroy releases every workspace. The caller must ensure the device is
// idle first.
func (p *Pool) Destroy() {
	for _, ws := range p.slots {
		p.dev.DestroySemaphore(ws.Acquired)
		p.dev.DestroyFence(ws.Available)
		p.dev.FreeCommandBuffer(ws.Commands)
	}
	p.slots = nil
}
