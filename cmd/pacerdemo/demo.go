// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/gogpu/pacer"
	"github.com/gogpu/pacer/gpu"
)

// demo is the pacerdemo application: it draws a HUD with the frame
// counters on the host and uploads it into the acquired image.
type demo struct {
	info    pacer.SwapchainInfo
	hud     *hud
	t       float64
	frames  uint64
	last    pacer.FrameStats
	input   string
	backend string
}

func (d *demo) OnSwapchain(_ *pacer.Engine, info pacer.SwapchainInfo) {
	d.info = info
	d.hud = newHUD(int(info.Extent.Width), int(info.Extent.Height))
}

func (d *demo) Update(dt float64) { d.t += dt }

func (d *demo) OnInput(ev pacer.InputEvent) { d.input = fmt.Sprint(ev) }

func (d *demo) OnFrameStats(s pacer.FrameStats) { d.last = s }

func (d *demo) Render(e *pacer.Engine, p pacer.RenderParams) error {
	d.hud.draw(d.t, []string{
		fmt.Sprintf("pacer %s  %s", d.backend, d.info.Extent),
		fmt.Sprintf("frame %d  t=%.3fs", e.Frame(), d.t),
		fmt.Sprintf("workspace %d/%d  image %d/%d", p.WorkspaceIndex, e.Workspaces(), p.ImageIndex, len(d.info.Images)),
		fmt.Sprintf("last render %v", d.last.RenderTime),
		d.input,
	})
	pixels, err := d.hud.encode(d.info.Format)
	if err != nil {
		return err
	}

	ws := e.Workspace(p.WorkspaceIndex)
	if err := ws.Commands.Reset(); err != nil {
		return err
	}
	ws.Commands.WriteImage(e.ImageSet().Images[p.ImageIndex], pixels)
	d.frames++
	return e.Device().Submit(gpu.SubmitInfo{
		Label:    "demo frame",
		Wait:     []gpu.Semaphore{p.ImageAcquired},
		Commands: []gpu.CommandBuffer{ws.Commands},
		Signal:   []gpu.Semaphore{p.ImageDone},
		Fence:    p.WorkspaceAvailable,
	})
}
