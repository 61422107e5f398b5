// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pacer schedules frames on a GPU and presents them, either to a
// window or to a scripted headless harness that writes byte-exact PPM files.
//
// # Overview
//
// The Engine runs one iteration per frame:
//
//	collect input -> dt -> Update -> lease workspace -> acquire image
//	    -> Render -> present (or copy for saving) -> loop
//
// It decides when GPU work may start, when per-frame resources may be reused
// and when frames are observed complete. What gets drawn is up to the
// Application, which receives only the synchronization handles it needs in
// RenderParams.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/pacer"
//	    "github.com/gogpu/pacer/backend/soft"
//	)
//
//	dev := soft.New()
//	defer dev.Destroy()
//
//	cfg := pacer.DefaultConfig()
//	cfg.Headless = true
//	e, err := pacer.New(dev, cfg, pacer.WithScript(os.Stdin))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = e.Run(ctx, app)
//
// # Headless protocol
//
// In headless mode each line of the script advances one frame:
//
//	AVAILABLE <dt> [<file>.ppm]
//
// dt reaches Update exactly as written. A requested file is written when its
// image slot is reused, or at shutdown, whichever comes first.
//
// # Synchronization contract
//
// Render must record into RenderParams' workspace, submit work that waits on
// ImageAcquired, signals ImageDone and signals the WorkspaceAvailable fence.
// The Engine never inspects what is recorded.
//
// # Logging
//
// pacer produces no log output by default. Call SetLogger to enable it.
package pacer
