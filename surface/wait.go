// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"context"
	"errors"
	"time"

	"github.com/gogpu/pacer/gpu"
)

// ErrClosed is returned by a Surface whose window has been closed. The
// engine ends the run normally when it sees it.
var ErrClosed = errors.New("surface: closed")

// waitSlice bounds each blocking step of WaitUntil so cancellation is seen.
const waitSlice = 10 * time.Millisecond

// WaitUntil blocks until ready reports true or fails. Between checks it calls
// wait with the longest time that step may block. timeout <= 0 waits without
// limit; otherwise gpu.ErrTimeout is returned once it has passed. When ctx
// is done the context's cause is returned.
func WaitUntil(ctx context.Context, timeout time.Duration, ready func() (bool, error), wait func(time.Duration)) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		ok, err := ready()
		if err != nil || ok {
			return err
		}
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		d := waitSlice
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return gpu.ErrTimeout
			}
			d = min(d, left)
		}
		wait(d)
	}
}
