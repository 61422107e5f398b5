// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import "time"

// timed runs fn and returns how long it took.
func timed(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}
