// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"github.com/gogpu/pacer/backend"
	"github.com/gogpu/pacer/gpu"
)

func init() {
	backend.Register(Name, 10, func() (gpu.Device, error) { return New(), nil }, nil)
}
