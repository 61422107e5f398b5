// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan HAL backend

	"github.com/gogpu/pacer/backend"
	"github.com/gogpu/pacer/gpu"
)

func init() {
	backend.Register(Name, 100, open, available)
}

func open() (gpu.Device, error) {
	d, err := Open()
	if err != nil {
		return nil, err
	}
	return d, nil
}

func available() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}
