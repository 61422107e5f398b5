// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package backend keeps a registry of gpu.Device implementations.
//
// Device packages register a factory from their init function:
//
//	func init() {
//	    backend.Register(Name, 10, func() (gpu.Device, error) { return New(), nil }, nil)
//	}
//
// and programs select one by name, or take the best available:
//
//	import _ "github.com/gogpu/pacer/backend/soft"
//
//	dev, err := backend.Open("soft")
//	dev, err := backend.OpenDefault()
//
// Standard priorities:
//   - 100: hardware GPU backends (wgpu over Vulkan)
//   - 10: software backends
package backend
