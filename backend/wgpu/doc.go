// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu provides a gpu.Device on top of the gogpu/wgpu HAL.
//
// The device drives a single hal.Queue. Every submission signals one
// timeline fence with an increasing value; a gpu.Fence is a host-side
// handle onto a value of that timeline, which gives binary fence semantics
// on top of hal fences without extra driver objects.
//
// Semaphores are validated on the host. The queue executes in submission
// order, so a semaphore signaled by an earlier submission is always
// satisfied by the time a later one runs; the device only has to reject
// waits nobody signaled and double signals.
//
// Command buffers record operations and are encoded into hal command
// buffers at Submit time:
//
//   - ClearImage becomes a render pass with LoadOpClear.
//   - WriteImage becomes a queue.WriteTexture between encoded segments.
//   - CopyImageToBuffer becomes a CopyTextureToBuffer into a buffer whose
//     rows are padded to 256 bytes; ReadBuffer strips the padding.
//
// Open bootstraps its own Vulkan device. New and FromProvider share a
// device created elsewhere, for example by a gogpu application.
package wgpu
