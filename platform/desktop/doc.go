// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package desktop opens a GLFW window that can drive a pacer.Engine in
// windowed mode.
//
// The window implements pacer.Window. Its swapchain images are ordinary
// device images; presenting one copies it to a host buffer, uploads it to
// an OpenGL 3.3 texture and blits that to the default framebuffer. This
// keeps the frame loop independent of the device backend at the cost of a
// readback per frame.
//
// GLFW requires the main OS thread. Call Open and Engine.Run from the main
// goroutine after runtime.LockOSThread.
package desktop
