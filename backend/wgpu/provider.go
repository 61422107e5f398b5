// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// halProvider is implemented by device providers that expose their HAL
// device and queue, such as a gogpu application.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider creates a Device sharing the provider's HAL device and
// queue. The provider keeps ownership of both.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	return fromHal(provider)
}

func fromHal(provider any) (*Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHalAccess
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHalAccess)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHalAccess)
	}
	return New(device, queue)
}
