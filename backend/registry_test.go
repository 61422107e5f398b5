// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gogpu/pacer/backend"
	"github.com/gogpu/pacer/backend/soft"
	"github.com/gogpu/pacer/gpu"
)

func softFactory() (gpu.Device, error) { return soft.New(), nil }

func TestRegistryOrder(t *testing.T) {
	r := backend.NewRegistry()
	r.Register("low", 10, softFactory, nil)
	r.Register("high", 100, softFactory, nil)
	r.Register("off", 200, softFactory, func() bool { return false })

	if got, want := r.List(), []string{"off", "high", "low"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	if got, want := r.Available(), []string{"high", "low"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
}

func TestRegistryOpen(t *testing.T) {
	r := backend.NewRegistry()
	r.Register("soft", 10, softFactory, nil)
	r.Register("off", 100, softFactory, func() bool { return false })

	dev, err := r.Open("soft")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	dev.Destroy()

	var nf *backend.NotFoundError
	if _, err := r.Open("nope"); !errors.As(err, &nf) || nf.Name != "nope" {
		t.Errorf("Open(nope) = %v, want NotFoundError", err)
	}
	var ua *backend.UnavailableError
	if _, err := r.Open("off"); !errors.As(err, &ua) {
		t.Errorf("Open(off) = %v, want UnavailableError", err)
	}
}

func TestOpenDefaultFallsBack(t *testing.T) {
	r := backend.NewRegistry()
	if _, err := r.OpenDefault(); !errors.Is(err, backend.ErrNoBackendAvailable) {
		t.Fatalf("OpenDefault() on empty registry = %v", err)
	}

	broken := errors.New("no adapter")
	r.Register("gpu", 100, func() (gpu.Device, error) { return nil, broken }, nil)
	r.Register("soft", 10, softFactory, nil)
	dev, err := r.OpenDefault()
	if err != nil {
		t.Fatalf("OpenDefault() error = %v", err)
	}
	defer dev.Destroy()
	if dev.Name() != soft.Name {
		t.Errorf("OpenDefault() picked %q, want %q", dev.Name(), soft.Name)
	}

	r.Unregister("soft")
	if _, err := r.OpenDefault(); !errors.Is(err, broken) {
		t.Errorf("OpenDefault() = %v, want wrapped %v", err, broken)
	}
}

func TestSoftRegistered(t *testing.T) {
	dev, err := backend.Open(soft.Name)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", soft.Name, err)
	}
	dev.Destroy()
}
