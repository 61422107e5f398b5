// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/pacer/backend/soft"
	"github.com/gogpu/pacer/gpu"
)

func newPool(t *testing.T, n int, opts ...soft.Option) (*soft.Device, *Pool) {
	t.Helper()
	dev := soft.New(opts...)
	p, err := New(dev, n)
	if err != nil {
		t.Fatalf("New(%d) error = %v", n, err)
	}
	t.Cleanup(func() {
		_ = dev.WaitIdle(context.Background())
		p.Destroy()
		dev.Destroy()
	})
	return dev, p
}

func TestNewRejectsEmptyPool(t *testing.T) {
	dev := soft.New()
	defer dev.Destroy()
	if _, err := New(dev, 0); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("New(0) = %v, want ErrEmptyPool", err)
	}
}

func TestLeaseRoundRobin(t *testing.T) {
	dev, p := newPool(t, 3)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		ws, err := p.Lease(ctx)
		if err != nil {
			t.Fatalf("Lease() #%d error = %v", i, err)
		}
		if ws.Index != i%3 {
			t.Errorf("Lease() #%d index = %d, want %d", i, ws.Index, i%3)
		}
		if err := dev.Submit(gpu.SubmitInfo{Label: "frame", Fence: ws.Available}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLeaseResetsAvailable(t *testing.T) {
	dev, p := newPool(t, 2)
	ws, err := p.Lease(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ok, err := dev.FenceSignaled(ws.Available)
	if err != nil || ok {
		t.Fatalf("Available after Lease() = %v, %v; want unsignaled", ok, err)
	}
	if got := p.InFlight(); got != 1 {
		t.Errorf("InFlight() = %d, want 1", got)
	}
}

func TestInFlightBounded(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		dev, p := newPool(t, n, soft.WithLatency(2*time.Millisecond))
		ctx := context.Background()
		for frame := 0; frame < 4*n+3; frame++ {
			ws, err := p.Lease(ctx)
			if err != nil {
				t.Fatalf("N=%d: Lease() error = %v", n, err)
			}
			if got := p.InFlight(); got > n {
				t.Fatalf("N=%d frame %d: InFlight() = %d", n, frame, got)
			}
			if err := dev.Submit(gpu.SubmitInfo{Label: "frame", Fence: ws.Available}); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestLeaseHonorsContext(t *testing.T) {
	dev, p := newPool(t, 1, soft.WithLatency(100*time.Millisecond))
	ws, err := p.Lease(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Submit(gpu.SubmitInfo{Fence: ws.Available}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if _, err := p.Lease(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Lease() = %v, want DeadlineExceeded", err)
	}
}
