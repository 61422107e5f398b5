// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pacer

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.MaxDelta != 100*time.Millisecond {
		t.Errorf("MaxDelta = %v, want 100ms", cfg.MaxDelta)
	}
	if cfg.Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format = %v, want BGRA8Unorm", cfg.Format)
	}
	if cfg.AcquireTimeout != 0 {
		t.Errorf("AcquireTimeout = %v, want unbounded", cfg.AcquireTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"windowed zero size", func(c *Config) { c.Width, c.Height = 0, 0 }, true},
		{"headless zero size", func(c *Config) { c.Headless = true; c.Height = 0 }, false},
		{"no workspaces", func(c *Config) { c.Workspaces = 0 }, false},
		{"one workspace", func(c *Config) { c.Workspaces = 1 }, true},
		{"negative delta", func(c *Config) { c.MaxDelta = -1 }, false},
		{"negative timeout", func(c *Config) { c.AcquireTimeout = -time.Second }, false},
		{"headless rgba", func(c *Config) { c.Headless = true; c.Format = gputypes.TextureFormatRGBA8Unorm }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestModsString(t *testing.T) {
	tests := []struct {
		m    Mods
		want string
	}{
		{0, ""},
		{ModShift, "shift"},
		{ModControl | ModAlt, "ctrl+alt"},
		{ModShift | ModControl | ModAlt | ModSuper, "shift+ctrl+alt+super"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("Mods(%d).String() = %q, want %q", tt.m, got, tt.want)
		}
	}
}
