// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestRunHeadless(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "frame.ppm")
	script := filepath.Join(dir, "script.txt")
	body := "AVAILABLE 0.5\nAVAILABLE 0.25 " + out + "\nAVAILABLE 0.1\n"
	if err := os.WriteFile(script, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	code := run([]string{
		"--headless", "--drawing-size", "32", "16", "--backend", "soft",
		"--script", script, "--journal", filepath.Join(dir, "journal.db"),
	}, os.Stdin, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("capture not written: %v", err)
	}
	header := "P6\n32 16\n255\n"
	if !strings.HasPrefix(string(got), header) || len(got) != len(header)+32*16*3 {
		t.Errorf("capture is %d bytes with header %q", len(got), got[:min(len(got), len(header))])
	}
	if !strings.Contains(stderr.String(), "saved frame") {
		t.Errorf("no save logged:\n%s", stderr.String())
	}
}

func TestRunBadArgs(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"--drawing-size", "x", "1"}, os.Stdin, &stderr); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "usage:") {
		t.Error("usage not printed")
	}
}

func TestRunUnknownBackend(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"--headless", "--backend", "nope", "--script", os.DevNull}, os.Stdin, &stderr)
	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
}

func TestHUDEncode(t *testing.T) {
	h := newHUD(2, 1)
	h.canvas.Pix = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	got, err := h.encode(gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{3, 2, 1, 4, 7, 6, 5, 8}) {
		t.Errorf("BGRA = %v", got)
	}
	got, _ = h.encode(gputypes.TextureFormatRGBA8Unorm)
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("RGBA = %v", got)
	}
	if _, err := h.encode(gputypes.TextureFormatR8Unorm); err == nil {
		t.Error("R8 accepted")
	}
}

func TestHUDDrawsText(t *testing.T) {
	h := newHUD(64, 24)
	h.draw(0, nil)
	bg := append([]byte(nil), h.canvas.Pix...)
	h.draw(0, []string{"hi"})
	if bytes.Equal(bg, h.canvas.Pix) {
		t.Error("text left the canvas unchanged")
	}
}
