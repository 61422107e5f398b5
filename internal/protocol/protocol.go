// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package protocol reads the line-oriented script that drives headless runs.
//
// Each line advances one frame:
//
//	AVAILABLE <dt> [<file>.ppm]
//
// dt is a non-negative number of seconds, passed to the application exactly
// as written. The optional file receives that frame's pixels. Malformed
// lines are logged and skipped; they never advance a frame.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Verb is the only command the protocol knows.
const Verb = "AVAILABLE"

// MaxLine is the longest line accepted, in bytes. Longer lines are rejected.
const MaxLine = 64 << 10

// Errors describing why a line was rejected. They are logged, not returned.
var (
	ErrUnknownVerb   = errors.New("protocol: unknown command")
	ErrMissingDelta  = errors.New("protocol: missing dt")
	ErrBadDelta      = errors.New("protocol: dt is not a finite number")
	ErrNegativeDelta = errors.New("protocol: dt must be >= 0")
	ErrBadFilename   = errors.New("protocol: output file must end in .ppm")
	ErrTrailing      = errors.New("protocol: trailing tokens after filename")
	ErrLineTooLong   = errors.New("protocol: line too long")
)

// Command is one accepted frame-advance line.
type Command struct {
	Line int
	Dt   float64
	Save string // empty when no capture was requested
}

// Reader yields commands from a script.
type Reader struct {
	br     *bufio.Reader
	line   int
	log    func() *slog.Logger
	reject int
}

// NewReader returns a Reader over r. Rejected lines are reported to the
// logger log returns at the time of rejection; nil discards them.
func NewReader(r io.Reader, log func() *slog.Logger) *Reader {
	if log == nil {
		discard := slog.New(slog.DiscardHandler)
		log = func() *slog.Logger { return discard }
	}
	return &Reader{br: bufio.NewReader(r), log: log}
}

// Next blocks until the next well-formed line and returns it. It returns
// io.EOF at end of input.
func (r *Reader) Next() (Command, error) {
	for {
		raw, long, err := r.readLine()
		if errors.Is(err, io.EOF) {
			return Command{}, io.EOF
		}
		if err != nil {
			return Command{}, fmt.Errorf("protocol: read line %d: %w", r.line+1, err)
		}
		r.line++
		if long {
			r.reject++
			r.log().Warn("protocol: ignoring line", "line", r.line, "err", ErrLineTooLong, "max", MaxLine)
			continue
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			continue
		}
		cmd, err := Parse(text)
		if err != nil {
			r.reject++
			r.log().Warn("protocol: ignoring line", "line", r.line, "text", text, "err", err)
			continue
		}
		cmd.Line = r.line
		return cmd, nil
	}
}

// readLine returns the next line without its terminator. Lines over MaxLine
// are consumed whole and reported with long set and no content.
func (r *Reader) readLine() (line []byte, long bool, err error) {
	for {
		chunk, more, err := r.br.ReadLine()
		if err != nil {
			if len(line) > 0 || long {
				return line, long, nil
			}
			return nil, false, err
		}
		if !long {
			if len(line)+len(chunk) > MaxLine {
				long, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !more {
			return line, long, nil
		}
	}
}

// Rejected returns how many lines have been skipped so far.
func (r *Reader) Rejected() int { return r.reject }

// Parse parses a single line.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != Verb {
		verb := ""
		if len(fields) > 0 {
			verb = fields[0]
		}
		return Command{}, fmt.Errorf("%w %q", ErrUnknownVerb, verb)
	}
	if len(fields) < 2 {
		return Command{}, ErrMissingDelta
	}

	dt, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return Command{}, fmt.Errorf("%w: %q", ErrBadDelta, fields[1])
	}
	if dt < 0 {
		return Command{}, fmt.Errorf("%w: %v", ErrNegativeDelta, dt)
	}

	cmd := Command{Dt: dt}
	if len(fields) >= 3 {
		name := fields[2]
		if !strings.HasSuffix(name, ".ppm") {
			return Command{}, fmt.Errorf("%w: %q", ErrBadFilename, name)
		}
		cmd.Save = name
	}
	if len(fields) > 3 {
		return Command{}, fmt.Errorf("%w: %q", ErrTrailing, strings.Join(fields[3:], " "))
	}
	return cmd, nil
}
