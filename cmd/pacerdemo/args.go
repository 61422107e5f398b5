// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// errHelp is returned by parseArgs for --help.
var errHelp = errors.New("help requested")

type options struct {
	headless   bool
	width      uint32
	height     uint32
	workspaces int
	backend    string
	debug      bool
	journal    string
	script     string
	vsync      bool
	timeout    time.Duration
}

func defaultArgs() options {
	return options{width: 1280, height: 720, workspaces: 2, vsync: true}
}

// parseArgs reads the command line. Flags that take several values, like
// --drawing-size W H, are why this does not use the flag package.
func parseArgs(args []string) (options, error) {
	o := defaultArgs()
	for i := 0; i < len(args); i++ {
		arg := args[i]
		need := func(n int, what string) ([]string, error) {
			if i+n >= len(args) {
				return nil, fmt.Errorf("%s requires %s", arg, what)
			}
			vals := args[i+1 : i+1+n]
			i += n
			return vals, nil
		}
		switch arg {
		case "--help", "-h":
			return o, errHelp
		case "--debug":
			o.debug = true
		case "--no-debug":
			o.debug = false
		case "--headless":
			o.headless = true
		case "--no-vsync":
			o.vsync = false
		case "--drawing-size":
			vals, err := need(2, "two parameters (width and height)")
			if err != nil {
				return o, err
			}
			if o.width, err = dimension("width", vals[0]); err != nil {
				return o, err
			}
			if o.height, err = dimension("height", vals[1]); err != nil {
				return o, err
			}
		case "--workspaces":
			vals, err := need(1, "a count")
			if err != nil {
				return o, err
			}
			n, err := dimension("workspace count", vals[0])
			if err != nil {
				return o, err
			}
			o.workspaces = int(n)
		case "--backend":
			vals, err := need(1, "a backend name (soft|wgpu)")
			if err != nil {
				return o, err
			}
			o.backend = vals[0]
		case "--journal":
			vals, err := need(1, "a database path")
			if err != nil {
				return o, err
			}
			o.journal = vals[0]
		case "--script":
			vals, err := need(1, "a script file")
			if err != nil {
				return o, err
			}
			o.script = vals[0]
		case "--acquire-timeout":
			vals, err := need(1, "a duration")
			if err != nil {
				return o, err
			}
			d, err := time.ParseDuration(vals[0])
			if err != nil || d < 0 {
				return o, fmt.Errorf("--acquire-timeout: invalid duration %q", vals[0])
			}
			o.timeout = d
		default:
			return o, fmt.Errorf("unrecognized argument %q", arg)
		}
	}
	return o, nil
}

// dimension parses a positive decimal integer made of digits only.
func dimension(what, val string) (uint32, error) {
	if val == "" {
		return 0, fmt.Errorf("%s should match [0-9]+, got %q", what, val)
	}
	for _, c := range val {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%s should match [0-9]+, got %q", what, val)
		}
	}
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s %q is out of range", what, val)
	}
	if n == 0 {
		return 0, fmt.Errorf("%s must be positive", what)
	}
	return uint32(n), nil
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: pacerdemo [options]

  --debug, --no-debug      turn debug logging on or off
  --drawing-size <w> <h>   size of the surface to draw to (default 1280 720)
  --headless               no window; read AVAILABLE lines from stdin
  --script <file>          read the headless script from file instead of stdin
  --workspaces <n>         frames in flight (default 2)
  --backend <soft|wgpu>    device backend (default: best available)
  --journal <path.db>      record saved frames in a SQLite journal
  --acquire-timeout <dur>  bound each wait for a workspace or image
  --no-vsync               do not wait for vertical blank when windowed
`)
}
