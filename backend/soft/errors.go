// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import "errors"

// ErrWaitForever is returned when the host waits on an unsignaled fence that
// no queued submission will signal. A real driver would hang; the software
// device reports the deadlock instead.
var ErrWaitForever = errors.New("soft: fence wait can never complete")
