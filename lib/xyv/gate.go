// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"fmt"
	"strings"
)

// Policy decides how the flusher treats transport capacity.
type Policy int

const (
	// PolicyCapacityChecked writes a frame only when the transport
	// reports room for all of it. Otherwise the frame is deferred and
	// nothing is removed from the stores.
	PolicyCapacityChecked Policy = iota

	// PolicyUnconditional writes every frame and removes its contents
	// from the stores whatever the write returns.
	PolicyUnconditional
)

func (p Policy) String() string {
	switch p {
	case PolicyCapacityChecked:
		return "capacity-checked"
	case PolicyUnconditional:
		return "unconditional"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts the names printed by Policy.String.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "capacity-checked", "checked":
		return PolicyCapacityChecked, nil
	case "unconditional":
		return PolicyUnconditional, nil
	}
	return 0, fmt.Errorf("unknown flush policy %q (want capacity-checked or unconditional)", name)
}

// HeartbeatMark decides which flushes restart the heartbeat interval.
type HeartbeatMark int

const (
	// MarkOnAttempt restarts the interval whenever a frame was built,
	// including frames deferred for lack of capacity. A congested link
	// then sees at most one retry per heartbeat interval when no new
	// data arrives.
	MarkOnAttempt HeartbeatMark = iota

	// MarkOnSuccess restarts the interval only after a frame was
	// written. Heartbeats are retried every tick until one gets through.
	MarkOnSuccess
)

func (m HeartbeatMark) String() string {
	switch m {
	case MarkOnAttempt:
		return "attempt"
	case MarkOnSuccess:
		return "success"
	default:
		return fmt.Sprintf("HeartbeatMark(%d)", int(m))
	}
}

// ParseHeartbeatMark accepts "attempt" or "success".
func ParseHeartbeatMark(name string) (HeartbeatMark, error) {
	switch strings.ToLower(name) {
	case "attempt":
		return MarkOnAttempt, nil
	case "success":
		return MarkOnSuccess, nil
	}
	return 0, fmt.Errorf("unknown heartbeat mark %q (want attempt or success)", name)
}

// Outcome is what one tick did.
type Outcome int

const (
	// OutcomeSkipped: nothing new and no heartbeat due.
	OutcomeSkipped Outcome = iota
	// OutcomeSent: a frame was handed to the transport and its contents
	// removed from the stores.
	OutcomeSent
	// OutcomeDeferred: a frame was built but not written. The stores
	// are untouched.
	OutcomeDeferred
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSent:
		return "sent"
	case OutcomeDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// gate sizes frames against the transport and writes them.
type gate struct {
	transport Transport
	policy    Policy
}

// send decides the fate of one encoded frame. The outcome says whether
// the snapshot behind the frame is consumed (OutcomeSent) or must stay
// in the stores (OutcomeDeferred); it is meaningful even when err is
// non-nil. keys is only used to describe an oversized frame.
func (g gate) send(frame []byte, keys int) (Outcome, error) {
	if limit := g.transport.MaxFrameSize(); len(frame) > limit {
		return OutcomeDeferred, &FrameTooLargeError{Size: len(frame), Max: limit, Keys: keys}
	}

	if g.policy == PolicyUnconditional {
		return OutcomeSent, writeFrame(g.transport, frame)
	}

	available, err := g.transport.Available()
	if err != nil {
		return OutcomeDeferred, &WriteError{Op: "available", Size: len(frame), Err: err}
	}
	if len(frame) > available {
		return OutcomeDeferred, nil
	}
	if err := writeFrame(g.transport, frame); err != nil {
		return OutcomeDeferred, err
	}
	return OutcomeSent, nil
}
