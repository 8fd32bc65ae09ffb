// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package enginetime defines the logical time domain the scheduler and
// time-series layer are built on: a monotonically advancing instant with
// total ordering and closed duration arithmetic.
package enginetime

import (
	"fmt"
	"time"
)

// Time is a monotonically advancing logical instant with total ordering.
//
// It is distinct from wall-clock time: a PullSource node may map Time onto
// wall-clock ticks, but compute/sink nodes only ever observe the logical
// value. Two Times compare equal iff they represent the same instant.
type Time int64

const (
	// MinTime is the earliest representable instant. Nothing observable
	// happens before it; it is the zero value of Time.
	MinTime Time = 0

	// MaxTime is the sentinel meaning "never scheduled". The scheduler
	// returns it from NextScheduledEvaluationTime when its heap is empty,
	// and the tick loop treats it as "nothing left to do" in the absence
	// of push sources.
	MaxTime Time = 1<<63 - 1
)

// Duration is closed over Time: Time + Duration -> Time, Time - Time ->
// Duration.
type Duration int64

// Add returns t advanced by d. Adding to MaxTime saturates at MaxTime so
// that sentinel arithmetic never wraps into a spuriously-schedulable time.
func (t Time) Add(d Duration) Time {
	if t == MaxTime {
		return MaxTime
	}
	sum := t + Time(d)
	if d > 0 && sum < t {
		return MaxTime
	}
	return sum
}

// Sub returns the Duration from u to t (t - u).
func (t Time) Sub(u Time) Duration {
	return Duration(t - u)
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool { return t < u }

// After reports whether t is strictly later than u.
func (t Time) After(u Time) bool { return t > u }

// IsMax reports whether t is the MaxTime sentinel.
func (t Time) IsMax() bool { return t == MaxTime }

// FromWallClock maps a wall-clock instant onto Time using Unix nanoseconds.
// Intended for PullSource nodes bridging real time into the graph; the
// scheduler itself never calls this.
func FromWallClock(wc time.Time) Time {
	return Time(wc.UnixNano())
}

func (t Time) String() string {
	switch t {
	case MinTime:
		return "MIN_DT"
	case MaxTime:
		return "MAX_DT"
	default:
		return fmt.Sprintf("t%d", int64(t))
	}
}
