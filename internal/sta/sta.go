// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sta declares the interfaces this module consumes from the
// external static-timing-analysis design database: pin name
// resolution, clock enumeration, and the power-estimator sink that
// ultimately receives every (pin, activity, duty) triple.
//
// These collaborators are owned by the external STA process, not this
// module. Reference provides a minimal in-memory implementation so
// this module is independently testable and usable by callers that
// have not wired a real STA process; production callers supply their
// own Network/Sdc/Power, matching how an archive.ArchiveBackend
// interface is implemented by distinct concrete backends and swapped
// at the call site.
package sta

import "time"

// Pin is an opaque handle into the design network, as returned by
// Network.FindPin.
type Pin struct {
	name string
}

// Name returns the pin's resolved STA-namespace name.
func (p Pin) Name() string { return p.name }

// Clock is a defined SDC clock.
type Clock interface {
	Name() string
	Period() time.Duration
}

// Network resolves string pin names (already translated to the STA
// namespace) to opaque pin handles.
type Network interface {
	FindPin(name string) (Pin, bool)
}

// Sdc exposes clock definitions and leaf-pin-clock membership.
type Sdc interface {
	Clocks() []Clock
	IsLeafPinClock(p Pin) bool
	FindLeafPinClocks(p Pin) []Clock
}

// Origin tags where an activity annotation came from.
type Origin int

const (
	OriginFST Origin = iota
)

// Power is the external power-estimator sink. SetUserActivity is
// expected to be idempotent when called twice with the same pin and
// values — Reference satisfies this by simply overwriting the stored
// annotation.
type Power interface {
	SetUserActivity(pin Pin, activity, duty float64, origin Origin)
}
