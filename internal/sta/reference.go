// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package sta

import "time"

// ReferenceClock is a plain (name, period) SDC clock.
type ReferenceClock struct {
	name   string
	period time.Duration
}

func NewClock(name string, period time.Duration) ReferenceClock {
	return ReferenceClock{name: name, period: period}
}

func (c ReferenceClock) Name() string          { return c.name }
func (c ReferenceClock) Period() time.Duration { return c.period }

// activityRecord is what Reference.Power remembers per annotated pin.
type activityRecord struct {
	Activity, Duty float64
	Origin         Origin
}

// Reference is a minimal in-memory Network+Sdc+Power implementation,
// sufficient for tests and for standalone use without a real STA
// process attached.
type Reference struct {
	pins        map[string]Pin
	clocks      []Clock
	leafClocked map[string][]Clock // pin name -> clocks it is a leaf pin of
	annotated   map[string]activityRecord
}

// NewReference returns an empty reference design database.
func NewReference() *Reference {
	return &Reference{
		pins:        make(map[string]Pin),
		leafClocked: make(map[string][]Clock),
		annotated:   make(map[string]activityRecord),
	}
}

// AddPin registers name as a resolvable pin.
func (r *Reference) AddPin(name string) Pin {
	p := Pin{name: name}
	r.pins[name] = p
	return p
}

// AddClock registers a clock definition.
func (r *Reference) AddClock(c Clock) {
	r.clocks = append(r.clocks, c)
}

// MarkLeafPinClock records that pin is a leaf pin of clock.
func (r *Reference) MarkLeafPinClock(pin Pin, clock Clock) {
	r.leafClocked[pin.name] = append(r.leafClocked[pin.name], clock)
}

func (r *Reference) FindPin(name string) (Pin, bool) {
	p, ok := r.pins[name]
	return p, ok
}

func (r *Reference) Clocks() []Clock { return r.clocks }

func (r *Reference) IsLeafPinClock(p Pin) bool {
	return len(r.leafClocked[p.name]) > 0
}

func (r *Reference) FindLeafPinClocks(p Pin) []Clock {
	return r.leafClocked[p.name]
}

func (r *Reference) SetUserActivity(pin Pin, activity, duty float64, origin Origin) {
	r.annotated[pin.name] = activityRecord{Activity: activity, Duty: duty, Origin: origin}
}

// Annotated reports how many distinct pins have been annotated so far.
func (r *Reference) Annotated() int {
	return len(r.annotated)
}

// Lookup returns the last annotation recorded for pin, for assertions
// in tests.
func (r *Reference) Lookup(pinName string) (activity, duty float64, ok bool) {
	rec, ok := r.annotated[pinName]
	return rec.Activity, rec.Duty, ok
}
