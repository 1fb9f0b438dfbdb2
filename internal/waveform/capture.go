// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package waveform holds the in-memory description of one loaded FST
// capture: header metadata, the flattened variable list selected by
// the hierarchy loader, and a per-variable value cache that is
// populated and evicted many times over one run.
//
// Capture has exactly one writer (the ingest pipeline) and is never
// read concurrently with that writer, so it does no locking of its
// own — the same single-writer assumption applied to anything scoped
// to one request/run.
package waveform

import "github.com/sta-tools/fst-activity/internal/fstapi"

// Value is one recorded change: the tick it occurred at, and the
// bit string at that tick (normalized: LSB-first, uppercase,
// characters drawn from {'0','1','X','Z'}).
type Value struct {
	Time uint64
	Bits string
}

// Variable mirrors hierarchy.Variable plus the decoder handle needed
// to key the value cache.
type Variable struct {
	Type      uint8
	Name      string
	BitLength uint32
	Handle    fstapi.Handle
	IsAlias   bool
}

// Capture is the passive aggregate populated by the loader and value
// reader, and consumed by the activity computer.
type Capture struct {
	Header    fstapi.Header
	variables []Variable
	values    map[fstapi.Handle][]Value
}

// New returns an empty Capture.
func New() *Capture {
	return &Capture{values: make(map[fstapi.Handle][]Value)}
}

// SetHeader records header metadata. Intended to be called once, early.
func (c *Capture) SetHeader(h fstapi.Header) {
	c.Header = h
}

// SetVariables moves the flattened variable list into the Capture.
// Intended to be called once; the list is read-only afterward.
func (c *Capture) SetVariables(vars []Variable) {
	c.variables = vars
}

// Variables returns the flattened, read-only variable list.
func (c *Capture) Variables() []Variable {
	return c.variables
}

// AppendValue appends v to handle's value sequence. Implicitly
// allocates an empty sequence on first touch.
func (c *Capture) AppendValue(handle fstapi.Handle, v Value) {
	c.values[handle] = append(c.values[handle], v)
}

// ValuesFor returns the (possibly empty) value sequence cached for
// handle, in non-decreasing time order.
func (c *Capture) ValuesFor(handle fstapi.Handle) []Value {
	return c.values[handle]
}

// ClearValues drops the entire value cache. Called after each chunk
// has been processed so resident memory stays bounded by one chunk's
// worth of value streams, never the whole capture's.
func (c *Capture) ClearValues() {
	c.values = make(map[fstapi.Handle][]Value)
}
