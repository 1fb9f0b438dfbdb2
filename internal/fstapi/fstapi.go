// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fstapi adapts the external FST ("Fast Signal Trace") decoder
// library to the rest of this module. It owns the foreign decoder
// context, exposes header metadata, and turns the hierarchy and
// value-change iterators into Go-shaped sequences.
//
// The decoder itself (block decompression, value indexing) is out of
// scope here — this package only wraps the C library's public entry
// points, the same way github.com/mattn/go-sqlite3 cgo-binds the SQLite
// amalgamation rather than reimplementing SQLite.
package fstapi

import (
	"errors"
	"fmt"
)

// Handle is the opaque, stable identifier the decoder assigns to a
// declared variable. Unique within one capture.
type Handle uint32

// Code is a stable small diagnostic identifier, kept aligned with the
// original reader's own error numbers so messages stay
// cross-referenceable across reimplementations.
type Code int

const (
	CodeOpenFailed          Code = 7777
	CodeBadTimescale        Code = 7778
	CodeVarWithoutScope     Code = 7779
	CodeMultiRoot           Code = 7780
	CodeScopeNotFound       Code = 7782
	CodeValueLengthMismatch Code = 7789
	CodeBusParseFailed      Code = 7791
	CodeClockPeriodDrift    Code = 7793
	CodeIterationFailed     Code = 7890
)

// Error wraps a diagnostic code with a human-readable message.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fstapi[%d]: %s", e.Code, e.Msg)
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Header carries the per-capture metadata the decoder exposes.
type Header struct {
	StartTime   uint64
	EndTime     uint64
	Date        string
	Version     string
	VarCount    uint64
	Timescale   int8 // base-10 exponent of seconds per tick
	TimeUnit    string
	UnitScale   float64 // seconds per time_unit
	TimeScale   float64 // seconds per tick (absolute duration of 1 increment)
}

// decodeTimescale applies the decade table: every 3 decades of
// magnitude steps down one conventional unit, s -> ms -> us -> ns ->
// ps -> fs. Magnitudes below -15 are fatal.
func decodeTimescale(m int8) (unit string, unitScale, timeScale float64, err error) {
	switch {
	case m >= 0:
		return "s", 1, pow10(m), nil
	case m >= -3:
		return "ms", 1e-3, pow10(m+3) * 1e-3, nil
	case m >= -6:
		return "us", 1e-6, pow10(m+6) * 1e-6, nil
	case m >= -9:
		return "ns", 1e-9, pow10(m+9) * 1e-9, nil
	case m >= -12:
		return "ps", 1e-12, pow10(m+12) * 1e-12, nil
	case m >= -15:
		return "fs", 1e-15, pow10(m+15) * 1e-15, nil
	default:
		return "", 0, 0, newError(CodeBadTimescale, "invalid timescale magnitude %d", m)
	}
}

func pow10(n int8) float64 {
	v := 1.0
	if n >= 0 {
		for i := int8(0); i < n; i++ {
			v *= 10
		}
		return v
	}
	for i := int8(0); i > n; i-- {
		v /= 10
	}
	return v
}

// HierKind discriminates the events yielded by IterateHierarchy.
type HierKind int

const (
	ScopeBegin HierKind = iota
	ScopeEnd
	VarDecl
	AttrBegin
	AttrEnd
)

// HierEvent is one record of the hierarchy stream. Only the fields
// relevant to Kind are populated.
type HierEvent struct {
	Kind HierKind

	ScopeType      uint8
	ScopeName      string
	ScopeComponent string

	VarType    uint8
	VarName    string
	VarLength  uint32
	VarHandle  Handle
	VarIsAlias bool
}

// ValueChangeFunc is invoked once per recorded transition of a selected
// variable, in non-decreasing time order across all selected handles
// jointly. raw is a view valid only for the duration of the call.
type ValueChangeFunc func(time uint64, handle Handle, raw []byte)

var errNotOpen = errors.New("fstapi: adapter not open")

// Decoder is the subset of Adapter's behavior the loader and value
// reader depend on. Defined as an interface so both can be driven by a
// fake decoder in tests without cgo or a real FST file, the same way
// an archive.ArchiveBackend interface decouples callers from a
// concrete storage backend.
type Decoder interface {
	Header() (Header, error)
	IterateHierarchy(visit func(HierEvent) error) error
	IterateValueChanges(handles []Handle, cb ValueChangeFunc) error
}

var _ Decoder = (*Adapter)(nil)
