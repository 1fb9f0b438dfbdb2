// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package activity

import (
	"strconv"
	"strings"
)

// BusName is the decomposition of a bracketed net name, as produced by
// ParseBusName.
type BusName struct {
	IsBus         bool
	IsRange       bool
	Base          string
	From, To      int
	SubscriptWild bool
}

// ParseBusName parses name as `base<open>subscript<close>`, honoring
// escape as the character that protects a literal open/close from
// ending the base name (so a pin named `a\[0\]` with no real bus
// subscript parses as a plain, non-bus name). The subscript is either
// a single index (`base[3]`), a range (`base[7:0]` or `base[0:7]`), or
// a wildcard (`base[*]`).
//
// Bus decomposition is on the hot path of every multi-bit variable, so
// it is implemented in full here rather than stubbed.
func ParseBusName(name string, open, close, escape byte) (BusName, error) {
	openIdx := -1
	for i := 0; i < len(name); i++ {
		if name[i] == escape {
			i++ // skip escaped char
			continue
		}
		if name[i] == open {
			openIdx = i
		}
	}
	if openIdx < 0 {
		return BusName{Base: name}, nil
	}
	closeIdx := strings.IndexByte(name[openIdx:], close)
	if closeIdx < 0 || openIdx+closeIdx != len(name)-1 {
		return BusName{}, errBusParse(name)
	}
	closeIdx += openIdx

	base := unescape(name[:openIdx], open, close, escape)
	subscript := name[openIdx+1 : closeIdx]

	if subscript == "*" {
		return BusName{IsBus: true, Base: base, SubscriptWild: true}, nil
	}

	if idx := strings.IndexByte(subscript, ':'); idx >= 0 {
		from, err1 := strconv.Atoi(strings.TrimSpace(subscript[:idx]))
		to, err2 := strconv.Atoi(strings.TrimSpace(subscript[idx+1:]))
		if err1 != nil || err2 != nil {
			return BusName{}, errBusParse(name)
		}
		return BusName{IsBus: true, IsRange: true, Base: base, From: from, To: to}, nil
	}

	bit, err := strconv.Atoi(strings.TrimSpace(subscript))
	if err != nil {
		return BusName{}, errBusParse(name)
	}
	return BusName{IsBus: true, Base: base, From: bit, To: bit}, nil
}

func unescape(s string, open, close, escape byte) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == escape && i+1 < len(s) && (s[i+1] == open || s[i+1] == close || s[i+1] == escape) {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

type busParseError struct{ name string }

func (e *busParseError) Error() string {
	return "fstapi[7791]: problem parsing bus " + e.name
}

func errBusParse(name string) error { return &busParseError{name: name} }
