// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package activity

import "strings"

// staBracketChars are the characters that are structurally significant
// in the STA bus-subscript namespace. '/' is deliberately excluded: it
// is the hierarchy separator in both the Verilog and STA namespaces
// and must pass through untouched.
const staBracketChars = "[]"

// NetVerilogToSta translates a net name from the Verilog HDL namespace
// to the STA namespace, preserving escape conventions, segment by
// segment (segments are '/'-separated, the hierarchy separator shared
// by both namespaces). Within each segment, a Verilog escaped
// identifier (`\foo[3] `, backslash-led, space-terminated) has its
// delimiters stripped; any literal '[' or ']' surviving that — not
// already backslash-escaped — is escaped so it cannot be mistaken for
// a bus subscript once the name reaches the STA namespace.
//
// Every single-bit and bus pin name passes through this before
// lookup, so it is implemented in full rather than stubbed.
func NetVerilogToSta(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = translateSegment(seg)
	}
	return strings.Join(segments, "/")
}

func translateSegment(seg string) string {
	if strings.HasPrefix(seg, "\\") && strings.HasSuffix(seg, " ") {
		seg = strings.TrimSuffix(strings.TrimPrefix(seg, "\\"), " ")
	}

	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c == '\\' && i+1 < len(seg) {
			b.WriteByte(c)
			b.WriteByte(seg[i+1])
			i++
			continue
		}
		if strings.IndexByte(staBracketChars, c) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}
