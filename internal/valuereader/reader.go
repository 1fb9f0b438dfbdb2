// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package valuereader drives the decoder adapter's value-change
// iteration, one variable or one chunk of variables at a time, and
// normalizes every value before it lands in the waveform.Capture's
// cache.
package valuereader

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sta-tools/fst-activity/internal/fstapi"
	"github.com/sta-tools/fst-activity/internal/waveform"
)

// PassError accumulates soft-data errors (value length mismatches)
// encountered during one read pass. Foreign callback boundaries never
// propagate control flow, so these are stashed and surfaced once the
// iteration returns.
type PassError struct {
	Mismatches int
}

func (e *PassError) Error() string {
	return fmt.Sprintf("fstapi[7789]: %d value(s) with length not matching their variable's declared bit length", e.Mismatches)
}

// normalize copies raw into an owned, normalized bit string: reversed
// so index 0 is the LSB, and uppercased so x/z become X/Z. Returns
// whether its length matches want (the variable's declared bit
// length); a mismatch is a soft error, not a reason to drop the value.
func normalize(raw []byte, want uint32) (string, bool) {
	s := string(raw)
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	s = strings.ToUpper(string(b))
	return s, uint32(len(s)) == want
}

// ReadValuesFor loads the complete value stream for one variable.
// Intended for the trailing variables past the last whole chunk, where
// marking and iterating the whole file for a single handle is cheap
// enough not to bother chunking.
func ReadValuesFor(d fstapi.Decoder, capture *waveform.Capture, v waveform.Variable) error {
	var perr PassError
	err := d.IterateValueChanges([]fstapi.Handle{v.Handle}, func(t uint64, h fstapi.Handle, raw []byte) {
		bits, ok := normalize(raw, v.BitLength)
		if !ok {
			perr.Mismatches++
		}
		capture.AppendValue(h, waveform.Value{Time: t, Bits: bits})
	})
	if err != nil {
		return err
	}
	if perr.Mismatches > 0 {
		return &perr
	}
	return nil
}

// ReadValuesForChunk marks every variable in vars and drives a single
// decoder pass, dispatching each callback invocation into the cache
// slot keyed by its handle. One pass over the file per chunk, not per
// variable, is the chief performance reason to chunk at all.
//
// If limiter is non-nil, one token is taken before the pass starts,
// throttling how fast chunks are replayed against a live, shared STA
// process. A nil limiter never blocks.
func ReadValuesForChunk(ctx context.Context, d fstapi.Decoder, capture *waveform.Capture, vars []waveform.Variable, limiter *rate.Limiter) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	bitLengths := make(map[fstapi.Handle]uint32, len(vars))
	handles := make([]fstapi.Handle, 0, len(vars))
	for _, v := range vars {
		bitLengths[v.Handle] = v.BitLength
		handles = append(handles, v.Handle)
	}

	var perr PassError
	err := d.IterateValueChanges(handles, func(t uint64, h fstapi.Handle, raw []byte) {
		bits, ok := normalize(raw, bitLengths[h])
		if !ok {
			perr.Mismatches++
		}
		capture.AppendValue(h, waveform.Value{Time: t, Bits: bits})
	})
	if err != nil {
		return err
	}
	if perr.Mismatches > 0 {
		return &perr
	}
	return nil
}
