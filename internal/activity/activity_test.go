// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package activity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sta-tools/fst-activity/internal/fstapi"
	"github.com/sta-tools/fst-activity/internal/sta"
	"github.com/sta-tools/fst-activity/internal/waveform"
)

func vals(pairs ...struct {
	t uint64
	b string
}) []waveform.Value {
	out := make([]waveform.Value, len(pairs))
	for i, p := range pairs {
		out[i] = waveform.Value{Time: p.t, Bits: p.b}
	}
	return out
}

func pair(t uint64, b string) struct {
	t uint64
	b string
} {
	return struct {
		t uint64
		b string
	}{t, b}
}

// S1 — single scalar wire, 50% duty.
func TestReduceVarS1(t *testing.T) {
	values := vals(pair(0, "0"), pair(10, "1"), pair(20, "0"), pair(30, "1"))
	transitions, act, duty := reduceVar(values, 0, 40, 1.0, 20.0)
	assert.Equal(t, 3.0, transitions)
	assert.Equal(t, 0.5, duty)
	assert.Equal(t, 1.5, act)
}

// S2 — unknown-endpoint weighting.
func TestReduceVarS2(t *testing.T) {
	values := vals(pair(0, "X"), pair(5, "1"), pair(10, "0"))
	transitions, _, duty := reduceVar(values, 0, 10, 1.0, math.Inf(1))
	assert.Equal(t, 1.5, transitions)
	assert.Equal(t, 0.5, duty)
}

// S3 — 2-bit bus, little-endian aligned after reversal.
func TestReduceVarS3(t *testing.T) {
	// raw "10"@0 and "01"@10 normalize (reverse) to "01" and "10".
	values := vals(pair(0, "01"), pair(10, "10"))

	t0, _, d0 := reduceVar(values, 0, 20, 1.0, math.Inf(1))
	assert.Equal(t, 1.0, t0)
	assert.Equal(t, 0.5, d0)

	t1, _, d1 := reduceVar(values, 1, 20, 1.0, math.Inf(1))
	assert.Equal(t, 1.0, t1)
	assert.Equal(t, 0.5, d1)
}

// Boundary property 9: single-entry stream.
func TestReduceVarSingleEntry(t *testing.T) {
	transitions, _, duty := reduceVar(vals(pair(0, "1")), 0, 10, 1.0, math.Inf(1))
	assert.Equal(t, 0.0, transitions)
	assert.Equal(t, 1.0, duty)

	transitions, _, duty = reduceVar(vals(pair(0, "0")), 0, 10, 1.0, math.Inf(1))
	assert.Equal(t, 0.0, transitions)
	assert.Equal(t, 0.0, duty)
}

// Boundary property 10: transition weighting.
func TestReduceVarTransitionWeighting(t *testing.T) {
	xTo1, _, _ := reduceVar(vals(pair(0, "X"), pair(5, "1")), 0, 10, 1.0, math.Inf(1))
	assert.Equal(t, 0.5, xTo1)

	zeroToOne, _, _ := reduceVar(vals(pair(0, "0"), pair(5, "1")), 0, 10, 1.0, math.Inf(1))
	assert.Equal(t, 1.0, zeroToOne)
}

func TestReduceVarNoClockIsZeroActivity(t *testing.T) {
	values := vals(pair(0, "0"), pair(10, "1"))
	_, act, _ := reduceVar(values, 0, 20, 1.0, math.Inf(1))
	assert.Equal(t, 0.0, act)
}

func TestParseBusNameSingleBit(t *testing.T) {
	bn, err := ParseBusName("data[3]", '[', ']', '\\')
	require.NoError(t, err)
	assert.True(t, bn.IsBus)
	assert.False(t, bn.IsRange)
	assert.Equal(t, "data", bn.Base)
	assert.Equal(t, 3, bn.From)
}

func TestParseBusNameRange(t *testing.T) {
	bn, err := ParseBusName("data[7:0]", '[', ']', '\\')
	require.NoError(t, err)
	assert.True(t, bn.IsBus)
	assert.True(t, bn.IsRange)
	assert.Equal(t, "data", bn.Base)
	assert.Equal(t, 7, bn.From)
	assert.Equal(t, 0, bn.To)
}

func TestParseBusNamePlain(t *testing.T) {
	bn, err := ParseBusName("plainwire", '[', ']', '\\')
	require.NoError(t, err)
	assert.False(t, bn.IsBus)
	assert.Equal(t, "plainwire", bn.Base)
}

// fakeDecoder drives a fixed chunk-worth of values through Run for
// end-to-end coverage of the chunked pipeline (S6-style).
type fakeDecoder struct {
	header fstapi.Header
	raw    map[fstapi.Handle][]waveform.Value
}

func (f *fakeDecoder) Header() (fstapi.Header, error) { return f.header, nil }
func (f *fakeDecoder) IterateHierarchy(func(fstapi.HierEvent) error) error { return nil }

func (f *fakeDecoder) IterateValueChanges(handles []fstapi.Handle, cb fstapi.ValueChangeFunc) error {
	for _, h := range handles {
		for _, v := range f.raw[h] {
			// Reverse again here to emulate raw decoder bytes, since
			// valuereader.normalize will reverse once more on ingest.
			reversed := []byte(v.Bits)
			for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
				reversed[i], reversed[j] = reversed[j], reversed[i]
			}
			cb(v.Time, h, reversed)
		}
	}
	return nil
}

func TestRunEndToEndSingleWire(t *testing.T) {
	dec := &fakeDecoder{
		header: fstapi.Header{EndTime: 40, TimeScale: 1.0},
		raw: map[fstapi.Handle][]waveform.Value{
			1: {{Time: 0, Bits: "0"}, {Time: 10, Bits: "1"}, {Time: 20, Bits: "0"}, {Time: 30, Bits: "1"}},
		},
	}
	capture := waveform.New()
	capture.SetHeader(dec.header)
	capture.SetVariables([]waveform.Variable{
		{Type: varTypeWire, Name: "top/a", BitLength: 1, Handle: 1},
	})

	ref := sta.NewReference()
	ref.AddPin("a")
	clk := sta.NewClock("clk", 20*time.Second)
	ref.AddClock(clk)

	res, err := Run(dec, capture, ref, ref, ref, Options{Scope: "top", ChunkSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AnnotatedPins)

	act, duty, ok := ref.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 0.5, duty)
	assert.Equal(t, 1.5, act)
}

// S6 — chunked iteration preserves results: the same capture run with
// chunk sizes 1, 32, and var_count must produce the identical set of
// (pin, activity, duty) tuples.
func TestRunChunkSizeDoesNotAffectResults(t *testing.T) {
	raw := map[fstapi.Handle][]waveform.Value{
		1: {{Time: 0, Bits: "0"}, {Time: 10, Bits: "1"}, {Time: 20, Bits: "0"}, {Time: 30, Bits: "1"}},
		2: {{Time: 0, Bits: "1"}, {Time: 15, Bits: "0"}},
		3: {{Time: 0, Bits: "X"}, {Time: 5, Bits: "1"}, {Time: 25, Bits: "0"}},
		4: {{Time: 0, Bits: "0"}},
		5: {{Time: 0, Bits: "01"}, {Time: 10, Bits: "10"}, {Time: 20, Bits: "11"}},
	}
	vars := []waveform.Variable{
		{Type: varTypeWire, Name: "top/a", BitLength: 1, Handle: 1},
		{Type: varTypeReg, Name: "top/b", BitLength: 1, Handle: 2},
		{Type: varTypeWire, Name: "top/c", BitLength: 1, Handle: 3},
		{Type: varTypeWire, Name: "top/d", BitLength: 1, Handle: 4},
		{Type: varTypeWire, Name: "top/e [1:0]", BitLength: 2, Handle: 5},
	}

	type tuple struct {
		pin      string
		activity float64
		duty     float64
	}
	runWith := func(chunkSize int) []tuple {
		dec := &fakeDecoder{header: fstapi.Header{EndTime: 40, TimeScale: 1.0}, raw: raw}
		capture := waveform.New()
		capture.SetHeader(dec.header)
		capture.SetVariables(vars)

		ref := sta.NewReference()
		for _, name := range []string{"a", "b", "c", "d", "e[0]", "e[1]"} {
			ref.AddPin(name)
		}
		clk := sta.NewClock("clk", 20*time.Second)
		ref.AddClock(clk)

		_, err := Run(dec, capture, ref, ref, ref, Options{Scope: "top", ChunkSize: chunkSize})
		require.NoError(t, err)

		var tuples []tuple
		for _, name := range []string{"a", "b", "c", "d", "e[0]", "e[1]"} {
			act, duty, ok := ref.Lookup(name)
			if ok {
				tuples = append(tuples, tuple{name, act, duty})
			}
		}
		return tuples
	}

	want := runWith(1)
	require.NotEmpty(t, want)
	assert.Equal(t, want, runWith(32))
	assert.Equal(t, want, runWith(len(vars)))
}

func TestRunSkipsWhenEndTimeZero(t *testing.T) {
	dec := &fakeDecoder{header: fstapi.Header{EndTime: 0}}
	capture := waveform.New()
	capture.SetHeader(dec.header)
	ref := sta.NewReference()
	res, err := Run(dec, capture, ref, ref, ref, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.AnnotatedPins)
}

type countingProgress struct {
	chunks, pins, softErrors int
}

func (p *countingProgress) ChunkDone()    { p.chunks++ }
func (p *countingProgress) PinAnnotated() { p.pins++ }
func (p *countingProgress) SoftError()    { p.softErrors++ }

func TestRunReportsProgress(t *testing.T) {
	dec := &fakeDecoder{
		header: fstapi.Header{EndTime: 40, TimeScale: 1.0},
		raw: map[fstapi.Handle][]waveform.Value{
			1: {{Time: 0, Bits: "0"}, {Time: 10, Bits: "1"}},
		},
	}
	capture := waveform.New()
	capture.SetHeader(dec.header)
	capture.SetVariables([]waveform.Variable{{Type: varTypeWire, Name: "a", BitLength: 1, Handle: 1}})

	ref := sta.NewReference()
	ref.AddPin("a")

	progress := &countingProgress{}
	_, err := Run(dec, capture, ref, ref, ref, Options{ChunkSize: 1, Progress: progress})
	require.NoError(t, err)
	assert.Equal(t, 1, progress.chunks)
	assert.Equal(t, 1, progress.pins)
	assert.Equal(t, 0, progress.softErrors)
}

func TestRunIsIdempotentOnRepeatedAnnotation(t *testing.T) {
	dec := &fakeDecoder{
		header: fstapi.Header{EndTime: 10, TimeScale: 1.0},
		raw: map[fstapi.Handle][]waveform.Value{
			1: {{Time: 0, Bits: "0"}, {Time: 5, Bits: "1"}},
		},
	}
	capture := waveform.New()
	capture.SetHeader(dec.header)
	capture.SetVariables([]waveform.Variable{{Type: varTypeReg, Name: "a", BitLength: 1, Handle: 1}})
	ref := sta.NewReference()
	ref.AddPin("a")

	_, err := Run(dec, capture, ref, ref, ref, Options{ChunkSize: 1})
	require.NoError(t, err)
	firstCount := ref.Annotated()

	capture.ClearValues()
	capture.SetVariables([]waveform.Variable{{Type: varTypeReg, Name: "a", BitLength: 1, Handle: 1}})
	_, err = Run(dec, capture, ref, ref, ref, Options{ChunkSize: 1})
	require.NoError(t, err)
	assert.Equal(t, firstCount, ref.Annotated())
}
