// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package activity is the pipeline's top-level entry point. For every
// wire/register variable in a loaded waveform.Capture, it parses pin
// names (including bus decomposition), reduces each pin's value stream
// to (transitions, activity, duty), consults clock metadata, and
// annotates the external power sink.
package activity

import (
	"context"
	"math"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sta-tools/fst-activity/internal/fstapi"
	"github.com/sta-tools/fst-activity/internal/sta"
	"github.com/sta-tools/fst-activity/internal/valuereader"
	"github.com/sta-tools/fst-activity/internal/waveform"
	"github.com/sta-tools/fst-activity/pkg/log"
)

// fst variable type kinds that trigger activity computation. These
// are the FST_VT_VCD_WIRE / FST_VT_VCD_REG values from the decoder's
// own type enumeration, reused verbatim so reimplementations of this
// pipeline stay cross-referenceable with the original reader.
const (
	varTypeWire = 2
	varTypeReg  = 7
)

// DefaultChunkSize bounds how many variables are resident at once:
// enough to amortize one decoder pass per chunk, few enough to keep
// memory bounded on captures with millions of value changes per signal.
const DefaultChunkSize = 32

// Options configures one annotation run.
type Options struct {
	Scope     string
	ChunkSize int

	// ChunkRate caps how many chunk passes per second are driven
	// against the decoder, for operators replaying a very large
	// capture against a live, shared STA process. Zero means
	// unlimited.
	ChunkRate float64

	// Context governs ChunkRate waits; defaults to context.Background
	// when nil.
	Context context.Context

	// Progress, if non-nil, receives live counters while Run is in
	// flight (wired to internal/metricsserver by cmd/fst-activity).
	Progress Progress
}

// Progress receives live counters while a run is in flight. A nil
// Progress is never invoked; callers that don't care about live
// observability simply leave Options.Progress unset.
type Progress interface {
	ChunkDone()
	PinAnnotated()
	SoftError()
}

type noopProgress struct{}

func (noopProgress) ChunkDone()    {}
func (noopProgress) PinAnnotated() {}
func (noopProgress) SoftError()    {}

// Result summarizes one completed run.
type Result struct {
	AnnotatedPins int
}

// Run drives the full pipeline: chunked value loading, per-variable
// activity reduction, and power-sink emission. capture must already
// be populated by internal/loader.Load.
func Run(d fstapi.Decoder, capture *waveform.Capture, network sta.Network, sdc sta.Sdc, power sta.Power, opts Options) (Result, error) {
	if capture.Header.EndTime == 0 {
		log.Warn("fstapi[7784]: FST max time is zero, skipping activity annotation")
		return Result{}, nil
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var limiter *rate.Limiter
	if opts.ChunkRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.ChunkRate), 1)
	}

	progress := opts.Progress
	if progress == nil {
		progress = noopProgress{}
	}

	clkPeriod := minClockPeriod(sdc)
	log.Debugf("activity: resolved clock period %v", clkPeriod)

	annotated := make(map[string]struct{})
	vars := capture.Variables()
	log.Infof("activity: total variables to set activities for: %d", len(vars))

	trailing := len(vars) % chunkSize
	wholeChunks := vars[:len(vars)-trailing]

	for start := 0; start < len(wholeChunks); start += chunkSize {
		chunk := wholeChunks[start : start+chunkSize]
		if err := valuereader.ReadValuesForChunk(ctx, d, capture, chunk, limiter); err != nil {
			log.Warnf("activity: %v", err)
			progress.SoftError()
		}
		for _, v := range chunk {
			processVar(capture, v, opts.Scope, network, sdc, power, clkPeriod, annotated, progress)
		}
		capture.ClearValues()
		progress.ChunkDone()
	}

	for _, v := range vars[len(wholeChunks):] {
		if err := valuereader.ReadValuesFor(d, capture, v); err != nil {
			log.Warnf("activity: %v", err)
			progress.SoftError()
		}
		processVar(capture, v, opts.Scope, network, sdc, power, clkPeriod, annotated, progress)
	}

	log.Infof("Annotated %d pin activities.", len(annotated))
	return Result{AnnotatedPins: len(annotated)}, nil
}

func minClockPeriod(sdc sta.Sdc) float64 {
	period := math.Inf(1)
	for _, clk := range sdc.Clocks() {
		if s := clk.Period().Seconds(); s < period {
			period = s
		}
	}
	return period
}

func processVar(capture *waveform.Capture, v waveform.Variable, scope string, network sta.Network, sdc sta.Sdc, power sta.Power, clkPeriod float64, annotated map[string]struct{}, progress Progress) {
	if v.Type != varTypeWire && v.Type != varTypeReg {
		return
	}

	name := v.Name
	if scope != "" && strings.HasPrefix(name, scope) {
		name = name[len(scope)+1:] // +1 removes the trailing '/'
	}

	values := capture.ValuesFor(v.Handle)
	if len(values) == 0 {
		return
	}

	if v.BitLength == 1 {
		staName := NetVerilogToSta(name)
		setVarActivity(staName, values, 0, capture.Header, network, sdc, power, clkPeriod, annotated, progress)
		return
	}

	// Bus signal: the decoder emits a space between the base name and
	// its range annotation ("data [7:0]"); remove it before parsing.
	busExpr := name
	if idx := strings.IndexByte(busExpr, ' '); idx >= 0 {
		busExpr = busExpr[:idx] + busExpr[idx+1:]
	}

	bus, err := ParseBusName(busExpr, '[', ']', '\\')
	if err != nil || !bus.IsBus {
		log.Warnf("fstapi[7791]: problem parsing bus %s", name)
		progress.SoftError()
		return
	}

	staBusName := NetVerilogToSta(bus.Base)
	from, to := bus.From, bus.To
	if to < from {
		from, to = to, from
	}
	for i, valueBit := from, 0; i <= to; i, valueBit = i+1, valueBit+1 {
		pinName := staBusName + "[" + strconv.Itoa(i) + "]"
		setVarActivity(pinName, values, valueBit, capture.Header, network, sdc, power, clkPeriod, annotated, progress)
	}
}

func setVarActivity(pinName string, values []waveform.Value, bit int, header fstapi.Header, network sta.Network, sdc sta.Sdc, power sta.Power, clkPeriod float64, annotated map[string]struct{}, progress Progress) {
	pin, ok := network.FindPin(pinName)
	if !ok {
		log.Debugf("could not find pin %s in sdc network", pinName)
		return
	}

	transitions, act, duty := reduceVar(values, bit, header.EndTime, header.TimeScale, clkPeriod)
	log.Debugf("%s transitions %.1f activity %.2f duty %.2f", pinName, transitions, act, duty)

	if sdc.IsLeafPinClock(pin) {
		checkClockPeriod(pin, transitions, header.EndTime, header.TimeScale, sdc)
	}

	power.SetUserActivity(pin, act, duty, sta.OriginFST)
	if _, seen := annotated[pinName]; !seen {
		progress.PinAnnotated()
	}
	annotated[pinName] = struct{}{}
}

// reduceVar is a single left-to-right scan accumulating high time and
// transition count, weighting a transition touching an X/Z endpoint
// at 0.5 (the real transition may or may not have occurred) and any
// other transition at 1.0.
func reduceVar(values []waveform.Value, bit int, endTime uint64, timeScale, clkPeriod float64) (transitions, act, duty float64) {
	prevValue := values[0].Bits[bit]
	prevTime := values[0].Time
	var highTime uint64

	for _, v := range values {
		t := v.Time
		value := v.Bits[bit]
		if prevValue == '1' {
			highTime += t - prevTime
		}
		if value != prevValue {
			if value == 'X' || value == 'Z' || prevValue == 'X' || prevValue == 'Z' {
				transitions += 0.5
			} else {
				transitions += 1.0
			}
		}
		prevTime = t
		prevValue = value
	}
	if prevValue == '1' {
		highTime += endTime - prevTime
	}

	duty = float64(highTime) / float64(endTime)
	if math.IsInf(clkPeriod, 1) {
		// No SDC clock defined: "transitions per clock period" has no
		// denominator to speak of. The well-defined limit is 0 rather
		// than letting the naive division produce +Inf/NaN.
		act = 0
	} else {
		act = transitions / (float64(endTime) * timeScale / clkPeriod)
	}
	return transitions, act, duty
}

// checkClockPeriod compares the simulated clock period (assuming two
// transitions per cycle) against every SDC clock pin belongs to, and
// raises a warning when they diverge by more than 10%.
func checkClockPeriod(pin sta.Pin, transitions float64, endTime uint64, timeScale float64, sdc sta.Sdc) {
	simPeriod := float64(endTime) * timeScale / (transitions / 2.0)
	for _, clk := range sdc.FindLeafPinClocks(pin) {
		clkPeriod := clk.Period().Seconds()
		if clkPeriod == 0 {
			continue
		}
		if math.Abs((clkPeriod-simPeriod)/clkPeriod) > 0.10 {
			log.Warnf("fstapi[7793]: clock `%s` vcd period differs from SDC clock period by more than 10%% (sim %.3es, sdc %.3es)",
				clk.Name(), simPeriod, clkPeriod)
		}
	}
}
