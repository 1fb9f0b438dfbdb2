// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/sta-tools/fst-activity/internal/activity"
	"github.com/sta-tools/fst-activity/internal/config"
	"github.com/sta-tools/fst-activity/internal/fstapi"
	"github.com/sta-tools/fst-activity/internal/loader"
	"github.com/sta-tools/fst-activity/internal/metricsserver"
	"github.com/sta-tools/fst-activity/internal/natssink"
	"github.com/sta-tools/fst-activity/internal/sta"
	"github.com/sta-tools/fst-activity/internal/waveform"
	"github.com/sta-tools/fst-activity/pkg/log"
)

func main() {
	var flagFST, flagScope, flagLogLevel, flagConfigFile string
	var flagLogDate, flagGops bool
	var flagChunkSize int
	var flagChunkRate float64

	flag.StringVar(&flagFST, "fst", "", "Path to the FST waveform capture to ingest (required)")
	flag.StringVar(&flagScope, "scope", "", "Scope name to anchor the hierarchy walk at (defaults to the file's first scope)")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "One of: debug, info, notice, warn, err, fatal, crit")
	flag.BoolVar(&flagLogDate, "logdate", false, "Prefix log lines with date/time (off by default, matching systemd journald)")
	flag.IntVar(&flagChunkSize, "chunk-size", activity.DefaultChunkSize, "Number of variables resident at once during value loading")
	flag.Float64Var(&flagChunkRate, "chunk-rate", 0, "Max chunk passes per second against the decoder (0 = unlimited)")
	flag.StringVar(&flagConfigFile, "config", "", "Optional JSON config for the metrics server, NATS sink, and reference pin/clock list")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagFST == "" {
		log.Fatal("fst-activity: -fst is required")
	}

	log.SetLogLevel(flagLogLevel)
	log.SetLogDateTime(flagLogDate)

	if flagGops {
		// See https://github.com/google/gops (runtime overhead is almost zero)
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatalf("fst-activity: loading config: %v", err)
	}

	ref := buildReference()

	var power sta.Power = ref
	if config.Keys.Nats.Address != "" {
		sink, err := natssink.Connect(natssink.Config{
			Address:       config.Keys.Nats.Address,
			Subject:       config.Keys.Nats.Subject,
			Username:      config.Keys.Nats.Username,
			Password:      config.Keys.Nats.Password,
			CredsFilePath: config.Keys.Nats.CredsFilePath,
		})
		if err != nil {
			log.Fatalf("fst-activity: %v", err)
		}
		defer sink.Close()
		power = sink
	}

	opts := activity.Options{
		Scope:     flagScope,
		ChunkSize: flagChunkSize,
		ChunkRate: flagChunkRate,
	}

	var metricsSrv *metricsserver.Server
	if config.Keys.Metrics.Addr != "" {
		metricsSrv = metricsserver.New(config.Keys.Metrics.Addr)
		opts.Progress = metricsSrv.Progress()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil {
				log.Errorf("metricsserver: %v", err)
			}
		}()
		go waitForShutdown(ctx, metricsSrv)
	}

	decoder, err := fstapi.Open(flagFST)
	if err != nil {
		log.Fatalf("fst-activity: %v", err)
	}
	defer decoder.Close()

	capture := waveform.New()
	if err := loader.Load(decoder, flagScope, capture); err != nil {
		log.Fatalf("fst-activity: %v", err)
	}

	result, err := activity.Run(decoder, capture, ref, ref, power, opts)
	if err != nil {
		log.Fatalf("fst-activity: %v", err)
	}
	log.Infof("fst-activity: done, %d pins annotated", result.AnnotatedPins)
}

// buildReference constructs the bundled sta.Reference from the
// config's statically-known pin/clock list. This stands in for a real
// STA process attachment, which this tool never assumes (the design
// database proper is out of scope).
func buildReference() *sta.Reference {
	ref := sta.NewReference()
	pins := make(map[string]sta.Pin, len(config.Keys.Pins))
	for _, p := range config.Keys.Pins {
		pins[p.Name] = ref.AddPin(p.Name)
	}
	for _, c := range config.Keys.Clocks {
		clk := sta.NewClock(c.Name, time.Duration(c.PeriodNs*float64(time.Nanosecond)))
		ref.AddClock(clk)
		for _, leaf := range c.LeafPins {
			if pin, ok := pins[leaf]; ok {
				ref.MarkLeafPinClock(pin, clk)
			}
		}
	}
	return ref
}

func waitForShutdown(ctx context.Context, srv *metricsserver.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("metricsserver: shutdown: %v", err)
	}
}
