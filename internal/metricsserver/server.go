// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metricsserver exposes a Prometheus /metrics endpoint and a
// /healthz status endpoint while one annotation run is in flight. It
// is purely observational: the core pipeline runs identically whether
// or not a Server is attached.
package metricsserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sta-tools/fst-activity/pkg/log"
)

// Progress implements activity.Progress, backed by Prometheus
// counters/gauges registered against one Server's own registry.
type Progress struct {
	chunksProcessed prometheus.Counter
	pinsAnnotated   prometheus.Gauge
	softErrors      prometheus.Counter
}

func newProgress(reg *prometheus.Registry) *Progress {
	p := &Progress{
		chunksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fst_activity_chunks_processed_total",
			Help: "Number of value-change chunks read from the FST decoder.",
		}),
		pinsAnnotated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fst_activity_pins_annotated",
			Help: "Distinct pins annotated with activity/duty so far in this run.",
		}),
		softErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fst_activity_soft_errors_total",
			Help: "Soft errors (value-length mismatches, unparsable bus names) seen so far.",
		}),
	}
	reg.MustRegister(p.chunksProcessed, p.pinsAnnotated, p.softErrors)
	return p
}

func (p *Progress) ChunkDone()    { p.chunksProcessed.Inc() }
func (p *Progress) PinAnnotated() { p.pinsAnnotated.Inc() }
func (p *Progress) SoftError()    { p.softErrors.Inc() }

// Server wraps an http.Server exposing /metrics and /healthz.
type Server struct {
	progress *Progress
	http     *http.Server
}

// New builds a Server bound to addr (not yet listening). Pass the
// returned Progress as activity.Options.Progress to wire run-level
// counters into it.
func New(addr string) *Server {
	reg := prometheus.NewRegistry()
	progress := newProgress(reg)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))

	logged := handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Debugf("%s %s (%d, %dms)",
			params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, time.Since(params.TimeStamp).Milliseconds())
	})

	return &Server{
		progress: progress,
		http:     &http.Server{Addr: addr, Handler: logged},
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Progress returns the counters this server exposes.
func (s *Server) Progress() *Progress { return s.progress }

// ListenAndServe blocks serving /metrics and /healthz until the server
// is shut down or fails to bind. Intended to be run in its own
// goroutine alongside the annotation pipeline.
func (s *Server) ListenAndServe() error {
	log.Infof("metricsserver: listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
