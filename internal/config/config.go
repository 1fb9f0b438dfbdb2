// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds the small JSON-backed configuration for this
// tool's optional add-ons (the metrics server and the NATS sink). The
// core pipeline takes no config of its own — it is fully parameterized
// by CLI flags — so Keys only ever grows fields for deployment-specific
// concerns.
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/sta-tools/fst-activity/pkg/log"
)

// MetricsConfig configures the optional Prometheus/status server.
type MetricsConfig struct {
	Addr string `json:"addr"` // e.g. ":9090"; empty disables the server
}

// NatsConfig configures the optional NATS power sink.
type NatsConfig struct {
	Address       string `json:"address"`
	Subject       string `json:"subject"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	CredsFilePath string `json:"creds-file-path"`
}

// ReferencePin is one statically-known pin entry for the bundled
// sta.Reference, used when no real STA process is wired.
type ReferencePin struct {
	Name string `json:"name"`
}

// ReferenceClock is one statically-known SDC clock for the bundled
// sta.Reference.
type ReferenceClock struct {
	Name      string  `json:"name"`
	PeriodNs  float64 `json:"period_ns"`
	LeafPins  []string `json:"leaf_pins"`
}

// ProgramConfig is the full shape of the optional JSON config file.
type ProgramConfig struct {
	Metrics MetricsConfig    `json:"metrics"`
	Nats    NatsConfig       `json:"nats"`
	Pins    []ReferencePin   `json:"pins"`
	Clocks  []ReferenceClock `json:"clocks"`
}

// Keys holds the global configuration, populated by Init.
var Keys ProgramConfig

// Init reads path (if it exists) as JSON into Keys. A missing file is
// not an error: every add-on this config feeds is optional and simply
// stays disabled.
func Init(path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return err
	}
	log.Infof("config: loaded %q", path)
	return nil
}
