// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package natssink is an alternative sta.Power implementation that
// publishes every (pin, activity, duty) annotation as a JSON message
// on a NATS subject instead of calling an in-process STA collaborator
// directly. It is for deployments where the power estimator consuming
// activity data lives in a different process than this ingest tool.
package natssink

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/sta-tools/fst-activity/internal/sta"
	"github.com/sta-tools/fst-activity/pkg/log"
)

// Annotation is the wire shape of one published message.
type Annotation struct {
	Pin      string  `json:"pin"`
	Activity float64 `json:"activity"`
	Duty     float64 `json:"duty"`
	Origin   string  `json:"origin"`
}

// Sink publishes annotations onto a fixed NATS subject. It satisfies
// sta.Power.
type Sink struct {
	conn    *nats.Conn
	subject string
}

// Config names the connection and publish target for one Sink.
type Config struct {
	Address       string
	Subject       string
	Username      string
	Password      string
	CredsFilePath string
}

// Connect dials the configured NATS server and returns a ready Sink.
// Mirrors pkg/nats's connect-with-options shape: user/pass or a creds
// file, reconnect/disconnect/error handlers logged via pkg/log.
func Connect(cfg Config) (*Sink, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("natssink: address is required")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("natssink: subject is required")
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("natssink: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("natssink: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Errorf("natssink: %v", err)
		}),
	)

	conn, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("natssink: connect failed: %w", err)
	}
	log.Infof("natssink: connected to %s, publishing on %q", cfg.Address, cfg.Subject)

	return &Sink{conn: conn, subject: cfg.Subject}, nil
}

// SetUserActivity implements sta.Power by marshaling the annotation
// and publishing it on the configured subject. Publish errors are
// logged, not returned — matching the core pipeline's soft-error
// convention for anything past the decoder boundary.
func (s *Sink) SetUserActivity(pin sta.Pin, activity, duty float64, origin sta.Origin) {
	msg := Annotation{
		Pin:      pin.Name(),
		Activity: activity,
		Duty:     duty,
		Origin:   originString(origin),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Warnf("natssink: marshal failed for pin %s: %v", msg.Pin, err)
		return
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		log.Warnf("natssink: publish failed for pin %s: %v", msg.Pin, err)
	}
}

// Close flushes and closes the underlying NATS connection.
func (s *Sink) Close() {
	_ = s.conn.Flush()
	s.conn.Close()
}

func originString(o sta.Origin) string {
	switch o {
	case sta.OriginFST:
		return "fst"
	default:
		return "unknown"
	}
}
