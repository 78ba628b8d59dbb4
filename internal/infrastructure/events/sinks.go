// Package events provides ports.EventSink implementations.
package events

import (
	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Noop discards every event.
type Noop struct{}

func (Noop) Emit(ports.Event) {}

// Multi fans an event out to several sinks in order.
type Multi []ports.EventSink

func (m Multi) Emit(e ports.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// LogrusSink writes events as structured log lines. Errors are logged at warn
// level, everything else at debug.
type LogrusSink struct {
	logger *logrus.Logger
}

func NewLogrusSink(logger *logrus.Logger) *LogrusSink {
	return &LogrusSink{logger: logger}
}

func (s *LogrusSink) Emit(e ports.Event) {
	if s == nil || s.logger == nil {
		return
	}
	fields := logrus.Fields{
		"layer": e.Layer,
		"op":    e.Op,
		"event": string(e.Kind),
		"key":   e.Key,
	}
	if e.Elapsed > 0 {
		fields["elapsed_ms"] = float64(e.Elapsed.Microseconds()) / 1000
	}
	if e.Err != nil {
		s.logger.WithFields(fields).WithError(e.Err).Warn("cache operation failed")
		return
	}
	s.logger.WithFields(fields).Debug("cache event")
}
