// Package telemetry holds the narrow logging and counter interfaces the route
// service depends on, plus adapters onto *log.Logger and logging.Metrics.
package telemetry

import (
	"log"

	"roomnav/logging"
)

// Logger is the process-level printf logger.
type Logger interface {
	Printf(format string, args ...any)
}

type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger. A nil logger discards output.
func WrapLogger(logger *log.Logger) Logger {
	return &stdLogger{logger: logger}
}

type stdLogger struct {
	logger *log.Logger
}

func (l *stdLogger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// StandardLogger exposes the wrapped logger so the logging router can use it
// as its fallback.
func (l *stdLogger) StandardLogger() *log.Logger {
	if l == nil {
		return nil
	}
	return l.logger
}

// Metrics records named counters and gauges.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
	Snapshot() map[string]uint64
}

// WrapMetrics exposes a logging.Metrics registry through Metrics. A nil
// registry drops every update.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return &registry{metrics: metrics}
}

type registry struct {
	metrics *logging.Metrics
}

func (r *registry) Add(key string, delta uint64) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.TelemetryAdd(key, delta)
}

func (r *registry) Store(key string, value uint64) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.TelemetryStore(key, value)
}

func (r *registry) Snapshot() map[string]uint64 {
	if r == nil || r.metrics == nil {
		return map[string]uint64{}
	}
	return r.metrics.Snapshot()
}
