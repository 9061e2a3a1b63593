// Package telemetry wires structured logging and Prometheus metrics the
// way the teacher does: a zap core bridged to logr via zapr, and
// promauto-registered collectors on the default registry so operator
// metrics sit next to whatever else exposes /metrics in the process.
package telemetry

import (
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/hpc-bos/bos/internal/engine/options"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap core with the logr.Logger boundary the operators
// take as a parameter, plus an AtomicLevel so the level can be changed
// at runtime through SetLevel. The cmd binaries set it once at startup
// from the -log-level flag; the logging_level option is not applied to
// it.
type Logger struct {
	logr.Logger
	level zap.AtomicLevel
}

// NewLogger builds a zap-backed logr.Logger starting at the given level.
func NewLogger(initial options.LogLevel) (*Logger, error) {
	level := zap.NewAtomicLevelAt(toZapLevel(initial))

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: zapr.NewLogger(zl), level: level}, nil
}

// SetLevel changes the level of the live zap core. Safe for concurrent
// use; the cmd binaries call it at startup when -log-level is set.
func (l *Logger) SetLevel(lvl options.LogLevel) {
	l.level.SetLevel(toZapLevel(lvl))
}

func toZapLevel(lvl options.LogLevel) zapcore.Level {
	switch lvl {
	case options.LogLevelDebug:
		return zapcore.DebugLevel
	case options.LogLevelWarning:
		return zapcore.WarnLevel
	case options.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Metrics is the set of operator-facing Prometheus collectors.
// Registered exactly once via sync.Once, matching the teacher's
// RequestMetrics pattern, so constructing Metrics more than once in
// tests doesn't panic on duplicate registration.
type Metrics struct {
	Ticks      *prometheus.CounterVec
	ActErrors  *prometheus.CounterVec
	TokenTable prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics returns the process-wide operator metrics, registering
// them on the default registry the first time it's called.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			Ticks: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "bos_operator_ticks_total",
				Help: "Count of operator ticks, by operator name.",
			}, []string{"operator"}),
			ActErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "bos_operator_act_errors_total",
				Help: "Count of operator ticks that ended with an error.",
			}, []string{"operator"}),
			TokenTable: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "bos_token_table_size",
				Help: "Number of boot-artifact tokens currently tracked.",
			}),
		}
	})
	return metrics
}

// Tick implements operator.Heartbeat.
func (m *Metrics) Tick(operatorName string, _, _ int, err error) {
	m.Ticks.WithLabelValues(operatorName).Inc()
	if err != nil {
		m.ActErrors.WithLabelValues(operatorName).Inc()
	}
}
