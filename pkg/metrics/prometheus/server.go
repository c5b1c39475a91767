// Package prometheus implements the metrics interfaces with
// prometheus/client_golang collectors registered on metrics.GetRegistry.
package prometheus

import (
	"time"

	"github.com/marmos91/dittobox/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics is the Prometheus implementation of metrics.ServerMetrics.
type serverMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	activeConnections      prometheus.Gauge

	handshakes       *prometheus.CounterVec
	commands         *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	bytesTransferred *prometheus.CounterVec
	truncated        *prometheus.CounterVec
}

// NewServerMetrics returns nil when metrics are disabled, which callers
// accept as a no-op recorder.
func NewServerMetrics() metrics.ServerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	f := promauto.With(metrics.GetRegistry())

	return &serverMetrics{
		connectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "dittobox_connections_accepted_total",
			Help: "Total number of accepted client connections",
		}),
		connectionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "dittobox_connections_closed_total",
			Help: "Total number of closed client connections",
		}),
		connectionsForceClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "dittobox_connections_force_closed_total",
			Help: "Connections force-closed after the shutdown timeout",
		}),
		activeConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "dittobox_active_connections",
			Help: "Number of currently open client connections",
		}),
		handshakes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dittobox_handshakes_total",
			Help: "Identity handshakes by outcome",
		}, []string{"outcome"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dittobox_commands_total",
			Help: "Processed commands by keyword and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dittobox_command_duration_seconds",
			Help:    "Command processing time, including any transfer",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"command"}),
		bytesTransferred: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dittobox_bytes_transferred_total",
			Help: "File payload bytes moved by direction",
		}, []string{"direction"}),
		truncated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dittobox_truncated_transfers_total",
			Help: "Transfers that ended before the declared size",
		}, []string{"direction"}),
	}
}

func (m *serverMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *serverMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *serverMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.connectionsForceClosed.Inc()
}

func (m *serverMetrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *serverMetrics) RecordHandshake(outcome string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(outcome).Inc()
}

func (m *serverMetrics) RecordCommand(command, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (m *serverMetrics) RecordBytesTransferred(direction string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *serverMetrics) RecordTruncatedTransfer(direction string) {
	if m == nil {
		return
	}
	m.truncated.WithLabelValues(direction).Inc()
}
