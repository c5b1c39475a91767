package metrics

import "time"

// Transfer directions.
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Command outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"
)

// ServerMetrics records what the BOX server does. Pass nil to disable
// collection; callers never need to check.
//
// Example:
//
//	m := prometheus.NewServerMetrics() // nil unless metrics.InitRegistry ran
//	a := box.New(cfg, root, registry, m)
type ServerMetrics interface {
	// Connection lifecycle, shared with adapter.MetricsRecorder.
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)

	// RecordHandshake counts identity handshakes by outcome.
	RecordHandshake(outcome string)

	// RecordCommand records one processed command with its outcome
	// (OutcomeOK, OutcomeFailed or OutcomeInvalid) and duration.
	RecordCommand(command, outcome string, duration time.Duration)

	// RecordBytesTransferred adds payload bytes moved in a direction.
	RecordBytesTransferred(direction string, bytes int64)

	// RecordTruncatedTransfer counts transfers that ended before their declared size.
	RecordTruncatedTransfer(direction string)
}

// RegistryMetrics observes the client registry backend.
type RegistryMetrics interface {
	RecordRegistryOperation(store, operation string, duration time.Duration, err error)
	SetKnownClients(store string, count int)
}
