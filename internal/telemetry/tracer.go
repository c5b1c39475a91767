package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys attached to BOX spans.
const (
	AttrClientAddr = "client.address"
	AttrIdentity   = "box.identity"
	AttrSessionID  = "box.session_id"
	AttrCommand    = "box.command"
	AttrFilename   = "fs.filename"
	AttrSize       = "fs.size"
	AttrBytes      = "fs.bytes_transferred"
	AttrOutcome    = "box.outcome"
)

// Span names.
const (
	SpanHandshake = "box.handshake"
	spanCommand   = "box."
)

// StartHandshakeSpan starts the span covering identity negotiation.
func StartHandshakeSpan(ctx context.Context, sessionID, clientAddr string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanHandshake,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrClientAddr, clientAddr),
		))
}

// StartCommandSpan starts a server span named "box.<COMMAND>". filename
// is omitted when empty.
func StartCommandSpan(ctx context.Context, command, identity, filename string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrCommand, command),
		attribute.String(AttrIdentity, identity),
	}
	if filename != "" {
		attrs = append(attrs, attribute.String(AttrFilename, filename))
	}
	return StartSpan(ctx, spanCommand+command,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...))
}

// Bytes is an attribute for the number of payload bytes moved.
func Bytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytes, n)
}

// Size is an attribute for a file size.
func Size(n int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, n)
}

// Outcome is an attribute describing how a command ended.
func Outcome(o string) attribute.KeyValue {
	return attribute.String(AttrOutcome, o)
}
