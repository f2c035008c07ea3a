package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordPolicySnapshot annotates the span with the policy snapshot a request
// was evaluated against.
func RecordPolicySnapshot(span trace.Span, generation int64, tables int) {
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(
		attribute.Int64("policy.generation", generation),
		attribute.Int("policy.tables", tables),
	)
}

// RecordMissingPolicy marks the span failed because a field holding data has
// no configured level.
func RecordMissingPolicy(span trace.Span, objectType, field string) {
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("policy.field", field)}
	if objectType != "" {
		attrs = append(attrs, attribute.String("policy.object_type", objectType))
	}
	span.AddEvent("policy.missing", trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, "missing policy")
}
