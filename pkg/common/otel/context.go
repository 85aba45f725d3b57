package otel

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// zeroTraceID is reported when the context carries no recording span, keeping
// the trace_id field present in every log line.
const zeroTraceID = "00000000000000000000000000000000"

// GetTraceID extracts the current trace id from ctx for log correlation.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return zeroTraceID
	}
	return sc.TraceID().String()
}
