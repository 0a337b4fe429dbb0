package netlink

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/OpenListTeam/wazero-netlink/netlink"

// WithTracerProvider records a span for every Construct and Call.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Host) { h.tracer = tp.Tracer(tracerName) }
}

func (h *Host) startSpan(name string, attrs ...attribute.KeyValue) trace.Span {
	_, span := h.tracer.Start(context.Background(), name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
	return span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("netlink.error_class", Classify(err).String()))
	}
	span.End()
}
