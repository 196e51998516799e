package telemetry

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of processor spans.
const TracerName = "github.com/vk/neurogrid/internal/processor"

// Trace exporters accepted by NewTracerProvider.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// NewTracerProvider builds a tracer provider for the named exporter.
// "stdout" writes pretty-printed spans to w; "none" records nothing.
// Callers must Shutdown the provider to flush pending spans.
func NewTracerProvider(exporter string, w io.Writer) (*sdktrace.TracerProvider, error) {
	switch exporter {
	case "", ExporterNone:
		return sdktrace.NewTracerProvider(), nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		), nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", exporter)
	}
}

// Tracer returns the processor tracer of tp, falling back to the global
// provider when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(TracerName)
}
