package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnGivenRegistry(t *testing.T) {
	// --- Arrange ---
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	// --- Act ---
	m.NodesTotal.WithLabelValues("grep", "completed").Inc()
	m.NodesTotal.WithLabelValues("grep", "completed").Inc()
	m.SinksTotal.WithLabelValues("field").Inc()

	// --- Assert ---
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodesTotal.WithLabelValues("grep", "completed")))
	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "neurogrid_node_executions_total")
	assert.Contains(t, names, "neurogrid_repository_sinks_total")
}

func TestNewMetrics_NilRegistryDoesNotPanicTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(nil)
		NewMetrics(nil)
	})
}

func TestNewTracerProvider_StdoutWritesSpans(t *testing.T) {
	// --- Arrange ---
	buf := &bytes.Buffer{}
	tp, err := NewTracerProvider(ExporterStdout, buf)
	require.NoError(t, err)

	// --- Act ---
	_, span := Tracer(tp).Start(context.Background(), "p.n[s1:v1]")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	// --- Assert ---
	assert.Contains(t, buf.String(), "p.n[s1:v1]")
}

func TestNewTracerProvider_UnknownExporter(t *testing.T) {
	_, err := NewTracerProvider("jaeger", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown trace exporter "jaeger"`)
}
