package telemetry_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/solarmap/citygrid/internal/pkg/telemetry"
)

func TestNewProvider_TagsServiceName(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := telemetry.NewProvider(exp, "citygrid-test")

	_, span := tp.Tracer("test").Start(context.Background(), "rasterize")
	span.End()

	// the in-memory exporter drops its spans on shutdown, so flush instead
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	defer tp.Shutdown(context.Background())

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "rasterize" {
		t.Errorf("unexpected span name %q", spans[0].Name)
	}

	var found bool
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == semconv.ServiceNameKey && kv.Value.AsString() == "citygrid-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("service name missing from resource %v", spans[0].Resource.Attributes())
	}
}
