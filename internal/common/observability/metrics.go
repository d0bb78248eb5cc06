package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "community-bot/membership"

// Observability owns the OpenTelemetry meter and tracer providers. Metrics
// are exported through the default Prometheus registry, so they appear on
// the same /metrics endpoint as the promauto collectors.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	syncCounter    otelmetric.Int64Counter
	syncDuration   otelmetric.Float64Histogram
}

func New(serviceName, version string) *Observability {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tracerProvider)

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{tracerProvider: tracerProvider}
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(instrumentationName)

	syncCounter, _ := meter.Int64Counter(
		"membership.syncs",
		otelmetric.WithDescription("Number of membership reconciliations"),
	)

	syncDuration, _ := meter.Float64Histogram(
		"membership.sync.duration",
		otelmetric.WithDescription("Membership reconciliation duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:  provider,
		tracerProvider: tracerProvider,
		syncCounter:    syncCounter,
		syncDuration:   syncDuration,
	}
}

func (o *Observability) RecordSync(ctx context.Context, trigger, outcome string) {
	if o == nil || o.syncCounter == nil {
		return
	}
	o.syncCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) RecordSyncDuration(ctx context.Context, trigger string, duration time.Duration) {
	if o == nil || o.syncDuration == nil {
		return
	}
	o.syncDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("trigger", trigger),
	))
}

// StartSpan starts a span on the global tracer. It works before New is
// called too, in which case the span is a no-op.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// TraceID returns the current span's trace id, or "" outside a sampled span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
