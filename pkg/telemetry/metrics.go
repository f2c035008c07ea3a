package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	metricsOnce        sync.Once
	metricsInitErr     error
	redactionCounter   metric.Int64Counter
	redactionFailures  metric.Int64Counter
	redactionHistogram metric.Float64Histogram
)

// RedactionMetrics captures one top-level redaction call.
type RedactionMetrics struct {
	Kind     string
	Objects  int
	Redacted bool
	Failed   bool
	Duration time.Duration
}

// RecordRedaction emits counters and histograms that describe redaction
// behaviour.
func RecordRedaction(ctx context.Context, metrics RedactionMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("rdap.kind", metrics.Kind),
		attribute.Bool("rdap.redacted", metrics.Redacted),
	}

	if metrics.Failed {
		redactionFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("rdap.kind", metrics.Kind)))
	} else if metrics.Objects > 0 {
		redactionCounter.Add(ctx, int64(metrics.Objects), metric.WithAttributes(attrs...))
	}

	if metrics.Duration > 0 {
		redactionHistogram.Record(ctx, float64(metrics.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("rdap.redaction")

		redactionCounter, metricsInitErr = meter.Int64Counter(
			"rdap.redaction.objects_total",
			metric.WithDescription("Root objects passed through redaction partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		redactionFailures, metricsInitErr = meter.Int64Counter(
			"rdap.redaction.failures_total",
			metric.WithDescription("Redaction calls aborted by a policy configuration defect"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		redactionHistogram, metricsInitErr = meter.Float64Histogram(
			"rdap.redaction.duration_ms",
			metric.WithDescription("Observed redaction latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}

// RecordRedactionEvent attaches the redaction outcome to the span without
// leaking any withheld value.
func RecordRedactionEvent(span trace.Span, kind string, objects int, redacted bool, generation int64) {
	if span == nil || !span.IsRecording() {
		return
	}

	span.AddEvent("rdap.redaction", trace.WithAttributes(
		attribute.String("rdap.kind", kind),
		attribute.Int("rdap.objects", objects),
		attribute.Bool("rdap.redacted", redacted),
		attribute.Int64("policy.generation", generation),
	))
}
