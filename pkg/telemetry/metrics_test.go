package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRecordRedaction(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
		ResetMetricsForTest()
	})

	ResetMetricsForTest()

	RecordRedaction(ctx, RedactionMetrics{
		Kind:     "domain",
		Objects:  3,
		Redacted: true,
		Duration: 150 * time.Millisecond,
	})
	RecordRedaction(ctx, RedactionMetrics{Kind: "entity", Failed: true})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	metrics := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics[m.Name] = m
		}
	}

	objects, ok := metrics["rdap.redaction.objects_total"]
	if !ok {
		t.Fatalf("missing rdap.redaction.objects_total metric")
	}
	objectData, ok := objects.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type for objects metric")
	}
	if len(objectData.DataPoints) != 1 {
		t.Fatalf("expected 1 datapoint, got %d", len(objectData.DataPoints))
	}
	if objectData.DataPoints[0].Value != 3 {
		t.Fatalf("expected objects count 3, got %d", objectData.DataPoints[0].Value)
	}
	if value, ok := objectData.DataPoints[0].Attributes.Value(attribute.Key("rdap.redacted")); !ok || !value.AsBool() {
		t.Fatalf("expected rdap.redacted attribute true, got %v", value)
	}

	failures, ok := metrics["rdap.redaction.failures_total"]
	if !ok {
		t.Fatalf("missing rdap.redaction.failures_total metric")
	}
	failureData := failures.Data.(metricdata.Sum[int64])
	if failureData.DataPoints[0].Value != 1 {
		t.Fatalf("expected failure count 1, got %d", failureData.DataPoints[0].Value)
	}

	hist, ok := metrics["rdap.redaction.duration_ms"]
	if !ok {
		t.Fatalf("missing rdap.redaction.duration_ms metric")
	}
	histData := hist.Data.(metricdata.Histogram[float64])
	if histData.DataPoints[0].Count != 1 {
		t.Fatalf("expected histogram count 1, got %d", histData.DataPoints[0].Count)
	}
	if histData.DataPoints[0].Sum != 150 {
		t.Fatalf("expected histogram sum 150, got %v", histData.DataPoints[0].Sum)
	}
}

func TestRecordRedactionEvent(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider()
	tp.RegisterSpanProcessor(recorder)
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "redact.domain")
	RecordRedactionEvent(span, "domain", 1, true, 7)
	RecordMissingPolicy(span, "entity_vcard", "email")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	events := spans[0].Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Name != "rdap.redaction" {
		t.Fatalf("unexpected event name %q", events[0].Name)
	}

	attrs := attribute.NewSet(events[0].Attributes...)
	if value, ok := attrs.Value(attribute.Key("rdap.redacted")); !ok || !value.AsBool() {
		t.Fatalf("expected rdap.redacted attribute true")
	}
	if value, ok := attrs.Value(attribute.Key("policy.generation")); !ok || value.AsInt64() != 7 {
		t.Fatalf("expected policy.generation 7, got %v", value)
	}

	missing := attribute.NewSet(events[1].Attributes...)
	if value, ok := missing.Value(attribute.Key("policy.field")); !ok || value.AsString() != "email" {
		t.Fatalf("expected policy.field email, got %v", value)
	}

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown tracer provider: %v", err)
	}
}

func TestScrubAttributes(t *testing.T) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.header.authorization", "Bearer secret"),
		attribute.String("enduser.id", "registrant-0001"),
		attribute.String("rdap.kind", "domain"),
	}

	filtered := ScrubAttributes(attrs, "enduser.id")

	if len(filtered) != 2 {
		t.Fatalf("expected 2 attributes after scrubbing, got %d", len(filtered))
	}
	for _, kv := range filtered {
		switch kv.Key {
		case "enduser.id":
			if got := kv.Value.AsString(); got != "regi***0001" {
				t.Fatalf("unexpected masked user %q", got)
			}
		case "rdap.kind":
			if kv.Value.AsString() != "domain" {
				t.Fatalf("unexpected kind %q", kv.Value.AsString())
			}
		default:
			t.Fatalf("unexpected attribute %q present after scrubbing", kv.Key)
		}
	}
}

func TestPrometheusMiddlewareUsesRoutePattern(t *testing.T) {
	m := NewMetrics()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/domain/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/domain/example.mx", nil))

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/domain/{name}", http.MethodGet, "404")); got != 1 {
		t.Fatalf("expected 1 request for route pattern, got %v", got)
	}

	m.RecordPolicyReload("success")
	m.RecordPolicyReload("failed")
	m.RecordRateLimited()
	m.RecordCacheLookup("hit")

	if got := testutil.ToFloat64(m.policyReloads.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed reload, got %v", got)
	}

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"rdap_http_requests_total", "rdap_policy_reloads_total", "rdap_rate_limited_total", "rdap_cache_requests_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("metrics output missing %s", name)
		}
	}
}
