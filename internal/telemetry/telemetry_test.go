package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func contactsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /contacts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestWithTracingNamesSpanAfterRoute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := WithTracing(tp, contactsMux())
	for _, id := range []string{"7", "boom"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/contacts/"+id, nil))
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	for _, span := range spans {
		if span.Name() != "GET /contacts/{id}" {
			t.Fatalf("span name = %q", span.Name())
		}
	}
	if spans[0].Status().Code == codes.Error {
		t.Fatalf("2xx span should not be marked as error")
	}
	if spans[1].Status().Code != codes.Error {
		t.Fatalf("5xx span should be marked as error, got %v", spans[1].Status())
	}
}

func TestWithTracingContinuesRemoteTrace(t *testing.T) {
	if _, err := InitTracing(context.Background(), nil, TracingConfig{}); err != nil {
		t.Fatalf("init disabled tracing: %v", err)
	}
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/contacts/1", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	WithTracing(tp, contactsMux()).ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].SpanContext().TraceID().String(); got != traceID {
		t.Fatalf("trace id = %s, want %s", got, traceID)
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), nil, TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("init tracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestWithMetricsLabelsByRoute(t *testing.T) {
	m := NewMetrics()
	h := m.WithMetrics(contactsMux())
	for _, path := range []string{"/contacts/1", "/contacts/2", "/nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	m.RateLimited(http.MethodPost)

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	out := buf.String()
	for _, want := range []string{
		`app_incoming_requests_total{method="GET",path="/contacts/{id}",status="200"} 2`,
		`app_incoming_requests_total{method="GET",path="unmatched",status="404"} 1`,
		`app_rate_limited_requests_total{method="POST"} 1`,
		`http_request_duration_seconds_bucket{method="GET",path="/contacts/{id}",status="200"`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, out)
		}
	}
}

func TestRoutePattern(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/contacts/1", nil)
	if got := RoutePattern(r); got != "" {
		t.Fatalf("unmatched route = %q, want empty", got)
	}
	r.Pattern = "DELETE /contacts/{id}"
	if got := RoutePattern(r); got != "/contacts/{id}" {
		t.Fatalf("route = %q", got)
	}
	r.Pattern = "/healthz"
	if got := RoutePattern(r); got != "/healthz" {
		t.Fatalf("route = %q", got)
	}
}
