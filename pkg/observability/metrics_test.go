package observability

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func counterTotal(t *testing.T, data map[string]metricdata.Aggregation, name string) int64 {
	t.Helper()
	sum, ok := data[name].(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: not an int64 sum (%T)", name, data[name])
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMeterHooks(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	h, err := NewMeterHooks(provider.Meter(MeterName))
	if err != nil {
		t.Fatalf("NewMeterHooks: %v", err)
	}

	ctx := context.Background()
	h.OnCacheHit(ctx, "vintage")
	h.OnCacheHit(ctx, "toner")
	h.OnCacheMiss(ctx, "vintage")
	h.OnCacheSet(ctx, "vintage", 512)
	h.OnFallback(ctx, "vintage", StageTransform, errors.New("decode"))
	h.OnCanonicalFetch(ctx, time.Second, nil)
	h.OnUpstreamFetch(ctx, "vintage", 20*time.Millisecond, nil)
	h.OnResponse(ctx, "GET", "tiles.example.com", "/x", 200, time.Millisecond)
	h.OnError(ctx, "GET", "tiles.example.com", "/x", errors.New("timeout"))

	data := collect(t, reader)

	tests := []struct {
		name string
		want int64
	}{
		{MetricCacheHits, 2},
		{MetricCacheMisses, 1},
		{MetricCacheWrites, 1},
		{MetricFallbacks, 1},
		{MetricStyleFetches, 1},
		{MetricHTTPRequests, 2},
	}
	for _, tt := range tests {
		if got := counterTotal(t, data, tt.name); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}

	hist, ok := data[MetricUpstreamDuration].(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("%s = %+v, want one observation", MetricUpstreamDuration, data[MetricUpstreamDuration])
	}
}

func TestNewPrometheus(t *testing.T) {
	p, err := NewPrometheus()
	if err != nil {
		t.Fatalf("NewPrometheus: %v", err)
	}
	defer p.Shutdown(context.Background())

	p.Hooks.OnCacheMiss(context.Background(), "noir")

	rec := httptest.NewRecorder()
	p.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), "vibetiles_tile_cache_misses") {
		t.Errorf("metrics output missing cache miss counter:\n%s", body)
	}
}
