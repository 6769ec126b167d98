package observability

import (
	"context"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterName is the instrumentation scope of every vibetiles instrument.
const MeterName = "github.com/matzehuels/vibetiles"

// Instrument names.
const (
	MetricCacheHits         = "vibetiles.tile.cache.hits"
	MetricCacheMisses       = "vibetiles.tile.cache.misses"
	MetricCacheWrites       = "vibetiles.tile.cache.writes"
	MetricFallbacks         = "vibetiles.tile.fallbacks"
	MetricUpstreamDuration  = "vibetiles.tile.upstream.duration"
	MetricTransformDuration = "vibetiles.tile.transform.duration"
	MetricStyleFetches      = "vibetiles.style.fetches"
	MetricStyleDerivations  = "vibetiles.style.derivations"
	MetricHTTPRequests      = "vibetiles.http.client.requests"
	MetricHTTPDuration      = "vibetiles.http.client.duration"
)

// MeterHooks implements StyleHooks, TileHooks and HTTPHooks by recording
// OpenTelemetry counters and histograms.
type MeterHooks struct {
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
	cacheWrites       metric.Int64Counter
	fallbacks         metric.Int64Counter
	upstreamDuration  metric.Float64Histogram
	transformDuration metric.Float64Histogram
	styleFetches      metric.Int64Counter
	styleDerivations  metric.Int64Counter
	httpRequests      metric.Int64Counter
	httpDuration      metric.Float64Histogram
}

// NewMeterHooks creates every instrument on meter.
func NewMeterHooks(meter metric.Meter) (*MeterHooks, error) {
	var (
		h   MeterHooks
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&h.cacheHits, MetricCacheHits, "Raster tiles served from the tile store"},
		{&h.cacheMisses, MetricCacheMisses, "Raster tiles not found in the tile store"},
		{&h.cacheWrites, MetricCacheWrites, "Raster tiles written to the tile store"},
		{&h.fallbacks, MetricFallbacks, "Best-effort stages that failed and were skipped"},
		{&h.styleFetches, MetricStyleFetches, "Fetches of the canonical upstream style"},
		{&h.styleDerivations, MetricStyleDerivations, "Per-vibe style derivations"},
		{&h.httpRequests, MetricHTTPRequests, "Outgoing HTTP requests"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&h.upstreamDuration, MetricUpstreamDuration, "Raw tile fetch latency"},
		{&h.transformDuration, MetricTransformDuration, "Pixel transform latency"},
		{&h.httpDuration, MetricHTTPDuration, "Outgoing HTTP request latency"},
	}
	for _, hg := range histograms {
		if *hg.dst, err = meter.Float64Histogram(hg.name, metric.WithDescription(hg.desc), metric.WithUnit("s")); err != nil {
			return nil, err
		}
	}
	return &h, nil
}

func vibeAttr(vibe string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("vibe", vibe))
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "error")
	}
	return attribute.String("outcome", "ok")
}

// OnCanonicalFetch counts canonical style fetches by outcome.
func (h *MeterHooks) OnCanonicalFetch(ctx context.Context, _ time.Duration, err error) {
	h.styleFetches.Add(ctx, 1, metric.WithAttributes(outcome(err)))
}

// OnDerive counts per-vibe style derivations.
func (h *MeterHooks) OnDerive(ctx context.Context, vibe string, _ time.Duration) {
	h.styleDerivations.Add(ctx, 1, vibeAttr(vibe))
}

// OnCacheHit counts tiles served from the store.
func (h *MeterHooks) OnCacheHit(ctx context.Context, vibe string) {
	h.cacheHits.Add(ctx, 1, vibeAttr(vibe))
}

// OnCacheMiss counts tiles not found in the store.
func (h *MeterHooks) OnCacheMiss(ctx context.Context, vibe string) {
	h.cacheMisses.Add(ctx, 1, vibeAttr(vibe))
}

// OnCacheSet counts tiles written to the store.
func (h *MeterHooks) OnCacheSet(ctx context.Context, vibe string, _ int) {
	h.cacheWrites.Add(ctx, 1, vibeAttr(vibe))
}

// OnUpstreamFetch records raw tile fetch latency by vibe and outcome.
func (h *MeterHooks) OnUpstreamFetch(ctx context.Context, vibe string, d time.Duration, err error) {
	h.upstreamDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("vibe", vibe), outcome(err)))
}

// OnTransform records transform latency by vibe, path and outcome.
func (h *MeterHooks) OnTransform(ctx context.Context, vibe, path string, d time.Duration, err error) {
	h.transformDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("vibe", vibe), attribute.String("path", path), outcome(err)))
}

// OnFallback counts skipped best-effort stages by vibe and stage.
func (h *MeterHooks) OnFallback(ctx context.Context, vibe, stage string, _ error) {
	h.fallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("vibe", vibe), attribute.String("stage", stage)))
}

// OnRequest is a no-op; requests are counted once they complete.
func (h *MeterHooks) OnRequest(context.Context, string, string, string) {}

// OnResponse counts outgoing requests and records their latency by status.
func (h *MeterHooks) OnResponse(ctx context.Context, method, host, _ string, status int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("host", host),
		attribute.Int("status", status),
	)
	h.httpRequests.Add(ctx, 1, attrs)
	h.httpDuration.Record(ctx, d.Seconds(), attrs)
}

// OnError counts failed outgoing requests with status 0.
func (h *MeterHooks) OnError(ctx context.Context, method, host, _ string, _ error) {
	h.httpRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("host", host),
		attribute.Int("status", 0),
	))
}

var (
	_ StyleHooks = (*MeterHooks)(nil)
	_ TileHooks  = (*MeterHooks)(nil)
	_ HTTPHooks  = (*MeterHooks)(nil)
)

// Prometheus bundles a meter provider exported through a private Prometheus
// registry, the /metrics handler for it, and hooks recording into it.
type Prometheus struct {
	Provider *sdkmetric.MeterProvider
	Handler  http.Handler
	Hooks    *MeterHooks
}

// NewPrometheus sets up the OpenTelemetry Prometheus exporter.
func NewPrometheus() (*Prometheus, error) {
	reg := promclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	hooks, err := NewMeterHooks(provider.Meter(MeterName))
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return &Prometheus{
		Provider: provider,
		Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Hooks:    hooks,
	}, nil
}

// Shutdown flushes and stops the meter provider.
func (p *Prometheus) Shutdown(ctx context.Context) error {
	return p.Provider.Shutdown(ctx)
}
