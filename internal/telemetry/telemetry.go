// Package telemetry is the Telemetry Surface (spec §4.10): the measurements
// exported at GET /metrics and the health aggregator at GET /health.
//
// Go Pattern: prometheus/client_golang's Registry is the idiomatic way to
// group related metrics and expose them over HTTP — analogous to how the
// teacher groups related queries behind one *database.DB, except here the
// "queries" are counters/gauges/histograms instead of SQL.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ternarybob/transcribe-service/internal/models"
)

// Telemetry holds the five measurements named in spec §4.10, plus the
// dependencies the health aggregator pings.
type Telemetry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	InProgress      prometheus.Gauge
	DurationSeconds prometheus.Histogram
	QueueDepth      prometheus.Gauge
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter

	pinger HealthPinger
}

// HealthPinger is satisfied by the Job Registry and Work Queue — anything
// the health aggregator needs to ping, plus a way to read the freshest
// worker heartbeat.
type HealthPinger interface {
	RegistryHealthCheck(ctx context.Context) error
	QueueHealthCheck(ctx context.Context) error
	LastWorkerHeartbeat(ctx context.Context) (time.Time, error)
}

// registryHealth and queueHealth are the minimal surfaces Registry and Queue
// each need to expose for health aggregation, composed into one HealthPinger by
// HealthSources below. Defined here (not imported from registry/queue)
// to keep telemetry decoupled from their concrete types.
type registryHealth interface {
	RegistryHealthCheck(ctx context.Context) error
	LastWorkerHeartbeat(ctx context.Context) (time.Time, error)
}

type queueHealth interface {
	HealthCheck(ctx context.Context) error
}

// HealthSources composes a Job Registry and Work Queue into one HealthPinger.
type HealthSources struct {
	Registry registryHealth
	Queue    queueHealth
}

func (h HealthSources) RegistryHealthCheck(ctx context.Context) error {
	return h.Registry.RegistryHealthCheck(ctx)
}

func (h HealthSources) QueueHealthCheck(ctx context.Context) error {
	return h.Queue.HealthCheck(ctx)
}

func (h HealthSources) LastWorkerHeartbeat(ctx context.Context) (time.Time, error) {
	return h.Registry.LastWorkerHeartbeat(ctx)
}

// New builds a Telemetry instance registered against a fresh
// prometheus.Registry (not the global DefaultRegisterer, so tests can spin
// up independent instances without collisions).
func New(pinger HealthPinger) *Telemetry {
	reg := prometheus.NewRegistry()

	t := &Telemetry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transcription_requests_total",
			Help: "Total submission outcomes, labeled by outcome.",
		}, []string{"outcome"}),
		InProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transcription_in_progress",
			Help: "Number of jobs currently in the Processing state.",
		}),
		DurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcription_duration_seconds",
			Help:    "Observed wall-clock duration of completed transcriptions.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~2048s
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Number of jobs waiting in the Work Queue.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total Result Cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total Result Cache misses.",
		}),
		pinger: pinger,
	}

	reg.MustRegister(
		t.RequestsTotal, t.InProgress, t.DurationSeconds,
		t.QueueDepth, t.CacheHits, t.CacheMisses,
	)
	return t
}

// Handler returns the http.Handler to mount at GET /metrics.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Health aggregates the checks named in spec §4.10 into {status,
// queue_backend_reachable, worker_heartbeat_fresh}.
func (t *Telemetry) Health(ctx context.Context, heartbeatFreshness time.Duration) models.HealthResponse {
	registryOK := t.pinger.RegistryHealthCheck(ctx) == nil
	queueOK := t.pinger.QueueHealthCheck(ctx) == nil

	heartbeatFresh := false
	if last, err := t.pinger.LastWorkerHeartbeat(ctx); err == nil {
		heartbeatFresh = time.Since(last) < heartbeatFreshness
	}

	status := "ok"
	switch {
	case !registryOK || !queueOK:
		status = "down"
	case !heartbeatFresh:
		status = "degraded"
	}

	return models.HealthResponse{
		Status:                status,
		QueueBackendReachable: queueOK,
		WorkerHeartbeatFresh:  heartbeatFresh,
	}
}
