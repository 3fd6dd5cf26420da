package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Access records the outcomes of sign-in resolution, permission checks and
// route guard decisions. A nil *Access is valid and records nothing.
type Access struct {
	bootstrapOutcomes *prometheus.CounterVec
	resolveDuration   prometheus.Histogram
	permissionDenials *prometheus.CounterVec
	guardDecisions    *prometheus.CounterVec
	activeSessions    prometheus.Gauge
}

// NewAccess registers the access metrics on reg. A nil registerer yields a
// no-op collector.
func NewAccess(reg prometheus.Registerer) *Access {
	if reg == nil {
		return nil
	}
	m := &Access{
		bootstrapOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "washdesk_bootstrap_outcomes_total",
			Help: "Profile resolutions by terminal outcome.",
		}, []string{"outcome"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "washdesk_profile_resolve_duration_seconds",
			Help:    "Duration of profile resolution in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		permissionDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "washdesk_permission_denials_total",
			Help: "Permission checks that were denied.",
		}, []string{"resource"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "washdesk_route_guard_decisions_total",
			Help: "Route guard decisions by kind.",
		}, []string{"decision"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "washdesk_active_sessions",
			Help: "Session stores currently held in memory.",
		}),
	}
	reg.MustRegister(m.bootstrapOutcomes, m.resolveDuration, m.permissionDenials, m.guardDecisions, m.activeSessions)
	return m
}

func (m *Access) IncBootstrapOutcome(outcome string) {
	if m == nil {
		return
	}
	m.bootstrapOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Access) ObserveResolve(d time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(d.Seconds())
}

func (m *Access) IncPermissionDenied(resource string) {
	if m == nil {
		return
	}
	m.permissionDenials.WithLabelValues(normalizeLabel(resource)).Inc()
}

func (m *Access) IncGuardDecision(decision string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

func (m *Access) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
