// Package metrics holds Prometheus instruments that are used across the
// platform.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webbloc_active_tenant_handles",
			Help: "Number of tenant database handles currently open.",
		})

	TenantOpenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webbloc_tenant_open_total",
			Help: "Cumulative number of tenant handles successfully opened.",
		})

	TenantOpenErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webbloc_tenant_open_errors_total",
			Help: "Cumulative number of tenant handle open failures.",
		})

	TenantProvisionTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webbloc_tenant_provision_total",
			Help: "Cumulative number of tenant databases provisioned.",
		})

	TenantEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webbloc_tenant_evict_total",
			Help: "Cumulative number of tenant handles evicted from the registry.",
		})

	TenantInvalidateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webbloc_tenant_invalidate_total",
			Help: "Cumulative number of tenant handles dropped after failed health checks.",
		})

	AuthDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webbloc_auth_decisions_total",
			Help: "Authorization outcomes by result (allow or the denial reason).",
		},
		[]string{"result"},
	)

	RateLimitRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webbloc_ratelimit_rejects_total",
			Help: "Requests rejected by the rate limiter, by window period.",
		},
		[]string{"period"},
	)

	UsageFlushTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webbloc_usage_flush_total",
			Help: "Cumulative number of usage counter batches flushed to the platform DB.",
		})

	UsageFlushErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webbloc_usage_flush_errors_total",
			Help: "Cumulative number of failed usage counter flushes.",
		})
)

func init() {
	prometheus.MustRegister(
		ActiveHandles,
		TenantOpenTotal,
		TenantOpenErrorsTotal,
		TenantProvisionTotal,
		TenantEvictTotal,
		TenantInvalidateTotal,
		AuthDecisions,
		RateLimitRejects,
		UsageFlushTotal,
		UsageFlushErrorsTotal,
	)
}
