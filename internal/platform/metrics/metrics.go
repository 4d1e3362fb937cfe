// Package metrics holds the Prometheus collectors shared by the services.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is a private registry so tests can build fresh collectors.
type Registry struct {
	reg *prometheus.Registry

	VotesTotal       *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	QRCollisions     prometheus.Counter
	AuditDrift       prometheus.Gauge
	CacheLookups     *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		VotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traceability",
			Name:      "votes_total",
			Help:      "Validator votes by decision and outcome.",
		}, []string{"decision", "outcome"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traceability",
			Name:      "status_transitions_total",
			Help:      "Product status changes by target status.",
		}, []string{"to"}),
		QRCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traceability",
			Name:      "qr_code_collisions_total",
			Help:      "QR code uniqueness violations retried during product creation.",
		}),
		AuditDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "traceability",
			Name:      "audit_inconsistent_products",
			Help:      "Products whose approval count disagreed with their vote records at the last audit.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traceability",
			Name:      "qr_cache_lookups_total",
			Help:      "QR lookup cache results.",
		}, []string{"result"}),
	}
	r.reg.MustRegister(
		r.VotesTotal, r.TransitionsTotal, r.QRCollisions, r.AuditDrift, r.CacheLookups,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
}
