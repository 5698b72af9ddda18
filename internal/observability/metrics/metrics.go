// Package metrics exposes prometheus instruments for the billing core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	usageRecords *prometheus.CounterVec
	autoReloads  *prometheus.CounterVec
	payouts      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		usageRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_usage_records_total",
			Help: "Usage audit rows written, by resource.",
		}, []string{"resource"}),
		autoReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_auto_reloads_total",
			Help: "Auto-reload attempts by outcome (charged, skipped, declined, failed).",
		}, []string{"outcome"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_payouts_total",
			Help: "Payout sagas by terminal status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.usageRecords, m.autoReloads, m.payouts)
	return m
}

func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

func (m *Metrics) RecordUsage(resource string) {
	if m == nil {
		return
	}
	m.usageRecords.WithLabelValues(resource).Inc()
}

func (m *Metrics) RecordAutoReload(outcome string) {
	if m == nil {
		return
	}
	m.autoReloads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordPayout(status string) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(status).Inc()
}

// Module wires the prometheus instruments.
var Module = fx.Module("observability.metrics",
	fx.Provide(NewDefault),
)
