// Package metrics exposes bot counters on a private Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry *prometheus.Registry

	updates    *prometheus.CounterVec
	admissions *prometheus.CounterVec
	lookups    *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	knownUsers prometheus.Gauge
	backups    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsub_updates_total",
			Help: "Updates handled, by kind",
		}, []string{"kind"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsub_admissions_total",
			Help: "Gate decisions on /start, by result",
		}, []string{"result"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsub_content_lookups_total",
			Help: "Content lookups for admitted users, by result",
		}, []string{"result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsub_broadcast_deliveries_total",
			Help: "Broadcast send attempts, by result",
		}, []string{"result"}),
		knownUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fsub_known_users",
			Help: "Users currently in the broadcast audience",
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsub_backups_total",
			Help: "Snapshots written, by result",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(m.updates, m.admissions, m.lookups, m.deliveries, m.knownUsers, m.backups)
	return m
}

// Every method is safe on a nil *Metrics so callers can run without metrics.

func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) Admission(admitted bool) {
	if m == nil {
		return
	}
	result := "denied"
	if admitted {
		result = "admitted"
	}
	m.admissions.WithLabelValues(result).Inc()
}

func (m *Metrics) Lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Broadcast(delivered, blocked, failed, remaining int) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues("delivered").Add(float64(delivered))
	m.deliveries.WithLabelValues("blocked").Add(float64(blocked))
	m.deliveries.WithLabelValues("failed").Add(float64(failed))
	m.knownUsers.Set(float64(remaining))
}

func (m *Metrics) KnownUsers(n int) {
	if m == nil {
		return
	}
	m.knownUsers.Set(float64(n))
}

func (m *Metrics) Backup(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.backups.WithLabelValues(result).Inc()
}
