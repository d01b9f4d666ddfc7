package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus collectors of the session engine. They are
// registered on the Registerer passed to NewMetrics, never on the global one.
type Metrics struct {
	CacheReads     *prometheus.CounterVec
	CacheWrites    *prometheus.CounterVec
	StorageErrors  *prometheus.CounterVec
	Refreshes      *prometheus.CounterVec
	Recoveries     *prometheus.CounterVec
	ListenerPanics prometheus.Counter
	CleanupRemoved prometheus.Counter
	Listeners      prometheus.Gauge
}

// NewMetrics builds the collectors and registers them on reg. A nil reg
// yields working but unexported collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessioncache",
			Name:      "cache_reads_total",
			Help:      "Session cache reads by serving tier (memory, storage, miss).",
		}, []string{"source"}),
		CacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessioncache",
			Name:      "cache_writes_total",
			Help:      "Session cache writes by durable outcome.",
		}, []string{"result"}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessioncache",
			Name:      "storage_errors_total",
			Help:      "Durable store failures by operation.",
		}, []string{"op"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessioncache",
			Name:      "token_refreshes_total",
			Help:      "Token refresh attempts by result.",
		}, []string{"result"}),
		Recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessioncache",
			Name:      "recoveries_total",
			Help:      "Foreground recoveries by strategy.",
		}, []string{"strategy"}),
		ListenerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sessioncache",
			Name:      "sync_listener_panics_total",
			Help:      "Sync listeners that panicked during delivery.",
		}),
		CleanupRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sessioncache",
			Name:      "cleanup_removed_total",
			Help:      "Stale items removed by housekeeping.",
		}),
		Listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sessioncache",
			Name:      "sync_listeners",
			Help:      "Currently registered sync listeners.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CacheReads,
			m.CacheWrites,
			m.StorageErrors,
			m.Refreshes,
			m.Recoveries,
			m.ListenerPanics,
			m.CleanupRemoved,
			m.Listeners,
		)
	}
	return m
}

func orNewMetrics(m *Metrics) *Metrics {
	if m == nil {
		return NewMetrics(nil)
	}
	return m
}
