package solver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	computed     prometheus.Counter
	hits         prometheus.Counter
	classSeconds prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer, table *Table) *metrics {
	f := promauto.With(reg)
	m := &metrics{
		computed: f.NewCounter(prometheus.CounterOpts{
			Name: "gearopt_states_computed_total",
			Help: "Total (budget, state) transitions evaluated",
		}),
		hits: f.NewCounter(prometheus.CounterOpts{
			Name: "gearopt_cache_hits_total",
			Help: "Total transitions served from the memo table",
		}),
		classSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gearopt_class_build_seconds",
			Help:    "Wall time to build one budget class",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}),
	}
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gearopt_table_entries",
		Help: "Entries currently held in the memo table",
	}, func() float64 { return float64(table.Len()) })
	return m
}
