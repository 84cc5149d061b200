package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the counters exported by the dispatch pipeline.
type Metrics struct {
	MessagesCreated *prometheus.CounterVec
	EmailDeliveries *prometheus.CounterVec
	PushBatches     *prometheus.CounterVec
	SweepProcessed  prometheus.Counter
	SweepDuration   prometheus.Histogram
}

// NewMetrics registers the pipeline metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusnotify",
			Name:      "messages_created_total",
			Help:      "Messages accepted, by delivery mode.",
		}, []string{"mode"}),
		EmailDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusnotify",
			Name:      "email_deliveries_total",
			Help:      "Per-recipient email send attempts, by result.",
		}, []string{"result"}),
		PushBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusnotify",
			Name:      "push_batches_total",
			Help:      "Push fan-outs, by result.",
		}, []string{"result"}),
		SweepProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campusnotify",
			Name:      "scheduled_dispatched_total",
			Help:      "Scheduled messages dispatched by the sweep.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "campusnotify",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of scheduled-message sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.MessagesCreated, m.EmailDeliveries, m.PushBatches, m.SweepProcessed, m.SweepDuration)
	}
	return m
}

// NewRegistry returns the registry served on /metrics.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics wires NewMetrics against the service registry.
func ProvideMetrics(reg *prometheus.Registry) *Metrics {
	return NewMetrics(reg)
}
