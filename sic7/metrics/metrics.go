// Package metrics exposes the pipeline counters in Prometheus format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sic7"

// Pipeline groups the collectors updated by the ingestion pipeline.
type Pipeline struct {
	Received      prometheus.Counter
	Dropped       *prometheus.CounterVec
	Classified    *prometheus.CounterVec
	Actuations    *prometheus.CounterVec
	PublishErrors prometheus.Counter
	UnknownLabels prometheus.Counter
	Observations  prometheus.Gauge
	PassDuration  prometheus.Histogram
}

// NewPipeline registers the pipeline collectors on reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	f := promauto.With(reg)
	return &Pipeline{
		Received: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Sensor messages received on the inbound topic.",
		}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Sensor messages dropped because they could not be decoded.",
		}, []string{"reason"}),
		Classified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Readings classified, by predicted category.",
		}, []string{"label"}),
		Actuations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuations_total",
			Help:      "Actuator commands published, by command.",
		}, []string{"command"}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Actuator commands that could not be published.",
		}),
		UnknownLabels: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_labels_total",
			Help:      "Classifications outside the model's declared categories.",
		}),
		Observations: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observations",
			Help:      "Observations currently held in the log.",
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of one decode, classify, actuate and append pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}
