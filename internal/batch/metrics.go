package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments of the batch driver.
type Metrics struct {
	JobsTotal   *prometheus.CounterVec
	JobDuration prometheus.Histogram
	IssuesTotal prometheus.Counter
}

// NewMetrics registers the batch instruments with reg. Pass
// prometheus.DefaultRegisterer outside tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "edikit",
				Subsystem: "batch",
				Name:      "jobs_total",
				Help:      "Total number of batch jobs processed",
			},
			[]string{"status"},
		),
		JobDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "edikit",
				Subsystem: "batch",
				Name:      "job_duration_seconds",
				Help:      "Conversion duration per job in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		IssuesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "edikit",
				Subsystem: "batch",
				Name:      "mapping_issues_total",
				Help:      "Total number of recoverable mapping issues",
			},
		),
	}
}

func (m *Metrics) observe(outcome *Outcome) {
	if m == nil {
		return
	}
	status := "success"
	if outcome.Err != nil {
		status = "error"
	}
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDuration.Observe(outcome.Duration.Seconds())
	if outcome.Result != nil {
		for _, msg := range outcome.Result.Messages {
			m.IssuesTotal.Add(float64(len(msg.Issues)))
		}
	}
}
