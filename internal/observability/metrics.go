package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics counts crawl activity on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	boards      *prometheus.CounterVec
	notices     prometheus.Counter
	duration    prometheus.Histogram
	lastRun     prometheus.Gauge
	lastNotices prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		boards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uring_boards_crawled_total",
			Help: "Boards crawled, by result.",
		}, []string{"result"}),
		notices: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uring_notices_extracted_total",
			Help: "Notices extracted across all runs.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uring_crawl_duration_seconds",
			Help:    "Wall time of a full crawl.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uring_last_run_timestamp_seconds",
			Help: "Unix time the last crawl finished.",
		}),
		lastNotices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uring_last_run_notices",
			Help: "Notices extracted by the last crawl.",
		}),
	}
	m.registry.MustRegister(m.boards, m.notices, m.duration, m.lastRun, m.lastNotices)
	return m
}

func (m *Metrics) BoardSucceeded(notices int) {
	m.boards.WithLabelValues(ResultSuccess).Inc()
	m.notices.Add(float64(notices))
}

func (m *Metrics) BoardFailed() {
	m.boards.WithLabelValues(ResultFailure).Inc()
}

func (m *Metrics) RunFinished(elapsed time.Duration, notices int) {
	m.duration.Observe(elapsed.Seconds())
	m.lastRun.SetToCurrentTime()
	m.lastNotices.Set(float64(notices))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
