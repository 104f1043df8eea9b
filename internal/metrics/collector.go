package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GregMSThompson/chart-renderer/internal/queue"
)

var (
	descQueueActive = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "queue", "active"),
		"Renders currently holding a queue slot.", nil, nil,
	)
	descQueueWaiting = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "queue", "waiting"),
		"Renders waiting for a queue slot.", nil, nil,
	)
	descQueueRejected = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "queue", "rejected_total"),
		"Enqueue calls rejected because the queue was full.", nil, nil,
	)
	descQueueTimedOut = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "queue", "timed_out_total"),
		"Queued renders dropped after waiting past the queue timeout.", nil, nil,
	)
	descQueueCompleted = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "queue", "completed_total"),
		"Renders that ran to completion, successfully or not.", nil, nil,
	)
	descThrottleClients = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "throttle", "clients"),
		"Client identifiers currently tracked by the throttle.", nil, nil,
	)
)

type QueueStatser interface {
	Stats() queue.Stats
}

type ThrottleSizer interface {
	Len() int
}

type pipelineCollector struct {
	queue    QueueStatser
	throttle ThrottleSizer
}

var _ prometheus.Collector = &pipelineCollector{}

// NewPipelineCollector exposes queue and throttle state at scrape time.
func NewPipelineCollector(q QueueStatser, t ThrottleSizer) prometheus.Collector {
	return &pipelineCollector{queue: q, throttle: t}
}

func (c *pipelineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descQueueActive
	ch <- descQueueWaiting
	ch <- descQueueRejected
	ch <- descQueueTimedOut
	ch <- descQueueCompleted
	ch <- descThrottleClients
}

func (c *pipelineCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.queue.Stats()
	ch <- prometheus.MustNewConstMetric(descQueueActive, prometheus.GaugeValue, float64(s.Active))
	ch <- prometheus.MustNewConstMetric(descQueueWaiting, prometheus.GaugeValue, float64(s.Queued))
	ch <- prometheus.MustNewConstMetric(descQueueRejected, prometheus.CounterValue, float64(s.Rejected))
	ch <- prometheus.MustNewConstMetric(descQueueTimedOut, prometheus.CounterValue, float64(s.TimedOut))
	ch <- prometheus.MustNewConstMetric(descQueueCompleted, prometheus.CounterValue, float64(s.Completed))
	ch <- prometheus.MustNewConstMetric(descThrottleClients, prometheus.GaugeValue, float64(c.throttle.Len()))
}
