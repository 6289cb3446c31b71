package covey

import "github.com/prometheus/client_golang/prometheus"

// Exporter exposes the snapshots of every pool in a registry as Prometheus
// metrics, labeled by pool name. It is a read-only poll over the monitoring
// handles; collecting never mutates pool state.
//
// Example:
//
//	prometheus.MustRegister(covey.NewExporter(registry))
type Exporter struct {
	registry *Registry

	workers   *prometheus.Desc
	active    *prometheus.Desc
	depth     *prometheus.Desc
	capacity  *prometheus.Desc
	submitted *prometheus.Desc
	completed *prometheus.Desc
	rejected  *prometheus.Desc
	discarded *prometheus.Desc
}

var _ prometheus.Collector = (*Exporter)(nil)

// NewExporter builds a collector over r's pools.
func NewExporter(r *Registry) *Exporter {
	labels := []string{"pool"}
	return &Exporter{
		registry: r,
		workers: prometheus.NewDesc("covey_pool_workers",
			"Live worker goroutines.", labels, nil),
		active: prometheus.NewDesc("covey_pool_active_tasks",
			"Tasks currently executing.", labels, nil),
		depth: prometheus.NewDesc("covey_pool_queue_depth",
			"Tasks waiting for a worker.", labels, nil),
		capacity: prometheus.NewDesc("covey_pool_queue_capacity",
			"Fixed queue capacity.", labels, nil),
		submitted: prometheus.NewDesc("covey_pool_tasks_submitted_total",
			"Submission attempts, accepted or not.", labels, nil),
		completed: prometheus.NewDesc("covey_pool_tasks_completed_total",
			"Tasks that ran to completion.", labels, nil),
		rejected: prometheus.NewDesc("covey_pool_tasks_rejected_total",
			"Submissions refused under the Reject policy or after stop.", labels, nil),
		discarded: prometheus.NewDesc("covey_pool_tasks_discarded_total",
			"Tasks dropped by lossy overflow policies or forced shutdown.", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.workers
	ch <- e.active
	ch <- e.depth
	ch <- e.capacity
	ch <- e.submitted
	ch <- e.completed
	ch <- e.rejected
	ch <- e.discarded
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	for _, s := range e.registry.Snapshots() {
		ch <- prometheus.MustNewConstMetric(e.workers, prometheus.GaugeValue, float64(s.Workers), s.Pool)
		ch <- prometheus.MustNewConstMetric(e.active, prometheus.GaugeValue, float64(s.Active), s.Pool)
		ch <- prometheus.MustNewConstMetric(e.depth, prometheus.GaugeValue, float64(s.QueueDepth), s.Pool)
		ch <- prometheus.MustNewConstMetric(e.capacity, prometheus.GaugeValue, float64(s.QueueCapacity), s.Pool)
		ch <- prometheus.MustNewConstMetric(e.submitted, prometheus.CounterValue, float64(s.Submitted), s.Pool)
		ch <- prometheus.MustNewConstMetric(e.completed, prometheus.CounterValue, float64(s.Completed), s.Pool)
		ch <- prometheus.MustNewConstMetric(e.rejected, prometheus.CounterValue, float64(s.Rejected), s.Pool)
		ch <- prometheus.MustNewConstMetric(e.discarded, prometheus.CounterValue, float64(s.Discarded), s.Pool)
	}
}
