// Package metrics records classification timings and counts with Prometheus and
// exports them as a node-exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"buildtriage/src/contracts"
)

const namespace = "triage"

// Recorder owns a private Prometheus registry with the classifier's metrics.
type Recorder struct {
	registry *prometheus.Registry

	detectorDuration *prometheus.HistogramVec
	buildDuration    prometheus.Histogram
	detectorFaults   *prometheus.CounterVec
	failures         *prometheus.CounterVec
	builds           *prometheus.CounterVec
	parseErrors      prometheus.Counter
	skippedJobs      prometheus.Counter
	integrityDrops   *prometheus.CounterVec
	cachedBuilds     prometheus.Gauge
}

// NewRecorder creates a recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		detectorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detector_duration_seconds",
			Help:      "Time spent by each detector scanning one build.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"detector"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time spent classifying one build.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		detectorFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detector_faults_total",
			Help:      "Detectors that panicked while scanning a build.",
		}, []string{"detector"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_classified_total",
			Help:      "Failures attached to builds, by category.",
		}, []string{"category"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Builds seen by the runner, by outcome.",
		}, []string{"outcome"}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Builds skipped because metadata or test results could not be parsed.",
		}),
		skippedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_jobs_total",
			Help:      "Jobs whose builds directory could not be listed.",
		}),
		integrityDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_drops_total",
			Help:      "Cache entries removed by integrity repair, by kind.",
		}, []string{"kind"}),
		cachedBuilds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_builds",
			Help:      "Builds in the cache document after the last merge.",
		}),
	}

	r.registry.MustRegister(
		r.detectorDuration,
		r.buildDuration,
		r.detectorFaults,
		r.failures,
		r.builds,
		r.parseErrors,
		r.skippedJobs,
		r.integrityDrops,
		r.cachedBuilds,
	)
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveDetector records how long one detector took on one build.
func (r *Recorder) ObserveDetector(detector string, d time.Duration) {
	r.detectorDuration.WithLabelValues(detector).Observe(d.Seconds())
}

// ObserveBuild records the total classification time of one build.
func (r *Recorder) ObserveBuild(d time.Duration) {
	r.buildDuration.Observe(d.Seconds())
}

// DetectorFault counts a detector panic.
func (r *Recorder) DetectorFault(detector string) {
	r.detectorFaults.WithLabelValues(detector).Inc()
}

// FailureClassified counts a failure attached to a build.
func (r *Recorder) FailureClassified(category contracts.Category) {
	r.failures.WithLabelValues(string(category)).Inc()
}

// Build outcomes counted by BuildProcessed.
const (
	OutcomeClassified = "classified"
	OutcomeCached     = "cached"
	OutcomeSkipped    = "skipped"
)

// BuildProcessed counts a build seen by the runner.
func (r *Recorder) BuildProcessed(outcome string) {
	r.builds.WithLabelValues(outcome).Inc()
}

// ParseError counts a build skipped because its inputs were unreadable.
func (r *Recorder) ParseError() {
	r.parseErrors.Inc()
}

// JobSkipped counts a job left out of discovery.
func (r *Recorder) JobSkipped() {
	r.skippedJobs.Inc()
}

// IntegrityDrop counts an entry removed by integrity repair; kind is "build" or "failure".
func (r *Recorder) IntegrityDrop(kind string) {
	r.integrityDrops.WithLabelValues(kind).Inc()
}

// CachedBuilds sets the number of builds in the merged document.
func (r *Recorder) CachedBuilds(n int) {
	r.cachedBuilds.Set(float64(n))
}

// WriteTextfile writes all metrics to path in the text exposition format,
// atomically, for the node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
