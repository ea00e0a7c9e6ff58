package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ingestAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "work_eye",
		Subsystem: "ingest",
		Name:      "snapshots_accepted_total",
		Help:      "Snapshots that passed the membership gate and were stored.",
	})
	ingestRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "work_eye",
		Subsystem: "ingest",
		Name:      "snapshots_rejected_total",
		Help:      "Snapshots rejected before any write, by reason.",
	}, []string{"reason"})
	stepFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "work_eye",
		Subsystem: "ingest",
		Name:      "step_failures_total",
		Help:      "Failed ingest write steps, by step name.",
	}, []string{"step"})
	screenshotsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "work_eye",
		Subsystem: "storage",
		Name:      "screenshots_stored_total",
		Help:      "Screenshots written to object storage.",
	})
	lastAccepted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "work_eye",
		Subsystem: "ingest",
		Name:      "last_snapshot_accepted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent accepted snapshot.",
	})
	reportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "work_eye",
		Subsystem: "reporting",
		Name:      "report_duration_seconds",
		Help:      "Time spent building a report, including the store read.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"report"})
)

func init() {
	prometheus.MustRegister(ingestAccepted, ingestRejected, stepFailures, screenshotsStored, lastAccepted, reportDuration)
}

// RecordAccepted counts an accepted snapshot and moves the watermark gauge.
func RecordAccepted(ts time.Time) {
	ingestAccepted.Inc()
	if ts.IsZero() {
		return
	}
	lastAccepted.Set(float64(ts.Unix()))
}

func RecordRejected(reason string) {
	ingestRejected.WithLabelValues(reason).Inc()
}

func RecordStepFailure(step string) {
	stepFailures.WithLabelValues(step).Inc()
}

func RecordScreenshotStored() {
	screenshotsStored.Inc()
}

// ObserveReport records how long a report took since start.
func ObserveReport(report string, start time.Time) {
	reportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}
