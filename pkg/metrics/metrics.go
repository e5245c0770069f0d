// Package metrics exposes Prometheus counters for the attendance workflow.
// faceattend is a short-lived CLI, so metrics are dumped to a node_exporter
// textfile at the end of each command instead of being scraped.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "faceattend"

// Registry holds every faceattend metric. The default Go collectors are left out.
var Registry = prometheus.NewRegistry()

var auto = promauto.With(Registry)

var (
	sessions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "total",
		Help:      "Recognition sessions by outcome",
	}, []string{"outcome"})

	sessionDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "duration_seconds",
		Help:      "Time spent in the capture loop",
		Buckets:   []float64{0.5, 1, 2, 4, 6, 8, 10},
	})

	attendance = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "records_total",
		Help:      "Attendance record attempts by result",
	}, []string{"result"})

	corpusSamples = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "corpus",
		Name:      "samples_total",
		Help:      "Normalized face samples produced by the dataset builder",
	})

	corpusWarnings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "corpus",
		Name:      "warnings_total",
		Help:      "Dataset builder warnings by kind",
	}, []string{"kind"})

	trainingAccuracy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "training",
		Name:      "self_consistency_ratio",
		Help:      "Share of training samples the last model classifies correctly",
	})
)

// SessionFinished records one session outcome and its capture duration.
func SessionFinished(outcome string, d time.Duration) {
	sessions.WithLabelValues(outcome).Inc()
	sessionDuration.Observe(d.Seconds())
}

// AttendanceRecorded counts one ledger result.
func AttendanceRecorded(result string) {
	attendance.WithLabelValues(result).Inc()
}

// CorpusSample counts one produced sample.
func CorpusSample() {
	corpusSamples.Inc()
}

// CorpusWarning counts one builder warning.
func CorpusWarning(kind string) {
	corpusWarnings.WithLabelValues(kind).Inc()
}

// TrainingAccuracy sets the last evaluation ratio.
func TrainingAccuracy(ratio float64) {
	trainingAccuracy.Set(ratio)
}

// WriteTextfile dumps Registry to path. An empty path disables export.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, Registry)
}
