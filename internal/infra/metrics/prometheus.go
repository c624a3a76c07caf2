package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sankalpa_analysis_jobs_total",
		Help: "Total number of analysis jobs processed, by final status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sankalpa_analysis_stage_duration_seconds",
		Help:    "Duration of video analysis pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	FramesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sankalpa_frames_analyzed_total",
		Help: "Total number of frames successfully scored across all jobs",
	})

	FramesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sankalpa_frames_skipped_total",
		Help: "Total number of frames skipped due to inference failures",
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sankalpa_active_analysis_jobs",
		Help: "Number of analysis pipelines currently running",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sankalpa_analysis_retry_total",
		Help: "Total number of job retries",
	}, []string{"attempt"})
)
