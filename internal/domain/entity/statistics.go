package entity

import "github.com/google/uuid"

// ClassAreaStats is the per-class segmentation area summary.
type ClassAreaStats struct {
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// VideoStatistics is the cross-frame summary for a completed job, created
// exactly once at finalize time.
type VideoStatistics struct {
	JobID uuid.UUID

	TotalDetections        map[string]int
	AvgDetectionConfidence float64
	MaxDetectionConfidence float64

	AvgAffectedArea           float64
	MaxAffectedArea           float64
	AvgSegmentationConfidence float64
	MaxSegmentationConfidence float64
	AreaSummary               map[string]ClassAreaStats

	AvgSeverity   float64
	MaxSeverity   float64
	PeakFrame     int
	PeakTimestamp float64

	RiskDistribution map[string]int
}
