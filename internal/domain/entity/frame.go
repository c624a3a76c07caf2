package entity

import "github.com/google/uuid"

// FrameRecord holds the inference results for one successfully analyzed
// frame. Records are append-only and never mutated after creation; indices
// within a job are unique and strictly increasing, with gaps where frames
// failed inference.
type FrameRecord struct {
	JobID      uuid.UUID
	FrameIndex int
	Timestamp  float64

	Detections          map[string]int
	DetectionConfidence float64

	SegmentAreas           map[string]float64
	SegmentationConfidence float64

	Severity            float64
	TotalObjects        int
	AffectedAreaPercent float64
}
