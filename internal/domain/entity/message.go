package entity

import "github.com/google/uuid"

// AnalysisRequestMessage is the inbound message from the video.analysis queue.
type AnalysisRequestMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
}

// AnalysisStatusMessage is the outbound message published to the
// video.analysis.status queue on state transitions and progress milestones.
type AnalysisStatusMessage struct {
	JobID           uuid.UUID `json:"job_id"`
	UserID          string    `json:"user_id"`
	Status          JobStatus `json:"status"`
	Progress        int       `json:"progress"`
	FramesAnalyzed  int       `json:"frames_analyzed"`
	TotalFrames     int       `json:"total_frames"`
	Severity        float64   `json:"severity,omitempty"`
	RiskLevel       string    `json:"risk_level,omitempty"`
	DetectionKey    string    `json:"detection_key,omitempty"`
	SegmentationKey string    `json:"segmentation_key,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Attempt         int       `json:"attempt"`
	MaxAttempts     int       `json:"max_attempts"`
}
