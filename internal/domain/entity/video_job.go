package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusUploaded   JobStatus = "UPLOADED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// VideoJob is one disaster-footage analysis job. It is mutated only by the
// pipeline stages, in order, and becomes immutable once Completed or Failed.
type VideoJob struct {
	ID     uuid.UUID
	UserID string

	SourceKey       string
	CanonicalPath   string
	DetectionKey    string
	SegmentationKey string

	Width       int
	Height      int
	FPS         float64
	Duration    float64
	TotalFrames int

	FramesAnalyzed int

	Status       JobStatus
	Progress     int
	ErrorMessage string

	OverallSeverity float64
	RiskLevel       string

	FileSize    int64
	Attempt     int
	MaxAttempts int

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func NewVideoJob(userID, sourceKey string, fileSize int64, maxAttempts int) *VideoJob {
	now := time.Now().UTC()
	return &VideoJob{
		ID:          uuid.New(),
		UserID:      userID,
		SourceKey:   sourceKey,
		FileSize:    fileSize,
		Status:      JobStatusUploaded,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *VideoJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

func (j *VideoJob) MarkProcessing() {
	if j.Terminal() {
		return
	}
	now := time.Now().UTC()
	j.Status = JobStatusProcessing
	j.Attempt++
	j.StartedAt = &now
	j.UpdatedAt = now
}

func (j *VideoJob) MarkCompleted(severity float64, riskLevel string) {
	if j.Terminal() {
		return
	}
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.OverallSeverity = severity
	j.RiskLevel = riskLevel
	j.Progress = 100
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *VideoJob) MarkFailed(errMsg string) {
	if j.Terminal() {
		return
	}
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

// AdvanceProgress moves progress forward, never backward. 100 is reserved
// for MarkCompleted, so intermediate advances are capped at 99.
func (j *VideoJob) AdvanceProgress(p int) {
	if j.Terminal() {
		return
	}
	if p > 99 {
		p = 99
	}
	if p <= j.Progress {
		return
	}
	j.Progress = p
	j.UpdatedAt = time.Now().UTC()
}

// SetCanonicalMeta records the normalized video's properties on the job.
func (j *VideoJob) SetCanonicalMeta(path string, width, height int, fps, duration float64, totalFrames int) {
	j.CanonicalPath = path
	j.Width = width
	j.Height = height
	j.FPS = fps
	j.Duration = duration
	j.TotalFrames = totalFrames
	j.UpdatedAt = time.Now().UTC()
}

func (j *VideoJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

// ResetForRetry rearms a failed job so a redelivered message can run it
// again. Completed jobs and jobs with exhausted attempts stay terminal.
func (j *VideoJob) ResetForRetry() bool {
	if j.Status != JobStatusFailed || !j.CanRetry() {
		return false
	}
	j.Status = JobStatusUploaded
	j.ErrorMessage = ""
	j.UpdatedAt = time.Now().UTC()
	return true
}
