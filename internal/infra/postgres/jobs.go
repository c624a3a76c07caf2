package postgres

import (
	"context"
	"fmt"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.VideoJob) error {
	query := `
		INSERT INTO video_jobs (
			id, user_id, source_key, canonical_path, detection_key, segmentation_key,
			width, height, fps, duration, total_frames, frames_analyzed,
			status, progress, error_message, overall_severity, risk_level,
			file_size, attempt, max_attempts,
			created_at, updated_at, started_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.SourceKey, job.CanonicalPath, job.DetectionKey, job.SegmentationKey,
		job.Width, job.Height, job.FPS, job.Duration, job.TotalFrames, job.FramesAnalyzed,
		string(job.Status), job.Progress, job.ErrorMessage, job.OverallSeverity, job.RiskLevel,
		job.FileSize, job.Attempt, job.MaxAttempts,
		job.CreatedAt, job.UpdatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.VideoJob) error {
	query := `
		UPDATE video_jobs SET
			canonical_path=$2, detection_key=$3, segmentation_key=$4,
			width=$5, height=$6, fps=$7, duration=$8, total_frames=$9, frames_analyzed=$10,
			status=$11, progress=$12, error_message=$13, overall_severity=$14, risk_level=$15,
			attempt=$16, updated_at=$17, started_at=$18, completed_at=$19
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.CanonicalPath, job.DetectionKey, job.SegmentationKey,
		job.Width, job.Height, job.FPS, job.Duration, job.TotalFrames, job.FramesAnalyzed,
		string(job.Status), job.Progress, job.ErrorMessage, job.OverallSeverity, job.RiskLevel,
		job.Attempt, job.UpdatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.VideoJob, error) {
	query := `
		SELECT id, user_id, source_key, canonical_path, detection_key, segmentation_key,
			width, height, fps, duration, total_frames, frames_analyzed,
			status, progress, error_message, overall_severity, risk_level,
			file_size, attempt, max_attempts,
			created_at, updated_at, started_at, completed_at
		FROM video_jobs WHERE id=$1`

	job := &entity.VideoJob{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.SourceKey, &job.CanonicalPath, &job.DetectionKey, &job.SegmentationKey,
		&job.Width, &job.Height, &job.FPS, &job.Duration, &job.TotalFrames, &job.FramesAnalyzed,
		&status, &job.Progress, &job.ErrorMessage, &job.OverallSeverity, &job.RiskLevel,
		&job.FileSize, &job.Attempt, &job.MaxAttempts,
		&job.CreatedAt, &job.UpdatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}
