package port

import (
	"context"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/entity"
	"github.com/google/uuid"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.VideoJob) error
	Update(ctx context.Context, job *entity.VideoJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.VideoJob, error)
}

// FrameRepository persists per-frame analysis results. AppendBatch commits a
// whole batch atomically; the pipeline flushes every N frames rather than
// per frame.
type FrameRepository interface {
	AppendBatch(ctx context.Context, records []entity.FrameRecord) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.FrameRecord, error)
}

type StatisticsRepository interface {
	Create(ctx context.Context, stats *entity.VideoStatistics) error
}
