package postgres

import (
	"context"
	"fmt"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FrameRepository struct {
	pool *pgxpool.Pool
}

func NewFrameRepository(pool *pgxpool.Pool) *FrameRepository {
	return &FrameRepository{pool: pool}
}

// AppendBatch inserts a batch of frame records in one round trip. Records
// for a job are only ever written by that job's pipeline, so no conflict
// handling is needed.
func (r *FrameRepository) AppendBatch(ctx context.Context, records []entity.FrameRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO frame_records (
			job_id, frame_index, timestamp_seconds,
			detections, detection_confidence,
			segment_areas, segmentation_confidence,
			severity, total_objects, affected_area_percent
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query,
			rec.JobID, rec.FrameIndex, rec.Timestamp,
			rec.Detections, rec.DetectionConfidence,
			rec.SegmentAreas, rec.SegmentationConfidence,
			rec.Severity, rec.TotalObjects, rec.AffectedAreaPercent,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert frame %d (batch item %d): %w", records[i].FrameIndex, i, err)
		}
	}
	return nil
}

func (r *FrameRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.FrameRecord, error) {
	query := `
		SELECT job_id, frame_index, timestamp_seconds,
			detections, detection_confidence,
			segment_areas, segmentation_confidence,
			severity, total_objects, affected_area_percent
		FROM frame_records WHERE job_id=$1 ORDER BY frame_index`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var records []entity.FrameRecord
	for rows.Next() {
		var rec entity.FrameRecord
		err := rows.Scan(
			&rec.JobID, &rec.FrameIndex, &rec.Timestamp,
			&rec.Detections, &rec.DetectionConfidence,
			&rec.SegmentAreas, &rec.SegmentationConfidence,
			&rec.Severity, &rec.TotalObjects, &rec.AffectedAreaPercent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan frame record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
