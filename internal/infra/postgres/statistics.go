package postgres

import (
	"context"
	"fmt"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/entity"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatisticsRepository struct {
	pool *pgxpool.Pool
}

func NewStatisticsRepository(pool *pgxpool.Pool) *StatisticsRepository {
	return &StatisticsRepository{pool: pool}
}

func (r *StatisticsRepository) Create(ctx context.Context, stats *entity.VideoStatistics) error {
	query := `
		INSERT INTO video_statistics (
			job_id, total_detections,
			avg_detection_confidence, max_detection_confidence,
			avg_affected_area, max_affected_area,
			avg_segmentation_confidence, max_segmentation_confidence,
			area_summary,
			avg_severity, max_severity, peak_frame, peak_timestamp,
			risk_distribution
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := r.pool.Exec(ctx, query,
		stats.JobID, stats.TotalDetections,
		stats.AvgDetectionConfidence, stats.MaxDetectionConfidence,
		stats.AvgAffectedArea, stats.MaxAffectedArea,
		stats.AvgSegmentationConfidence, stats.MaxSegmentationConfidence,
		stats.AreaSummary,
		stats.AvgSeverity, stats.MaxSeverity, stats.PeakFrame, stats.PeakTimestamp,
		stats.RiskDistribution,
	)
	if err != nil {
		return fmt.Errorf("insert statistics: %w", err)
	}
	return nil
}
