package severity

import (
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/entity"
)

// Aggregate folds the ordered per-frame records of a job into one
// VideoStatistics. Records must already be in frame-index order. With zero
// scored frames every field defaults to zero/empty; the caller still
// completes the job.
//
// The risk histogram is recomputed from each record's stored severity, not
// re-derived from the raw detections, so re-aggregating persisted records
// reproduces the same statistics.
func Aggregate(records []entity.FrameRecord) *entity.VideoStatistics {
	stats := &entity.VideoStatistics{
		TotalDetections:  map[string]int{},
		AreaSummary:      map[string]entity.ClassAreaStats{},
		RiskDistribution: map[string]int{RiskLow: 0, RiskMedium: 0, RiskHigh: 0, RiskCritical: 0},
	}
	if len(records) == 0 {
		return stats
	}

	var (
		detConfSum, detConfMax float64
		detConfN               int
		segConfSum, segConfMax float64
		segConfN               int
		areaObs                = map[string][]float64{}
		sevSum, sevMax         float64
		peakIdx                int
	)

	for i, rec := range records {
		for class, count := range rec.Detections {
			stats.TotalDetections[class] += count
		}
		if rec.DetectionConfidence > 0 {
			detConfSum += rec.DetectionConfidence
			detConfN++
			if rec.DetectionConfidence > detConfMax {
				detConfMax = rec.DetectionConfidence
			}
		}
		for class, area := range rec.SegmentAreas {
			areaObs[class] = append(areaObs[class], area)
		}
		if rec.SegmentationConfidence > 0 {
			segConfSum += rec.SegmentationConfidence
			segConfN++
			if rec.SegmentationConfidence > segConfMax {
				segConfMax = rec.SegmentationConfidence
			}
		}

		sevSum += rec.Severity
		if rec.Severity > sevMax || i == 0 {
			sevMax = rec.Severity
			peakIdx = i
		}
		stats.RiskDistribution[RiskLevel(rec.Severity)]++
	}

	if detConfN > 0 {
		stats.AvgDetectionConfidence = round3(detConfSum / float64(detConfN))
		stats.MaxDetectionConfidence = round3(detConfMax)
	}
	if segConfN > 0 {
		stats.AvgSegmentationConfidence = round3(segConfSum / float64(segConfN))
		stats.MaxSegmentationConfidence = round3(segConfMax)
	}

	// Affected-area summary pools every per-class observation, matching how
	// the per-class averages are formed.
	var areaSum, areaMax float64
	var areaN int
	for class, obs := range areaObs {
		var sum, max float64
		for _, a := range obs {
			sum += a
			if a > max {
				max = a
			}
			areaSum += a
			if a > areaMax {
				areaMax = a
			}
			areaN++
		}
		stats.AreaSummary[class] = entity.ClassAreaStats{
			Avg: round2(sum / float64(len(obs))),
			Max: round2(max),
		}
	}
	if areaN > 0 {
		stats.AvgAffectedArea = round2(areaSum / float64(areaN))
		stats.MaxAffectedArea = round2(areaMax)
	}

	stats.AvgSeverity = round2(sevSum / float64(len(records)))
	stats.MaxSeverity = round2(sevMax)
	stats.PeakFrame = records[peakIdx].FrameIndex
	stats.PeakTimestamp = records[peakIdx].Timestamp

	return stats
}
