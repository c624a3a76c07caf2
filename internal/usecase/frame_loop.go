package usecase

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/entity"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/metrics"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/render"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/severity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type frameLoopResult struct {
	Records []entity.FrameRecord
	Skipped int
}

type frameOutcome struct {
	record *entity.FrameRecord
	det    *port.Detection
	seg    *port.Segmentation
}

// runFrameLoop decodes the canonical video frame by frame, runs both
// inference passes on each frame, scores it, and writes one annotated frame
// to each output stream. A frame whose inference fails is skipped: no record
// is produced, but the unannotated frame is still written so both outputs
// keep frame-count parity with the canonical video.
func (uc *AnalyzeVideoUseCase) runFrameLoop(
	ctx context.Context,
	job *entity.VideoJob,
	meta port.VideoMeta,
	detectionPath, segmentationPath string,
	log *zap.Logger,
) (*frameLoopResult, error) {
	source, err := uc.video.OpenSource(ctx, job.CanonicalPath, meta)
	if err != nil {
		return nil, fmt.Errorf("open canonical video: %w", err)
	}
	defer source.Close()

	detSink, err := uc.video.CreateSink(ctx, detectionPath, meta)
	if err != nil {
		return nil, fmt.Errorf("%w: detection sink: %v", ErrStreamWriter, err)
	}
	segSink, err := uc.video.CreateSink(ctx, segmentationPath, meta)
	if err != nil {
		detSink.Close()
		return nil, fmt.Errorf("%w: segmentation sink: %v", ErrStreamWriter, err)
	}
	// Close* flags let the error path below close at most once.
	closeSinks := func() {
		if detSink != nil {
			detSink.Close()
			detSink = nil
		}
		if segSink != nil {
			segSink.Close()
			segSink = nil
		}
	}
	defer closeSinks()

	result := &frameLoopResult{}
	batch := make([]entity.FrameRecord, 0, uc.cfg.FrameBatchSize)
	index := 0

	for {
		frame, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: decode frame %d: %v", ErrConversion, index, err)
		}

		outcome, err := uc.analyzeFrame(ctx, job.ID, frame, index, meta.FPS)
		if err != nil {
			return nil, err
		}

		detFrame, segFrame := frame, frame
		if outcome.record != nil {
			batch = append(batch, *outcome.record)
			result.Records = append(result.Records, *outcome.record)
			detFrame = render.Detections(frame, outcome.det)
			segFrame = render.Segmentation(frame, outcome.seg)
			metrics.FramesAnalyzedTotal.Inc()
		} else {
			result.Skipped++
			metrics.FramesSkippedTotal.Inc()
		}

		if err := detSink.Write(detFrame); err != nil {
			return nil, fmt.Errorf("%w: write detection frame %d: %v", ErrStreamWriter, index, err)
		}
		if err := segSink.Write(segFrame); err != nil {
			return nil, fmt.Errorf("%w: write segmentation frame %d: %v", ErrStreamWriter, index, err)
		}

		if len(batch) >= uc.cfg.FrameBatchSize {
			if err := uc.frames.AppendBatch(ctx, batch); err != nil {
				return nil, fmt.Errorf("%w: frame batch at %d: %v", ErrPersistence, index, err)
			}
			batch = batch[:0]
		}

		if meta.FrameCount > 0 && index%10 == 0 {
			uc.advanceProgress(ctx, job, 10+85*index/meta.FrameCount, log)
		}
		index++
	}

	if len(batch) > 0 {
		if err := uc.frames.AppendBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("%w: final frame batch: %v", ErrPersistence, err)
		}
	}

	// Close finalizes the encoded streams and surfaces encoder failures.
	var closeErr error
	if err := detSink.Close(); err != nil {
		closeErr = fmt.Errorf("%w: finalize detection stream: %v", ErrStreamWriter, err)
	}
	detSink = nil
	if err := segSink.Close(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("%w: finalize segmentation stream: %v", ErrStreamWriter, err)
	}
	segSink = nil
	if closeErr != nil {
		return nil, closeErr
	}

	if result.Skipped > 0 {
		log.Warn("some frames skipped due to inference failures",
			zap.Int("skipped", result.Skipped), zap.Int("analyzed", len(result.Records)))
	}

	return result, nil
}

// analyzeFrame runs both inference passes under the per-frame timeout. An
// inference failure skips the frame (outcome.record == nil); a cancelled or
// timed-out job aborts the loop instead.
func (uc *AnalyzeVideoUseCase) analyzeFrame(
	ctx context.Context,
	jobID uuid.UUID,
	frame *image.RGBA,
	index int,
	fps float64,
) (frameOutcome, error) {
	fctx := ctx
	if uc.cfg.FrameTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, uc.cfg.FrameTimeout)
		defer cancel()
	}

	det, err := uc.detector.Detect(fctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return frameOutcome{}, fmt.Errorf("job cancelled at frame %d: %w", index, ctx.Err())
		}
		uc.logger.Warn("detection failed, skipping frame", zap.Int("frame", index), zap.Error(err))
		return frameOutcome{}, nil
	}
	seg, err := uc.segmenter.Segment(fctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return frameOutcome{}, fmt.Errorf("job cancelled at frame %d: %w", index, ctx.Err())
		}
		uc.logger.Warn("segmentation failed, skipping frame", zap.Int("frame", index), zap.Error(err))
		return frameOutcome{}, nil
	}

	timestamp := 0.0
	if fps > 0 {
		timestamp = roundTo(float64(index)/fps, 2)
	}

	record := &entity.FrameRecord{
		JobID:                  jobID,
		FrameIndex:             index,
		Timestamp:              timestamp,
		Detections:             det.Counts,
		DetectionConfidence:    roundTo(det.AvgConfidence, 3),
		SegmentAreas:           seg.Areas,
		SegmentationConfidence: roundTo(seg.AvgConfidence, 3),
		Severity:               severity.CombinedScore(det.Counts, seg.Areas),
		TotalObjects:           det.Total,
		AffectedAreaPercent:    roundTo(seg.TotalAreaPercent, 2),
	}
	return frameOutcome{record: record, det: det, seg: seg}, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
