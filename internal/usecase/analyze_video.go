package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/entity"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/metrics"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/registry"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/severity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type AnalyzeVideoUseCase struct {
	jobs       port.JobRepository
	frames     port.FrameRepository
	stats      port.StatisticsRepository
	storage    port.VideoStorage
	normalizer port.Normalizer
	video      port.VideoIO
	detector   port.Detector
	segmenter  port.Segmenter
	reencoder  port.Reencoder
	publisher  port.StatusPublisher
	dlq        port.DLQPublisher
	notifier   port.FailureNotifier
	reg        *registry.Registry
	logger     *zap.Logger
	cfg        AnalyzeVideoConfig
}

type AnalyzeVideoConfig struct {
	TempDir        string
	MaxRetries     int
	FrameBatchSize int
	FrameTimeout   time.Duration
	JobTimeout     time.Duration
	MaxSourceBytes int64
}

func NewAnalyzeVideoUseCase(
	jobs port.JobRepository,
	frames port.FrameRepository,
	stats port.StatisticsRepository,
	storage port.VideoStorage,
	normalizer port.Normalizer,
	video port.VideoIO,
	detector port.Detector,
	segmenter port.Segmenter,
	reencoder port.Reencoder,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	reg *registry.Registry,
	logger *zap.Logger,
	cfg AnalyzeVideoConfig,
) *AnalyzeVideoUseCase {
	if cfg.FrameBatchSize <= 0 {
		cfg.FrameBatchSize = 100
	}
	return &AnalyzeVideoUseCase{
		jobs:       jobs,
		frames:     frames,
		stats:      stats,
		storage:    storage,
		normalizer: normalizer,
		video:      video,
		detector:   detector,
		segmenter:  segmenter,
		reencoder:  reencoder,
		publisher:  publisher,
		dlq:        dlq,
		notifier:   notifier,
		reg:        reg,
		logger:     logger,
		cfg:        cfg,
	}
}

func (uc *AnalyzeVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "AnalyzeVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.AnalysisRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	if uc.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.JobTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !uc.reg.Acquire(msg.JobID, cancel) {
		log.Warn("job already running in this process, dropping duplicate dispatch")
		return nil
	}
	defer uc.reg.Release(msg.JobID)

	job, err := uc.jobs.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewVideoJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.jobs.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if job.Status == entity.JobStatusCompleted {
		log.Info("job already completed, dropping redelivery")
		return nil
	}
	if job.Status == entity.JobStatusFailed && !job.ResetForRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
	}

	// Input validation happens before the job enters PROCESSING; a rejected
	// source never consumes a retry attempt.
	if err := uc.validateSource(ctx, job, msg); err != nil {
		log.Warn("source validation failed", zap.Error(err))
		metrics.JobsProcessedTotal.WithLabelValues("rejected").Inc()
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error())
	}

	job.MarkProcessing()
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}
	uc.advanceProgress(ctx, job, 5, log)

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	if err := uc.runPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

// validateSource rejects inputs the pipeline should never attempt: missing
// objects and sources over the size limit.
func (uc *AnalyzeVideoUseCase) validateSource(ctx context.Context, job *entity.VideoJob, msg entity.AnalysisRequestMessage) error {
	size, err := uc.storage.SourceSize(ctx, msg.VideoKey)
	if err != nil {
		return fmt.Errorf("%w: stat source object: %v", ErrValidation, err)
	}
	if uc.cfg.MaxSourceBytes > 0 && size > uc.cfg.MaxSourceBytes {
		return fmt.Errorf("%w: source size %d exceeds limit %d", ErrValidation, size, uc.cfg.MaxSourceBytes)
	}
	job.FileSize = size
	return nil
}

func (uc *AnalyzeVideoUseCase) runPipeline(
	ctx context.Context,
	job *entity.VideoJob,
	msg entity.AnalysisRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download the source video.
	dlStart := time.Now()
	ctxDl, spanDl := tracer.Start(ctx, "download_video")
	sourcePath := filepath.Join(workDir, "source.mp4")
	if err := uc.storage.DownloadSource(ctxDl, msg.VideoKey, sourcePath); err != nil {
		spanDl.End()
		log.Error("failed to download source video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.StageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Normalize to the canonical resolution and frame rate.
	nmStart := time.Now()
	ctxNm, spanNm := tracer.Start(ctx, "normalize_video")
	canonicalPath := filepath.Join(workDir, "canonical.mp4")
	meta, err := uc.normalizer.Normalize(ctxNm, sourcePath, canonicalPath)
	if err != nil {
		spanNm.End()
		log.Error("video normalization failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg,
			fmt.Errorf("%w: %v", ErrConversion, err).Error(), log)
	}
	spanNm.End()
	metrics.StageDuration.WithLabelValues("normalize").Observe(time.Since(nmStart).Seconds())

	job.SetCanonicalMeta(canonicalPath, meta.Width, meta.Height, meta.FPS, meta.Duration, meta.FrameCount)
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to persist canonical metadata", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "update canonical meta: "+err.Error(), log)
	}
	uc.advanceProgress(ctx, job, 10, log)

	// Frame loop: decode, infer, score, annotate, encode.
	flStart := time.Now()
	ctxFl, spanFl := tracer.Start(ctx, "analyze_frames")
	detectionPath := filepath.Join(workDir, "detection.mp4")
	segmentationPath := filepath.Join(workDir, "segmentation.mp4")
	result, err := uc.runFrameLoop(ctxFl, job, *meta, detectionPath, segmentationPath, log)
	if err != nil {
		spanFl.End()
		log.Error("frame analysis failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "analyze_frames: "+err.Error(), log)
	}
	spanFl.End()
	metrics.StageDuration.WithLabelValues("analyze").Observe(time.Since(flStart).Seconds())

	job.FramesAnalyzed = len(result.Records)
	uc.advanceProgress(ctx, job, 95, log)

	// Re-encoding is best effort; a failure keeps the originally written file.
	if uc.reencoder != nil {
		reStart := time.Now()
		ctxRe, spanRe := tracer.Start(ctx, "reencode_outputs")
		for _, p := range []string{detectionPath, segmentationPath} {
			if err := uc.reencoder.Reencode(ctxRe, p); err != nil {
				log.Warn("output re-encode failed, keeping original", zap.String("path", p), zap.Error(err))
			}
		}
		spanRe.End()
		metrics.StageDuration.WithLabelValues("reencode").Observe(time.Since(reStart).Seconds())
	}

	// Upload annotated outputs.
	upStart := time.Now()
	ctxUp, spanUp := tracer.Start(ctx, "upload_results")
	detectionKey := fmt.Sprintf("%s/%s_detection.mp4", job.UserID, job.ID.String())
	segmentationKey := fmt.Sprintf("%s/%s_segmentation.mp4", job.UserID, job.ID.String())
	if err := uc.storage.UploadResult(ctxUp, detectionKey, detectionPath); err != nil {
		spanUp.End()
		log.Error("detection video upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_detection: "+err.Error(), log)
	}
	if err := uc.storage.UploadResult(ctxUp, segmentationKey, segmentationPath); err != nil {
		spanUp.End()
		log.Error("segmentation video upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_segmentation: "+err.Error(), log)
	}
	spanUp.End()
	metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	job.DetectionKey = detectionKey
	job.SegmentationKey = segmentationKey

	// Aggregate per-frame records into the video summary.
	videoStats := severity.Aggregate(result.Records)
	videoStats.JobID = job.ID
	if err := uc.stats.Create(ctx, videoStats); err != nil {
		log.Error("failed to persist video statistics", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg,
			fmt.Errorf("%w: statistics: %v", ErrPersistence, err).Error(), log)
	}

	job.MarkCompleted(videoStats.AvgSeverity, severity.RiskLevel(videoStats.AvgSeverity))
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed",
		zap.Int("frames_analyzed", job.FramesAnalyzed),
		zap.Int("frames_skipped", result.Skipped),
		zap.Int("total_frames", job.TotalFrames),
		zap.Float64("overall_severity", job.OverallSeverity),
		zap.String("risk_level", job.RiskLevel),
	)

	return nil
}

func (uc *AnalyzeVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.VideoJob,
	msg entity.AnalysisRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.jobs.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *AnalyzeVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.VideoJob,
	msg entity.AnalysisRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.jobs.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

// advanceProgress moves the job's progress forward and announces the new
// value. Progress is advisory; persistence or publish failures are logged
// and never fail the job.
func (uc *AnalyzeVideoUseCase) advanceProgress(ctx context.Context, job *entity.VideoJob, pct int, log *zap.Logger) {
	before := job.Progress
	job.AdvanceProgress(pct)
	if job.Progress == before {
		return
	}
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Warn("failed to persist progress", zap.Int("progress", job.Progress), zap.Error(err))
	}
	uc.publishStatus(ctx, job, log)
}

func (uc *AnalyzeVideoUseCase) publishStatus(ctx context.Context, job *entity.VideoJob, log *zap.Logger) {
	statusMsg := entity.AnalysisStatusMessage{
		JobID:           job.ID,
		UserID:          job.UserID,
		Status:          job.Status,
		Progress:        job.Progress,
		FramesAnalyzed:  job.FramesAnalyzed,
		TotalFrames:     job.TotalFrames,
		Severity:        job.OverallSeverity,
		RiskLevel:       job.RiskLevel,
		DetectionKey:    job.DetectionKey,
		SegmentationKey: job.SegmentationKey,
		ErrorMessage:    job.ErrorMessage,
		Attempt:         job.Attempt,
		MaxAttempts:     job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
