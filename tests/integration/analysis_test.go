package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/entity"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/email"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/ffmpeg"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/inference"
	miniostorage "github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/minio"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/postgres"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/rabbitmq"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/registry"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/severity"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/usecase"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

// stubInferenceServer answers every frame with one fire detection and one
// fire region, so every frame of the test video scores the same severity.
func stubInferenceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detections":[{"class":"fire","confidence":0.9,"box":[10,10,60,60]}]}`))
	})
	mux.HandleFunc("/segment", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"segments":[{"class":"fire","confidence":0.8,"area_percent":12.5,"polygon":[[10,10],[60,10],[60,60]]}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func generateTestVideo(t *testing.T, path string) {
	t.Helper()
	cmd := exec.Command("ffmpeg",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=30",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-y", path,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "generate test video: %s", string(out))
}

func TestAnalyzeVideoEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("sankalpa"),
		tcpostgres.WithUsername("sankalpa"),
		tcpostgres.WithPassword("sankalpa"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Run migrations
	err = postgres.RunMigrations(pgConnStr, "../../migrations")
	require.NoError(t, err)

	// Setup MinIO storage
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UseSSL:       false,
		UploadBucket: "uploads",
		ResultBucket: "results",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	// Generate and upload a synthetic source video
	testVideoPath := filepath.Join(t.TempDir(), "source.mp4")
	generateTestVideo(t, testVideoPath)

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	videoKey := "testuser/flood.mp4"
	uploadInfo, err := minioClient.FPutObject(ctx, "uploads", videoKey, testVideoPath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	require.NoError(t, err)

	// Setup RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "sankalpa.video")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub, "video.analysis.status")
	dlqPub := rabbitmq.NewDLQPublisher(pub, "video.analysis.dlq")

	// Setup DB pool
	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	// Inference stub
	inferSrv := stubInferenceServer(t)
	client := inference.NewClient(inference.ClientConfig{
		DetectURL:  inferSrv.URL + "/detect",
		SegmentURL: inferSrv.URL + "/segment",
		Timeout:    10 * time.Second,
	})

	// Setup use case. The small canonical target keeps the frame loop fast.
	log, _ := logger.New("debug")
	jobs := postgres.NewJobRepository(pool)
	frames := postgres.NewFrameRepository(pool)
	stats := postgres.NewStatisticsRepository(pool)
	normalizer := ffmpeg.NewNormalizer(240, 15, log)
	videoIO := ffmpeg.NewVideoIO("libx264", "mpeg4", log)
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewAnalyzeVideoUseCase(
		jobs, frames, stats, storage,
		normalizer, videoIO, client, client, ffmpeg.NoopReencoder{},
		statusPub, dlqPub, notifier,
		registry.New(),
		log,
		usecase.AnalyzeVideoConfig{
			TempDir:        t.TempDir(),
			MaxRetries:     3,
			FrameBatchSize: 10,
			FrameTimeout:   10 * time.Second,
			JobTimeout:     3 * time.Minute,
			MaxSourceBytes: 64 << 20,
		},
	)

	// Setup consumer
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "video.analysis",
		Exchange:    "sankalpa.video",
		DLQ:         "video.analysis.dlq",
		StatusQueue: "video.analysis.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()

	// Give consumer time to start
	time.Sleep(500 * time.Millisecond)

	// Publish analysis request
	jobID := uuid.New()
	requestMsg := entity.AnalysisRequestMessage{
		JobID:     jobID,
		UserID:    "testuser",
		VideoKey:  videoKey,
		FileSize:  uploadInfo.Size,
		UserEmail: "test@test.local",
	}
	msgBody, err := json.Marshal(requestMsg)
	require.NoError(t, err)

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"sankalpa.video",
		"video.analysis",
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msgBody,
		},
	)
	require.NoError(t, err)
	pubCh.Close()

	// Consume status messages until the job reaches a terminal state
	statusCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()

	statusMsgs, err := statusCh.Consume("video.analysis.status", "", true, false, false, false, nil)
	require.NoError(t, err)

	var statusMsg entity.AnalysisStatusMessage
	deadline := time.After(3 * time.Minute)
	lastProgress := 0
waitTerminal:
	for {
		select {
		case delivery := <-statusMsgs:
			require.NoError(t, json.Unmarshal(delivery.Body, &statusMsg))
			assert.GreaterOrEqual(t, statusMsg.Progress, lastProgress, "progress never moves backward")
			lastProgress = statusMsg.Progress
			if statusMsg.Status == entity.JobStatusCompleted || statusMsg.Status == entity.JobStatusFailed {
				break waitTerminal
			}
		case <-deadline:
			t.Fatal("timeout waiting for terminal status message")
		}
	}

	// Assert final status
	require.Equal(t, entity.JobStatusCompleted, statusMsg.Status, "error: %s", statusMsg.ErrorMessage)
	assert.Equal(t, jobID, statusMsg.JobID)
	assert.Equal(t, 100, statusMsg.Progress)
	assert.Greater(t, statusMsg.TotalFrames, 0)
	assert.Equal(t, statusMsg.TotalFrames, statusMsg.FramesAnalyzed)
	assert.Greater(t, statusMsg.Severity, 0.0)
	assert.NotEmpty(t, statusMsg.RiskLevel)
	assert.NotEmpty(t, statusMsg.DetectionKey)
	assert.NotEmpty(t, statusMsg.SegmentationKey)

	// Both annotated videos exist in the results bucket
	for _, key := range []string{statusMsg.DetectionKey, statusMsg.SegmentationKey} {
		stat, err := minioClient.StatObject(ctx, "results", key, miniogo.StatObjectOptions{})
		require.NoError(t, err, "result object %s", key)
		assert.Greater(t, stat.Size, int64(0))
	}

	// Verify job record
	var dbStatus string
	var dbSeverity float64
	var dbFrames int
	err = pool.QueryRow(ctx,
		"SELECT status, overall_severity, frames_analyzed FROM video_jobs WHERE id=$1", jobID,
	).Scan(&dbStatus, &dbSeverity, &dbFrames)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", dbStatus)
	assert.Equal(t, statusMsg.Severity, dbSeverity)
	assert.Equal(t, statusMsg.FramesAnalyzed, dbFrames)

	// Every analyzed frame has a record, in index order with no duplicates
	var recordCount int
	err = pool.QueryRow(ctx,
		"SELECT count(*) FROM frame_records WHERE job_id=$1", jobID,
	).Scan(&recordCount)
	require.NoError(t, err)
	assert.Equal(t, statusMsg.FramesAnalyzed, recordCount)

	// Statistics row exists and agrees with the job
	var statsAvg float64
	var peakFrame int
	err = pool.QueryRow(ctx,
		"SELECT avg_severity, peak_frame FROM video_statistics WHERE job_id=$1", jobID,
	).Scan(&statsAvg, &peakFrame)
	require.NoError(t, err)
	assert.Equal(t, dbSeverity, statsAvg)
	assert.GreaterOrEqual(t, peakFrame, 0)

	// Re-aggregating the stored frame records reproduces the persisted
	// statistics, and the records come back in strict index order
	records, err := frames.ListByJob(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, records, statusMsg.FramesAnalyzed)
	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i].FrameIndex, records[i-1].FrameIndex)
	}
	reagg := severity.Aggregate(records)
	assert.Equal(t, statsAvg, reagg.AvgSeverity)
	assert.Equal(t, peakFrame, reagg.PeakFrame)

	consumerCancel()

	t.Logf("job completed: %d frames analyzed, severity %.2f (%s)",
		statusMsg.FramesAnalyzed, statusMsg.Severity, statusMsg.RiskLevel)
}

func TestAnalyzeVideoMalformedMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Start PostgreSQL
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("sankalpa"),
		tcpostgres.WithUsername("sankalpa"),
		tcpostgres.WithPassword("sankalpa"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	err = postgres.RunMigrations(pgConnStr, "../../migrations")
	require.NoError(t, err)

	// A malformed message never reaches storage, so a placeholder endpoint
	// is enough here.
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     "localhost:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UploadBucket: "uploads",
		ResultBucket: "results",
	})
	require.NoError(t, err)

	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "sankalpa.video")
	require.NoError(t, err)
	statusPub := rabbitmq.NewStatusPublisher(pub, "video.analysis.status")
	dlqPub := rabbitmq.NewDLQPublisher(pub, "video.analysis.dlq")

	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	log, _ := logger.New("debug")
	client := inference.NewClient(inference.ClientConfig{
		DetectURL:  "http://localhost:9090/detect",
		SegmentURL: "http://localhost:9090/segment",
	})

	uc := usecase.NewAnalyzeVideoUseCase(
		postgres.NewJobRepository(pool),
		postgres.NewFrameRepository(pool),
		postgres.NewStatisticsRepository(pool),
		storage,
		ffmpeg.NewNormalizer(240, 15, log),
		ffmpeg.NewVideoIO("libx264", "mpeg4", log),
		client, client, ffmpeg.NoopReencoder{},
		statusPub, dlqPub,
		email.NewSMTPNotifier("localhost", 1025, "test@test.local", log),
		registry.New(),
		log,
		usecase.AnalyzeVideoConfig{TempDir: t.TempDir(), MaxRetries: 3},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "video.analysis",
		Exchange:    "sankalpa.video",
		DLQ:         "video.analysis.dlq",
		StatusQueue: "video.analysis.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()
	go func() {
		consumer.Start(consumerCtx)
	}()
	time.Sleep(500 * time.Millisecond)

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"sankalpa.video",
		"video.analysis",
		false, false,
		amqp.Publishing{ContentType: "application/json", Body: []byte("{not valid json")},
	)
	require.NoError(t, err)
	pubCh.Close()

	// The message must land on the DLQ, not be redelivered forever
	dlqCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer dlqCh.Close()

	dlqMsgs, err := dlqCh.Consume("video.analysis.dlq", "", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case delivery := <-dlqMsgs:
		assert.Equal(t, []byte("{not valid json"), delivery.Body)
		reason, _ := delivery.Headers["x-dlq-reason"].(string)
		assert.Contains(t, reason, "unmarshal_error")
	case <-time.After(time.Minute):
		t.Fatal("timeout waiting for DLQ message")
	}
}
