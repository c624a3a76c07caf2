package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/config"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/email"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/ffmpeg"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/inference"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/metrics"
	miniostorage "github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/minio"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/postgres"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/rabbitmq"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/infra/tracing"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/registry"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/usecase"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting sankalpa-video-analysis")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		ResultBucket: cfg.MinIOResultBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	jobs := postgres.NewJobRepository(pool)
	frames := postgres.NewFrameRepository(pool)
	stats := postgres.NewStatisticsRepository(pool)
	normalizer := ffmpeg.NewNormalizer(cfg.TargetHeight, cfg.TargetFPS, log)
	videoIO := ffmpeg.NewVideoIO(cfg.PrimaryCodec, cfg.FallbackCodec, log)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// The inference client serves both the detection and segmentation ports.
	client := inference.NewClient(inference.ClientConfig{
		DetectURL:  cfg.DetectURL,
		SegmentURL: cfg.SegmentURL,
		Timeout:    time.Duration(cfg.FrameTimeoutMs) * time.Millisecond,
	})

	var reencoder port.Reencoder = ffmpeg.NewReencoder(log)
	if !cfg.ReencodeOutputs {
		reencoder = ffmpeg.NoopReencoder{}
	}

	// Use case
	uc := usecase.NewAnalyzeVideoUseCase(
		jobs, frames, stats, storage,
		normalizer, videoIO, client, client, reencoder,
		statusPub, dlqPub, notifier,
		registry.New(),
		log,
		usecase.AnalyzeVideoConfig{
			TempDir:        cfg.TempDir,
			MaxRetries:     cfg.MaxRetries,
			FrameBatchSize: cfg.FrameBatchSize,
			FrameTimeout:   time.Duration(cfg.FrameTimeoutMs) * time.Millisecond,
			JobTimeout:     time.Duration(cfg.JobTimeoutMin) * time.Minute,
			MaxSourceBytes: cfg.MaxSourceMB * 1024 * 1024,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQAnalysisQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("sankalpa-video-analysis started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("sankalpa-video-analysis stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
