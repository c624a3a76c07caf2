package minio

import (
	"context"
	"fmt"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Storage struct {
	client       *miniogo.Client
	uploadBucket string
	resultBucket string
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UploadBucket string
	ResultBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:       client,
		uploadBucket: cfg.UploadBucket,
		resultBucket: cfg.ResultBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadBucket, s.resultBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

func (s *Storage) SourceSize(ctx context.Context, objectKey string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.uploadBucket, objectKey, miniogo.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("stat source %s: %w", objectKey, err)
	}
	return info.Size, nil
}

func (s *Storage) DownloadSource(ctx context.Context, objectKey string, destPath string) error {
	return s.client.FGetObject(ctx, s.uploadBucket, objectKey, destPath, miniogo.GetObjectOptions{})
}

func (s *Storage) UploadResult(ctx context.Context, objectKey string, filePath string) error {
	_, err := s.client.FPutObject(ctx, s.resultBucket, objectKey, filePath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return fmt.Errorf("upload result %s: %w", objectKey, err)
	}
	return nil
}
