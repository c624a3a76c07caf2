package port

import "context"

type VideoStorage interface {
	SourceSize(ctx context.Context, objectKey string) (int64, error)
	DownloadSource(ctx context.Context, objectKey string, destPath string) error
	UploadResult(ctx context.Context, objectKey string, filePath string) error
}
