package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// Reencoder rewrites an output video with a browser-friendly codec profile.
// The original file is restored when re-encoding fails.
type Reencoder struct {
	logger *zap.Logger
}

func NewReencoder(logger *zap.Logger) *Reencoder {
	return &Reencoder{logger: logger}
}

func (r *Reencoder) Reencode(ctx context.Context, path string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not in PATH: %w", err)
	}

	tempPath := path + ".orig.mp4"
	if err := os.Rename(path, tempPath); err != nil {
		return fmt.Errorf("stage original: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", tempPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-y",
		path,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Put the originally written file back; re-encode is best-effort.
		if restoreErr := os.Rename(tempPath, path); restoreErr != nil {
			r.logger.Error("failed to restore original after re-encode failure",
				zap.String("path", path), zap.Error(restoreErr))
		}
		return fmt.Errorf("re-encode: %w, output: %s", err, string(output))
	}

	os.Remove(tempPath)
	r.logger.Info("output re-encoded for playback compatibility", zap.String("path", path))
	return nil
}

// NoopReencoder is the strategy used when post-processing is disabled.
type NoopReencoder struct{}

func (NoopReencoder) Reencode(context.Context, string) error { return nil }
