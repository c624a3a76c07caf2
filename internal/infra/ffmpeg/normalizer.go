package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os/exec"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
	"go.uber.org/zap"
)

// Normalizer re-encodes source videos to the canonical height and frame
// rate. Frame-rate reduction keeps only frames whose original index is a
// multiple of the stride, matching the downstream timestamp arithmetic.
type Normalizer struct {
	targetHeight int
	targetFPS    int
	logger       *zap.Logger
}

func NewNormalizer(targetHeight, targetFPS int, logger *zap.Logger) *Normalizer {
	return &Normalizer{targetHeight: targetHeight, targetFPS: targetFPS, logger: logger}
}

func (n *Normalizer) Normalize(ctx context.Context, sourcePath, outPath string) (*port.VideoMeta, error) {
	src, err := Probe(ctx, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("probe source: %w", err)
	}
	if src.FPS <= 0 {
		return nil, fmt.Errorf("source has invalid frame rate %.3f", src.FPS)
	}
	if src.Width <= 0 || src.Height <= 0 {
		return nil, fmt.Errorf("source has invalid dimensions %dx%d", src.Width, src.Height)
	}

	stride := Stride(src.FPS, n.targetFPS)
	width, height := TargetDims(src.Width, src.Height, n.targetHeight)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", sourcePath,
		"-vf", fmt.Sprintf("select=not(mod(n\\,%d)),scale=%d:%d", stride, width, height),
		"-vsync", "vfr",
		"-r", fmt.Sprintf("%d", n.targetFPS),
		"-an",
		"-y",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg normalize: %w, output: %s", err, string(output))
	}

	out, err := Probe(ctx, outPath)
	if err != nil {
		return nil, fmt.Errorf("probe canonical output: %w", err)
	}
	if out.FrameCount == 0 {
		return nil, fmt.Errorf("canonical output has no frames")
	}

	meta := &port.VideoMeta{
		Width:      width,
		Height:     height,
		FPS:        float64(n.targetFPS),
		FrameCount: out.FrameCount,
		Duration:   float64(out.FrameCount) / float64(n.targetFPS),
	}

	n.logger.Info("video normalized",
		zap.Int("stride", stride),
		zap.Int("source_frames", src.FrameCount),
		zap.Int("canonical_frames", meta.FrameCount),
		zap.Float64("source_fps", src.FPS),
		zap.Int("target_fps", n.targetFPS),
		zap.String("resolution", fmt.Sprintf("%dx%d", width, height)),
	)
	return meta, nil
}

// Stride is the frame-skip interval used to reduce the frame rate.
func Stride(sourceFPS float64, targetFPS int) int {
	if targetFPS <= 0 {
		return 1
	}
	stride := int(math.Floor(sourceFPS / float64(targetFPS)))
	if stride < 1 {
		return 1
	}
	return stride
}

// TargetDims scales to the target height preserving aspect ratio, forcing
// both dimensions even as some codecs require.
func TargetDims(srcWidth, srcHeight, targetHeight int) (int, int) {
	width := int(float64(targetHeight) * float64(srcWidth) / float64(srcHeight))
	return width - width%2, targetHeight - targetHeight%2
}
