package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
	"go.uber.org/zap"
)

// VideoIO decodes and encodes frame streams over ffmpeg rawvideo pipes.
// Encoding tries the primary codec and falls back once when the primary is
// unavailable; if neither encoder exists, sink creation fails.
type VideoIO struct {
	primaryCodec  string
	fallbackCodec string
	logger        *zap.Logger

	mu       sync.Mutex
	encoders map[string]bool
}

func NewVideoIO(primaryCodec, fallbackCodec string, logger *zap.Logger) *VideoIO {
	return &VideoIO{
		primaryCodec:  primaryCodec,
		fallbackCodec: fallbackCodec,
		logger:        logger,
		encoders:      map[string]bool{},
	}
}

func (v *VideoIO) OpenSource(ctx context.Context, path string, meta port.VideoMeta) (port.FrameSource, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start frame decoder: %w", err)
	}
	return &frameSource{cmd: cmd, out: stdout, width: meta.Width, height: meta.Height}, nil
}

func (v *VideoIO) CreateSink(ctx context.Context, path string, meta port.VideoMeta) (port.FrameSink, error) {
	codec, err := v.selectCodec(ctx)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		"-framerate", fmt.Sprintf("%.3f", meta.FPS),
		"-i", "-",
		"-c:v", codec,
		"-pix_fmt", "yuv420p",
		"-y",
		path,
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start frame encoder (%s): %w", codec, err)
	}

	v.logger.Debug("frame sink created", zap.String("path", path), zap.String("codec", codec))
	return &frameSink{cmd: cmd, in: stdin, width: meta.Width, height: meta.Height}, nil
}

// selectCodec picks the first available encoder, probing ffmpeg once per
// codec name and caching the answer.
func (v *VideoIO) selectCodec(ctx context.Context) (string, error) {
	for _, codec := range []string{v.primaryCodec, v.fallbackCodec} {
		if v.encoderAvailable(ctx, codec) {
			if codec != v.primaryCodec {
				v.logger.Warn("primary codec unavailable, using fallback",
					zap.String("primary", v.primaryCodec),
					zap.String("fallback", codec),
				)
			}
			return codec, nil
		}
	}
	return "", fmt.Errorf("no usable encoder: tried %s, %s", v.primaryCodec, v.fallbackCodec)
}

func (v *VideoIO) encoderAvailable(ctx context.Context, codec string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if available, ok := v.encoders[codec]; ok {
		return available
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-h", fmt.Sprintf("encoder=%s", codec))
	output, err := cmd.CombinedOutput()
	available := err == nil && !strings.Contains(string(output), "is not recognized")
	v.encoders[codec] = available
	return available
}

type frameSource struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	width  int
	height int
}

func (s *frameSource) Next() (*image.RGBA, error) {
	frame := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	_, err := io.ReadFull(s.out, frame.Pix)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return frame, nil
}

func (s *frameSource) Close() error {
	s.out.Close()
	if err := s.cmd.Wait(); err != nil {
		// The decoder is killed mid-stream when the reader stops early;
		// that is not a failure of the frames already read.
		return nil
	}
	return nil
}

type frameSink struct {
	cmd    *exec.Cmd
	in     io.WriteCloser
	width  int
	height int
}

func (s *frameSink) Write(frame *image.RGBA) error {
	bounds := frame.Bounds()
	if bounds.Dx() != s.width || bounds.Dy() != s.height {
		return fmt.Errorf("frame size %dx%d does not match stream %dx%d",
			bounds.Dx(), bounds.Dy(), s.width, s.height)
	}
	if _, err := s.in.Write(frame.Pix); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (s *frameSink) Close() error {
	if err := s.in.Close(); err != nil {
		return fmt.Errorf("close encoder input: %w", err)
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("finalize encoded stream: %w", err)
	}
	return nil
}
