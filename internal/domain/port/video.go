package port

import (
	"context"
	"image"
)

// VideoMeta describes a decoded video stream.
type VideoMeta struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	Duration   float64
}

// Normalizer re-encodes a source video to the canonical resolution and
// frame rate. It either completes fully or fails; there is no partial
// success.
type Normalizer interface {
	Normalize(ctx context.Context, sourcePath, outPath string) (*VideoMeta, error)
}

// FrameSource yields frames in strict index order. Next returns io.EOF when
// the stream is exhausted.
type FrameSource interface {
	Next() (*image.RGBA, error)
	Close() error
}

// FrameSink writes frames in the order given. Close finalizes the encoded
// stream and reports encoder failures.
type FrameSink interface {
	Write(frame *image.RGBA) error
	Close() error
}

// VideoIO opens decode/encode streams for the frame loop.
type VideoIO interface {
	OpenSource(ctx context.Context, path string, meta VideoMeta) (FrameSource, error)
	CreateSink(ctx context.Context, path string, meta VideoMeta) (FrameSink, error)
}

// Reencoder is the optional best-effort post-processing step that rewrites
// an output video for broader playback compatibility. Failures never fail
// the job; the originally written file is kept.
type Reencoder interface {
	Reencode(ctx context.Context, path string) error
}
