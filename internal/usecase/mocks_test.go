package usecase

import (
	"context"
	"image"
	"io"
	"strings"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/entity"
	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *entity.VideoJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) Update(ctx context.Context, job *entity.VideoJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.VideoJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VideoJob), args.Error(1)
}

type MockFrameRepository struct {
	mock.Mock
}

func (m *MockFrameRepository) AppendBatch(ctx context.Context, records []entity.FrameRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockFrameRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.FrameRecord, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FrameRecord), args.Error(1)
}

type MockStatisticsRepository struct {
	mock.Mock
}

func (m *MockStatisticsRepository) Create(ctx context.Context, stats *entity.VideoStatistics) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

type MockVideoStorage struct {
	mock.Mock
}

func (m *MockVideoStorage) SourceSize(ctx context.Context, objectKey string) (int64, error) {
	args := m.Called(ctx, objectKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVideoStorage) DownloadSource(ctx context.Context, objectKey string, destPath string) error {
	args := m.Called(ctx, objectKey, destPath)
	return args.Error(0)
}

func (m *MockVideoStorage) UploadResult(ctx context.Context, objectKey string, filePath string) error {
	args := m.Called(ctx, objectKey, filePath)
	return args.Error(0)
}

type MockNormalizer struct {
	mock.Mock
}

func (m *MockNormalizer) Normalize(ctx context.Context, sourcePath, outPath string) (*port.VideoMeta, error) {
	args := m.Called(ctx, sourcePath, outPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.VideoMeta), args.Error(1)
}

type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(ctx context.Context, frame *image.RGBA) (*port.Detection, error) {
	args := m.Called(ctx, frame)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Detection), args.Error(1)
}

type MockSegmenter struct {
	mock.Mock
}

func (m *MockSegmenter) Segment(ctx context.Context, frame *image.RGBA) (*port.Segmentation, error) {
	args := m.Called(ctx, frame)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Segmentation), args.Error(1)
}

type MockReencoder struct {
	mock.Mock
}

func (m *MockReencoder) Reencode(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

type MockStatusPublisher struct {
	mock.Mock
}

func (m *MockStatusPublisher) PublishStatus(ctx context.Context, msg []byte) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockDLQPublisher struct {
	mock.Mock
}

func (m *MockDLQPublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	args := m.Called(ctx, msg, reason)
	return args.Error(0)
}

type MockFailureNotifier struct {
	mock.Mock
}

func (m *MockFailureNotifier) NotifyFailure(ctx context.Context, userEmail, jobID, videoKey, errorMsg string) error {
	args := m.Called(ctx, userEmail, jobID, videoKey, errorMsg)
	return args.Error(0)
}

// The frame streams are driven by the loop itself, so plain stubs are easier
// to steer than call-recording mocks.

type stubFrameSource struct {
	frames []*image.RGBA
	next   int
}

func (s *stubFrameSource) Next() (*image.RGBA, error) {
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *stubFrameSource) Close() error { return nil }

type stubFrameSink struct {
	written  int
	writeErr error
	closeErr error
}

func (s *stubFrameSink) Write(frame *image.RGBA) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written++
	return nil
}

func (s *stubFrameSink) Close() error { return s.closeErr }

type stubVideoIO struct {
	source  *stubFrameSource
	detSink *stubFrameSink
	segSink *stubFrameSink
	openErr error
	sinkErr error
}

func (s *stubVideoIO) OpenSource(ctx context.Context, path string, meta port.VideoMeta) (port.FrameSource, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.source, nil
}

func (s *stubVideoIO) CreateSink(ctx context.Context, path string, meta port.VideoMeta) (port.FrameSink, error) {
	if s.sinkErr != nil {
		return nil, s.sinkErr
	}
	if strings.Contains(path, "segmentation") {
		return s.segSink, nil
	}
	return s.detSink, nil
}
