package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-compressor/internal/compress"
	"github.com/aliskhannn/image-compressor/internal/model"
	jobrepo "github.com/aliskhannn/image-compressor/internal/repository/job"
)

const (
	originalPrefix   = "original"
	compressedPrefix = "compressed"
)

// ErrJobNotReady is returned when the result of a job that has not been
// processed is requested.
var ErrJobNotReady = errors.New("job is not processed")

// compressor defines the image compression pipeline.
type compressor interface {
	Defaults() compress.Options
	Compress(ctx context.Context, f compress.File, ov compress.Overrides) (*compress.Result, error)
	FileToBase64(ctx context.Context, f compress.File) (string, error)
}

// fileStorage defines the interface for object storage (e.g., MinIO).
type fileStorage interface {
	Save(ctx context.Context, prefix, filename string, src io.Reader, size int64, contentType string) (string, error)
	Load(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
}

// producer defines the interface for enqueueing jobs into a message broker.
type producer interface {
	Produce(ctx context.Context, job model.Job) error
}

// jobRepository defines the interface for job records.
type jobRepository interface {
	SaveJob(ctx context.Context, job model.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (model.Job, error)
	UpdateJob(ctx context.Context, job model.Job) error
	DeleteJob(ctx context.Context, id uuid.UUID) error
}

// Service provides business logic for image compression. Small images are
// compressed inline; jobs store the original, queue it and keep the
// compressed result in object storage.
type Service struct {
	compressor  compressor
	fileStorage fileStorage
	producer    producer
	repo        jobRepository
	now         func() time.Time
}

// NewService creates a new Service.
func NewService(c compressor, fs fileStorage, p producer, r jobRepository) *Service {
	return &Service{
		compressor:  c,
		fileStorage: fs,
		producer:    p,
		repo:        r,
		now:         time.Now,
	}
}

// Compress compresses the file synchronously. A nil file yields a nil result.
func (s *Service) Compress(ctx context.Context, f compress.File, ov compress.Overrides) (*compress.Result, error) {
	return s.compressor.Compress(ctx, f, ov)
}

// FileToBase64 returns the file as a data URL without compressing it.
func (s *Service) FileToBase64(ctx context.Context, f compress.File) (string, error) {
	return s.compressor.FileToBase64(ctx, f)
}

// SubmitJob stores the original file, records a pending job and enqueues it
// for asynchronous compression.
func (s *Service) SubmitJob(ctx context.Context, f compress.File, ov compress.Overrides) (uuid.UUID, error) {
	if f == nil {
		return uuid.Nil, fmt.Errorf("submit: %w", compress.ErrMissingInput)
	}

	if err := s.compressor.Defaults().Merge(ov).Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("submit: %w", err)
	}

	data, err := readAll(f)
	if err != nil {
		return uuid.Nil, fmt.Errorf("submit: failed to read file: %w", err)
	}

	contentType := f.Type()
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	id := uuid.New()
	dst, err := s.fileStorage.Save(ctx, originalPrefix, objectName(id, f.Name(), contentType), bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return uuid.Nil, fmt.Errorf("submit: failed to save file: %w", err)
	}

	now := s.now().UTC()
	job := model.Job{
		ID:           id,
		Filename:     f.Name(),
		ContentType:  contentType,
		OriginalPath: dst,
		Options:      ov,
		Status:       model.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.SaveJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("submit: failed to save job: %w", err)
	}

	if err := s.producer.Produce(ctx, job); err != nil {
		_, _ = s.markFailed(ctx, job, err)
		return uuid.Nil, fmt.Errorf("submit: failed to enqueue job: %w", err)
	}

	return id, nil
}

// ProcessJob compresses the original of a queued job and stores the result.
// Jobs that fail are recorded as failed with the error message.
func (s *Service) ProcessJob(ctx context.Context, queued model.Job) (model.Job, error) {
	job, err := s.repo.GetJob(ctx, queued.ID)
	if err != nil {
		return model.Job{}, fmt.Errorf("process: %w", err)
	}

	if job.Status == model.StatusProcessed {
		return job, nil
	}

	src, err := s.fileStorage.Load(ctx, job.OriginalPath)
	if err != nil {
		return s.markFailed(ctx, job, err)
	}
	data, err := io.ReadAll(src)
	_ = src.Close()
	if err != nil {
		return s.markFailed(ctx, job, fmt.Errorf("failed to read original: %w", err))
	}

	res, err := s.compressor.Compress(ctx, compress.NewBytesFile(job.Filename, job.ContentType, data), job.Options)
	if err != nil {
		return s.markFailed(ctx, job, err)
	}

	out, err := res.Bytes()
	if err != nil {
		return s.markFailed(ctx, job, err)
	}

	resultType := encodedType(res, out)
	dst, err := s.fileStorage.Save(ctx, compressedPrefix, objectName(job.ID, job.Filename, resultType), bytes.NewReader(out), int64(len(out)), resultType)
	if err != nil {
		return s.markFailed(ctx, job, err)
	}

	job.ResultPath = dst
	job.ResultType = resultType
	job.Width = res.Width
	job.Height = res.Height
	job.Status = model.StatusProcessed
	job.Error = ""
	job.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateJob(ctx, job); err != nil {
		if errors.Is(err, jobrepo.ErrJobNotFound) {
			// Deleted while compressing: drop the result nothing points to.
			if derr := s.fileStorage.Delete(ctx, dst); derr != nil {
				zlog.Logger.Err(derr).Str("id", job.ID.String()).Msg("failed to delete orphaned result")
			}
		}
		return model.Job{}, fmt.Errorf("process: failed to update job: %w", err)
	}

	zlog.Logger.Info().
		Str("id", job.ID.String()).
		Str("result", dst).
		Int("size", len(out)).
		Msg("job processed")

	return job, nil
}

// GetJob returns the job record.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (model.Job, error) {
	return s.repo.GetJob(ctx, id)
}

// GetResult returns a reader over the compressed image and its content type.
func (s *Service) GetResult(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if job.Status != model.StatusProcessed {
		return nil, "", ErrJobNotReady
	}

	r, err := s.fileStorage.Load(ctx, job.ResultPath)
	if err != nil {
		return nil, "", fmt.Errorf("get result: %w", err)
	}

	return r, job.ResultType, nil
}

// DeleteJob removes the stored objects and the job record.
func (s *Service) DeleteJob(ctx context.Context, id uuid.UUID) error {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return err
	}

	for _, obj := range []string{job.OriginalPath, job.ResultPath} {
		if obj == "" {
			continue
		}
		if err := s.fileStorage.Delete(ctx, obj); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
	}

	return s.repo.DeleteJob(ctx, id)
}

func (s *Service) markFailed(ctx context.Context, job model.Job, cause error) (model.Job, error) {
	job.Status = model.StatusFailed
	job.Error = cause.Error()
	job.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateJob(ctx, job); err != nil {
		zlog.Logger.Err(err).Str("id", job.ID.String()).Msg("failed to mark job as failed")
	}

	return job, fmt.Errorf("process job %s: %w", job.ID, cause)
}

// encodedType returns the type of the encoded bytes. A blob built from a data
// URL carries the requested type even when the encoder fell back to PNG.
func encodedType(res *compress.Result, data []byte) string {
	if m := mimetype.Detect(data); m.Is("image/jpeg") || m.Is("image/png") ||
		m.Is("image/gif") || m.Is("image/bmp") || m.Is("image/tiff") {
		return m.String()
	}
	return res.MimeType()
}

func readAll(f compress.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// objectName builds a unique object name, keeping an extension that matches
// the content type.
func objectName(id uuid.UUID, filename, contentType string) string {
	ext := path.Ext(filename)
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}

	return id.String() + ext
}
