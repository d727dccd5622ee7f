package image

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/image-compressor/internal/compress"
	"github.com/aliskhannn/image-compressor/internal/model"
	jobrepo "github.com/aliskhannn/image-compressor/internal/repository/job"
	"github.com/aliskhannn/image-compressor/internal/storage/kv"
)

type object struct {
	data        []byte
	contentType string
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string]object
	saveErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string]object{}}
}

func (m *memoryStorage) Save(_ context.Context, prefix, filename string, src io.Reader, _ int64, contentType string) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	name := prefix + "/" + filename
	m.objects[name] = object{data: data, contentType: contentType}
	return name, nil
}

func (m *memoryStorage) Load(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[name]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *memoryStorage) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

type recordingProducer struct {
	jobs []model.Job
	err  error
}

func (p *recordingProducer) Produce(_ context.Context, job model.Job) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

type fixture struct {
	svc      *Service
	storage  *memoryStorage
	producer *recordingProducer
	repo     *jobrepo.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, compress.DefaultConfig())
}

func newFixtureWith(t *testing.T, cfg compress.Config) *fixture {
	t.Helper()
	b, err := kv.NewBuntBackend(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	f := &fixture{
		storage:  newMemoryStorage(),
		producer: &recordingProducer{},
		repo:     jobrepo.NewRepository(kv.New(b, jobrepo.Prefix), time.Hour),
	}
	f.svc = NewService(compress.New(cfg), f.storage, f.producer, f.repo)
	return f
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func TestCompressNilFile(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Compress(context.Background(), nil, compress.Overrides{})
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestFileToBase64(t *testing.T) {
	f := newFixture(t)
	got, err := f.svc.FileToBase64(context.Background(), compress.NewBytesFile("a.jpg", "image/jpeg", []byte{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,AQID", got)
}

func TestSubmitAndProcessJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	maxWidth := 100
	id, err := f.svc.SubmitJob(ctx, compress.NewBytesFile("photo.jpg", "image/jpeg", testJPEG(t, 400, 200)), compress.Overrides{MaxWidth: &maxWidth})
	require.NoError(t, err)

	job, err := f.svc.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, job.Status)
	assert.Equal(t, "photo.jpg", job.Filename)
	assert.Equal(t, "original/"+id.String()+".jpg", job.OriginalPath)

	require.Len(t, f.producer.jobs, 1)
	assert.Equal(t, id, f.producer.jobs[0].ID)

	_, _, err = f.svc.GetResult(ctx, id)
	assert.ErrorIs(t, err, ErrJobNotReady)

	processed, err := f.svc.ProcessJob(ctx, f.producer.jobs[0])
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessed, processed.Status)
	assert.Equal(t, 100, processed.Width)
	assert.Equal(t, 50, processed.Height)
	assert.Equal(t, "image/jpeg", processed.ResultType)
	assert.True(t, strings.HasPrefix(processed.ResultPath, "compressed/"))

	r, contentType, err := f.svc.GetResult(ctx, id)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "image/jpeg", contentType)

	img, err := jpeg.Decode(r)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestSubmitJobSniffsContentType(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.SubmitJob(context.Background(), compress.NewBytesFile("upload", "", testJPEG(t, 8, 8)), compress.Overrides{})
	require.NoError(t, err)

	job, err := f.svc.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", job.ContentType)
	assert.Equal(t, "image/jpeg", f.storage.objects[job.OriginalPath].contentType)
}

func TestSubmitJobRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SubmitJob(context.Background(), nil, compress.Overrides{})
	assert.ErrorIs(t, err, compress.ErrMissingInput)

	zero := 0
	_, err = f.svc.SubmitJob(context.Background(), compress.NewBytesFile("a.jpg", "image/jpeg", []byte{1}), compress.Overrides{MaxHeight: &zero})
	assert.True(t, compress.IsKind(err, compress.KindInvalidOptions))

	assert.Empty(t, f.storage.objects)
	assert.Empty(t, f.producer.jobs)
}

func TestSubmitJobEnqueueFailure(t *testing.T) {
	f := newFixture(t)
	f.producer.err = errors.New("broker down")

	_, err := f.svc.SubmitJob(context.Background(), compress.NewBytesFile("a.jpg", "image/jpeg", testJPEG(t, 8, 8)), compress.Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestSubmitJobStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.storage.saveErr = errors.New("bucket gone")

	_, err := f.svc.SubmitJob(context.Background(), compress.NewBytesFile("a.jpg", "image/jpeg", testJPEG(t, 8, 8)), compress.Overrides{})
	require.Error(t, err)
	assert.Empty(t, f.producer.jobs)
}

func TestProcessJobMarksFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitJob(ctx, compress.NewBytesFile("bad.jpg", "image/jpeg", []byte("not a jpeg")), compress.Overrides{})
	require.NoError(t, err)

	_, err = f.svc.ProcessJob(ctx, model.Job{ID: id})
	require.Error(t, err)
	assert.True(t, compress.IsKind(err, compress.KindDecode))

	job, err := f.svc.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)

	_, _, err = f.svc.GetResult(ctx, id)
	assert.ErrorIs(t, err, ErrJobNotReady)
}

func TestProcessUnknownJob(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ProcessJob(context.Background(), model.Job{ID: uuid.New()})
	assert.ErrorIs(t, err, jobrepo.ErrJobNotFound)
}

func TestDeleteJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitJob(ctx, compress.NewBytesFile("a.jpg", "image/jpeg", testJPEG(t, 16, 16)), compress.Overrides{})
	require.NoError(t, err)
	_, err = f.svc.ProcessJob(ctx, model.Job{ID: id})
	require.NoError(t, err)
	assert.Len(t, f.storage.objects, 2)

	require.NoError(t, f.svc.DeleteJob(ctx, id))
	assert.Empty(t, f.storage.objects)

	_, err = f.svc.GetJob(ctx, id)
	assert.ErrorIs(t, err, jobrepo.ErrJobNotFound)
	assert.ErrorIs(t, f.svc.DeleteJob(ctx, id), jobrepo.ErrJobNotFound)
}

func TestObjectName(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, id.String()+".png", objectName(id, "photo.jpg", "image/png"))
	assert.Equal(t, id.String()+".jpg", objectName(id, "photo.jpeg", "image/jpeg"))
	assert.Equal(t, id.String()+".bin", objectName(id, "photo.bin", "application/x-unknown"))
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestProcessJobStoresEncodedType(t *testing.T) {
	cfg := compress.DefaultConfig()
	cfg.NativeBlob = false
	f := newFixtureWith(t, cfg)
	ctx := context.Background()

	// Declared as webp, which the encoder cannot produce, so the output is PNG.
	blob := compress.ResultBlob
	id, err := f.svc.SubmitJob(ctx, compress.NewBytesFile("pic.webp", "image/webp", testPNG(t, 20, 10)), compress.Overrides{Result: &blob})
	require.NoError(t, err)

	job, err := f.svc.ProcessJob(ctx, model.Job{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "image/png", job.ResultType)
	assert.True(t, strings.HasSuffix(job.ResultPath, ".png"), job.ResultPath)
	assert.Equal(t, "image/png", f.storage.objects[job.ResultPath].contentType)

	_, contentType, err := f.svc.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
}

// vanishingRepo deletes the job right before it is updated, as a concurrent
// DeleteJob would.
type vanishingRepo struct {
	*jobrepo.Repository
}

func (r vanishingRepo) UpdateJob(ctx context.Context, job model.Job) error {
	_ = r.Repository.DeleteJob(ctx, job.ID)
	return r.Repository.UpdateJob(ctx, job)
}

func TestProcessJobDropsResultOfDeletedJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SubmitJob(ctx, compress.NewBytesFile("a.jpg", "image/jpeg", testJPEG(t, 16, 16)), compress.Overrides{})
	require.NoError(t, err)
	job, err := f.svc.GetJob(ctx, id)
	require.NoError(t, err)

	svc := NewService(compress.New(compress.DefaultConfig()), f.storage, f.producer, vanishingRepo{f.repo})
	_, err = svc.ProcessJob(ctx, model.Job{ID: id})
	assert.ErrorIs(t, err, jobrepo.ErrJobNotFound)

	require.Len(t, f.storage.objects, 1)
	_, ok := f.storage.objects[job.OriginalPath]
	assert.True(t, ok, "only the original should remain")
}
