package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/cfg"
	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/archive"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/idgen"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/lock"
	"github.com/DRSN-tech/imgshrink/internal/infrastructure/transcoder"
	"github.com/DRSN-tech/imgshrink/internal/repository/local"
	"github.com/DRSN-tech/imgshrink/internal/usecase"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetrics struct {
	mu         sync.Mutex
	transcodes map[string]int
	downloads  map[string]int
	swept      int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{transcodes: map[string]int{}, downloads: map[string]int{}}
}

func (m *fakeMetrics) ObserveTranscode(_ domain.Format, outcome string, _, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcodes[outcome]++
}

func (m *fakeMetrics) IncDownload(mode, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads[mode+"/"+outcome]++
}

func (m *fakeMetrics) AddSwept(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swept += n
}

// recordingTranscoder запоминает параметры вызовов реального перекодировщика.
type recordingTranscoder struct {
	usecase.Transcoder
	mu        sync.Mutex
	qualities []int
	formats   []domain.Format
}

func (r *recordingTranscoder) Transcode(ctx context.Context, req *usecase.TranscodeReq) (*usecase.TranscodeRes, error) {
	r.mu.Lock()
	r.qualities = append(r.qualities, req.Quality)
	r.formats = append(r.formats, req.Format)
	r.mu.Unlock()
	return r.Transcoder.Transcode(ctx, req)
}

type failingStore struct {
	usecase.FileStore
}

func (failingStore) Put(context.Context, domain.ArtifactKey, []byte) error {
	return e.Wrap("put", e.ErrStoreWrite)
}

// brokenArchiver отдаёт сборщик, который падает на заданном Add или на Close.
type brokenArchiver struct {
	failAdd   int
	failClose bool
}

func (a brokenArchiver) NewBuilder(w io.Writer) usecase.ArchiveBuilder {
	return &brokenBuilder{ArchiveBuilder: archive.NewZipArchiver().NewBuilder(w), failAdd: a.failAdd, failClose: a.failClose}
}

type brokenBuilder struct {
	usecase.ArchiveBuilder
	adds      int
	failAdd   int
	failClose bool
}

func (b *brokenBuilder) Add(name string, data []byte) error {
	b.adds++
	if b.adds == b.failAdd {
		return errors.New("disk full")
	}
	return b.ArchiveBuilder.Add(name, data)
}

func (b *brokenBuilder) Close() error {
	if err := b.ArchiveBuilder.Close(); err != nil {
		return err
	}
	if b.failClose {
		return errors.New("flush failed")
	}
	return nil
}

type env struct {
	uc      *usecase.ImageUseCase
	store   *local.FileStore
	tr      *recordingTranscoder
	metrics *fakeMetrics
}

func newEnv(t *testing.T, locker usecase.KeyLocker) *env {
	t.Helper()

	store, err := local.NewFileStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)

	tr := &recordingTranscoder{Transcoder: transcoder.NewImageTranscoder()}
	metrics := newFakeMetrics()
	compression := &cfg.CompressionCfg{
		MaxBatchSize:   5,
		DefaultQuality: 30,
		DefaultFormat:  domain.FormatJPEG,
		Workers:        3,
	}

	uc := usecase.NewImageUC(tr, store, idgen.NewUUIDGenerator(), locker, archive.NewZipArchiver(), metrics, compression, logger.NewNopLogger())
	return &env{uc: uc, store: store, tr: tr, metrics: metrics}
}

func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 3), B: uint8(x ^ y), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func images(t *testing.T, n int) []usecase.UploadedImage {
	t.Helper()

	out := make([]usecase.UploadedImage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, *usecase.NewUploadedImage(gradientPNG(t, 48+i, 48), "image/png", "img.png"))
	}
	return out
}

func intPtr(v int) *int { return &v }

func storedFiles(t *testing.T, store *local.FileStore) int {
	t.Helper()

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	return len(entries)
}

func TestProcessBatch_CapsBatchSize(t *testing.T) {
	env := newEnv(t, nil)

	res, err := env.uc.ProcessBatch(context.Background(), usecase.NewProcessBatchReq(images(t, 7), nil, "JPEG"))
	require.NoError(t, err)

	assert.Len(t, res.Results, 5)
	assert.Equal(t, 5, storedFiles(t, env.store))

	seen := map[string]bool{}
	for _, r := range res.Results {
		assert.Len(t, r.ID, 36)
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
		assert.Equal(t, domain.FormatJPEG, r.Format)
		assert.Equal(t, r.SizeBeforeKB-r.SizeAfterKB, r.SavedKB)
	}
}

func TestProcessBatch_SkipsCorruptImages(t *testing.T) {
	env := newEnv(t, nil)

	batch := images(t, 2)
	corrupt := *usecase.NewUploadedImage([]byte("not an image at all"), "application/octet-stream", "broken.png")
	batch = []usecase.UploadedImage{batch[0], corrupt, batch[1]}

	res, err := env.uc.ProcessBatch(context.Background(), usecase.NewProcessBatchReq(batch, intPtr(50), "PNG"))
	require.NoError(t, err)

	assert.Len(t, res.Results, 2)
	assert.Equal(t, 2, storedFiles(t, env.store))
	assert.Equal(t, 1, env.metrics.transcodes["decode_error"])
	assert.Equal(t, 2, env.metrics.transcodes["ok"])
}

func TestProcessBatch_AllCorruptGivesEmptyResults(t *testing.T) {
	env := newEnv(t, nil)

	batch := []usecase.UploadedImage{*usecase.NewUploadedImage([]byte("garbage"), "", "x")}
	res, err := env.uc.ProcessBatch(context.Background(), usecase.NewProcessBatchReq(batch, nil, ""))
	require.NoError(t, err)

	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
}

func TestProcessBatch_Quality(t *testing.T) {
	tests := []struct {
		name    string
		quality *int
		want    int
	}{
		{"missing uses default", nil, 30},
		{"explicit", intPtr(75), 75},
		{"above range clamped", intPtr(150), 100},
		{"below range clamped", intPtr(0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, nil)

			res, err := env.uc.ProcessBatch(context.Background(), usecase.NewProcessBatchReq(images(t, 1), tt.quality, "JPEG"))
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Quality)
			assert.Equal(t, []int{tt.want}, env.tr.qualities)
		})
	}
}

func TestProcessBatch_MissingQualityMatchesThirty(t *testing.T) {
	src := images(t, 1)

	withDefault := newEnv(t, nil)
	a, err := withDefault.uc.ProcessBatch(context.Background(), usecase.NewProcessBatchReq(src, nil, "JPEG"))
	require.NoError(t, err)

	explicit := newEnv(t, nil)
	b, err := explicit.uc.ProcessBatch(context.Background(), usecase.NewProcessBatchReq(src, intPtr(30), "JPEG"))
	require.NoError(t, err)

	dlA, err := withDefault.uc.DownloadOne(context.Background(), usecase.NewDownloadOneReq(a.Results[0].ID, "jpeg"))
	require.NoError(t, err)
	dlB, err := explicit.uc.DownloadOne(context.Background(), usecase.NewDownloadOneReq(b.Results[0].ID, "jpeg"))
	require.NoError(t, err)

	assert.Equal(t, dlA.Data, dlB.Data)
}

func TestProcessBatch_Format(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Format
	}{
		{"", domain.FormatJPEG},
		{"jpg", domain.FormatJPEG},
		{"png", domain.FormatPNG},
		{"WebP", domain.FormatWEBP},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			env := newEnv(t, nil)

			res, err := env.uc.ProcessBatch(context.Background(), usecase.NewProcessBatchReq(images(t, 1), nil, tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Format)
			assert.Equal(t, []domain.Format{tt.want}, env.tr.formats)
		})
	}
}

func TestProcessBatch_UnsupportedFormat(t *testing.T) {
	env := newEnv(t, nil)

	_, err := env.uc.ProcessBatch(context.Background(), usecase.NewProcessBatchReq(images(t, 1), nil, "HEIC"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, e.ErrUnsupportedFormat))
	assert.Empty(t, env.tr.qualities)
}

func TestProcessBatch_StoreFailureExcludesImage(t *testing.T) {
	metrics := newFakeMetrics()
	uc := usecase.NewImageUC(
		transcoder.NewImageTranscoder(),
		failingStore{},
		idgen.NewUUIDGenerator(),
		nil,
		archive.NewZipArchiver(),
		metrics,
		&cfg.CompressionCfg{MaxBatchSize: 5, DefaultQuality: 30, DefaultFormat: domain.FormatJPEG, Workers: 1},
		logger.NewNopLogger(),
	)

	res, err := uc.ProcessBatch(context.Background(), usecase.NewProcessBatchReq(images(t, 2), nil, ""))
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, 2, metrics.transcodes["store_error"])
}

func TestDownloadOne_RoundTripConsumesArtifact(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	res, err := env.uc.ProcessBatch(ctx, usecase.NewProcessBatchReq(images(t, 1), nil, "PNG"))
	require.NoError(t, err)
	id := res.Results[0].ID

	dl, err := env.uc.DownloadOne(ctx, usecase.NewDownloadOneReq(id, "png"))
	require.NoError(t, err)
	assert.Equal(t, id+".png", dl.Name)
	assert.Equal(t, "image/png", dl.ContentType)
	assert.Equal(t, 1, dl.Entries)

	_, name, err := image.Decode(bytes.NewReader(dl.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", name)

	_, err = env.uc.DownloadOne(ctx, usecase.NewDownloadOneReq(id, "png"))
	assert.True(t, errors.Is(err, e.ErrNotFound))
	assert.Equal(t, 1, env.metrics.downloads["single/ok"])
	assert.Equal(t, 1, env.metrics.downloads["single/not_found"])
}

func TestDownloadOne_NotFound(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	res, err := env.uc.ProcessBatch(ctx, usecase.NewProcessBatchReq(images(t, 1), nil, "JPEG"))
	require.NoError(t, err)
	id := res.Results[0].ID

	tests := []struct {
		name   string
		id     string
		format string
	}{
		{"wrong format", id, "png"},
		{"unsupported format", id, "heic"},
		{"path traversal", "../" + id, "jpeg"},
		{"empty id", "", "jpeg"},
		{"unknown id", "7a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d", "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.uc.DownloadOne(ctx, usecase.NewDownloadOneReq(tt.id, tt.format))
			assert.True(t, errors.Is(err, e.ErrNotFound))
		})
	}

	// артефакт не тронут неудачными попытками
	_, err = env.uc.DownloadOne(ctx, usecase.NewDownloadOneReq(id, "JPG"))
	assert.NoError(t, err)
}

func TestDownloadOne_ConcurrentSingleWinnerWithLock(t *testing.T) {
	env := newEnv(t, lock.NewMemoryLocker())
	ctx := context.Background()

	res, err := env.uc.ProcessBatch(ctx, usecase.NewProcessBatchReq(images(t, 1), nil, "JPEG"))
	require.NoError(t, err)
	id := res.Results[0].ID

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.uc.DownloadOne(ctx, usecase.NewDownloadOneReq(id, "jpeg")); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = body
	}
	return out
}

func TestDownloadMany_SkipsMissingAndConsumes(t *testing.T) {
	env := newEnv(t, lock.NewMemoryLocker())
	ctx := context.Background()

	res, err := env.uc.ProcessBatch(ctx, usecase.NewProcessBatchReq(images(t, 2), nil, "JPEG"))
	require.NoError(t, err)
	a, b := res.Results[0].ID, res.Results[1].ID

	ids := []string{a, "7a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d", "../etc/passwd", a, b}
	dl, err := env.uc.DownloadMany(ctx, usecase.NewDownloadManyReq(ids, "jpeg"))
	require.NoError(t, err)

	assert.Equal(t, usecase.ArchiveName, dl.Name)
	assert.Equal(t, "application/zip", dl.ContentType)
	assert.Equal(t, 2, dl.Entries)

	files := readZip(t, dl.Data)
	assert.Len(t, files, 2)
	assert.Contains(t, files, a+".jpeg")
	assert.Contains(t, files, b+".jpeg")

	assert.Zero(t, storedFiles(t, env.store))

	_, err = env.uc.DownloadOne(ctx, usecase.NewDownloadOneReq(a, "jpeg"))
	assert.True(t, errors.Is(err, e.ErrNotFound))
}

func TestDownloadMany_FailedArchiveKeepsArtifacts(t *testing.T) {
	tests := []struct {
		name     string
		archiver brokenArchiver
	}{
		{"add fails on second entry", brokenArchiver{failAdd: 2}},
		{"close fails", brokenArchiver{failClose: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, err := local.NewFileStore(t.TempDir(), logger.NewNopLogger())
			require.NoError(t, err)

			compression := &cfg.CompressionCfg{MaxBatchSize: 5, DefaultQuality: 30, DefaultFormat: domain.FormatJPEG, Workers: 2}
			uc := usecase.NewImageUC(transcoder.NewImageTranscoder(), store, idgen.NewUUIDGenerator(), lock.NewMemoryLocker(),
				tt.archiver, newFakeMetrics(), compression, logger.NewNopLogger())

			res, err := uc.ProcessBatch(ctx, usecase.NewProcessBatchReq(images(t, 2), nil, "JPEG"))
			require.NoError(t, err)
			a, b := res.Results[0].ID, res.Results[1].ID

			_, err = uc.DownloadMany(ctx, usecase.NewDownloadManyReq([]string{a, b}, "jpeg"))
			require.Error(t, err)
			assert.Equal(t, 2, storedFiles(t, store))

			dl, err := uc.DownloadOne(ctx, usecase.NewDownloadOneReq(a, "jpeg"))
			require.NoError(t, err)
			assert.Equal(t, a+".jpeg", dl.Name)
		})
	}
}

func TestDownloadMany_WrongFormatLeavesArtifacts(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	res, err := env.uc.ProcessBatch(ctx, usecase.NewProcessBatchReq(images(t, 1), nil, "JPEG"))
	require.NoError(t, err)

	dl, err := env.uc.DownloadMany(ctx, usecase.NewDownloadManyReq([]string{res.Results[0].ID}, "png"))
	require.NoError(t, err)
	assert.Zero(t, dl.Entries)
	assert.Empty(t, readZip(t, dl.Data))
	assert.Equal(t, 1, storedFiles(t, env.store))
}

func TestDownloadMany_EmptyRequestGivesEmptyArchive(t *testing.T) {
	env := newEnv(t, nil)

	dl, err := env.uc.DownloadMany(context.Background(), usecase.NewDownloadManyReq(nil, ""))
	require.NoError(t, err)
	assert.Zero(t, dl.Entries)
	assert.Empty(t, readZip(t, dl.Data))
	assert.Equal(t, 1, env.metrics.downloads["archive/not_found"])
}

func TestDownloadOne_EmptyFormatMeansJPEG(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	res, err := env.uc.ProcessBatch(ctx, usecase.NewProcessBatchReq(images(t, 1), nil, ""))
	require.NoError(t, err)

	dl, err := env.uc.DownloadOne(ctx, usecase.NewDownloadOneReq(res.Results[0].ID, ""))
	require.NoError(t, err)
	assert.Equal(t, res.Results[0].ID+".jpeg", dl.Name)
}
