package usecase

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/cfg"
	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	// ArchiveName — имя архива при пакетном скачивании.
	ArchiveName = "compressed_images.zip"
	// DefaultDownloadFormat — формат, если при скачивании он не указан.
	DefaultDownloadFormat = domain.FormatJPEG

	minQuality = 1
	maxQuality = 100

	outcomeOK          = "ok"
	outcomeDecodeError = "decode_error"
	outcomeStoreError  = "store_error"
	outcomeNotFound    = "not_found"

	modeSingle  = "single"
	modeArchive = "archive"
)

// ImageUseCase реализует конвейер "загрузка -> перекодирование -> хранение -> скачивание".
type ImageUseCase struct {
	transcoder Transcoder
	store      FileStore
	ids        IDGenerator
	locker     KeyLocker
	archiver   Archiver
	metrics    Metrics
	cfg        *cfg.CompressionCfg
	logger     logger.Logger
}

func NewImageUC(
	transcoder Transcoder,
	store FileStore,
	ids IDGenerator,
	locker KeyLocker,
	archiver Archiver,
	metrics Metrics,
	cfg *cfg.CompressionCfg,
	logger logger.Logger,
) *ImageUseCase {
	return &ImageUseCase{
		transcoder: transcoder,
		store:      store,
		ids:        ids,
		locker:     locker,
		archiver:   archiver,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
	}
}

// ProcessBatch перекодирует до MaxBatchSize изображений параллельно и сохраняет результаты.
// Изображения сверх лимита игнорируются. Ошибка одного изображения исключает его из ответа,
// но не прерывает пакет. Порядок результатов совпадает с порядком загрузки.
func (u *ImageUseCase) ProcessBatch(ctx context.Context, req *ProcessBatchReq) (*ProcessBatchRes, error) {
	const op = "ImageUseCase.ProcessBatch"

	format, err := u.resolveFormat(req.Format)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	quality := u.resolveQuality(req.Quality)

	images := req.Images
	if len(images) > u.cfg.MaxBatchSize {
		u.logger.Debugf("%s: batch of %d images capped to %d", op, len(images), u.cfg.MaxBatchSize)
		images = images[:u.cfg.MaxBatchSize]
	}

	slots := make([]*TranscodeResult, len(images))

	var g errgroup.Group
	g.SetLimit(max(u.cfg.Workers, 1))
	for i := range images {
		g.Go(func() error {
			res, err := u.processOne(ctx, &images[i], format, quality)
			if err != nil {
				u.logger.Warnf("%s: image %q (%s) skipped: %v", op, images[i].Name, images[i].MimeType, err)
				return nil
			}
			slots[i] = res
			return nil
		})
	}
	// Горутины не возвращают ошибок: сбой одного изображения не должен прерывать остальные.
	_ = g.Wait()

	results := make([]TranscodeResult, 0, len(slots))
	for _, res := range slots {
		if res != nil {
			results = append(results, *res)
		}
	}

	return NewProcessBatchRes(format, quality, results), nil
}

// processOne выдаёт идентификатор, перекодирует изображение и сохраняет артефакт.
func (u *ImageUseCase) processOne(ctx context.Context, img *UploadedImage, format domain.Format, quality int) (*TranscodeResult, error) {
	start := time.Now()
	id := u.ids.NewID()
	size := int(img.Size)

	res, err := u.transcoder.Transcode(ctx, NewTranscodeReq(img.Data, format, quality))
	if err != nil {
		u.metrics.ObserveTranscode(format, outcomeDecodeError, size, 0, time.Since(start))
		return nil, err
	}

	key := domain.NewArtifactKey(id, format)
	if err := u.store.Put(ctx, key, res.Data); err != nil {
		u.logger.Errorf(err, "failed to store artifact %s", key.FileName())
		u.metrics.ObserveTranscode(format, outcomeStoreError, size, len(res.Data), time.Since(start))
		return nil, err
	}

	u.metrics.ObserveTranscode(format, outcomeOK, size, len(res.Data), time.Since(start))
	u.logger.Debugf("stored %s (source %s): %d KB -> %d KB", key.FileName(), img.MimeType, res.SizeBeforeKB, res.SizeAfterKB)

	return NewTranscodeResult(id, format, size, len(res.Data), res), nil
}

// DownloadOne отдаёт артефакт и удаляет его из хранилища. Повторное скачивание возвращает e.ErrNotFound.
func (u *ImageUseCase) DownloadOne(ctx context.Context, req *DownloadOneReq) (*Download, error) {
	const op = "ImageUseCase.DownloadOne"

	key, ok := u.resolveKey(req.ID, req.Format)
	if !ok {
		u.metrics.IncDownload(modeSingle, outcomeNotFound)
		return nil, e.Wrap(op, e.ErrNotFound)
	}

	release := u.lock(ctx, key)
	data, err := u.store.GetAndDelete(ctx, key)
	release()
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			u.metrics.IncDownload(modeSingle, outcomeNotFound)
		}
		return nil, e.Wrap(op, err)
	}

	u.metrics.IncDownload(modeSingle, outcomeOK)
	return NewDownload(key.FileName(), key.Format.ContentType(), data, 1), nil
}

// DownloadMany собирает найденные артефакты в zip в порядке запроса; отсутствующие и повторные
// идентификаторы пропускаются молча. Артефакты удаляются только после того, как архив собран целиком.
func (u *ImageUseCase) DownloadMany(ctx context.Context, req *DownloadManyReq) (*Download, error) {
	const op = "ImageUseCase.DownloadMany"

	keys := u.resolveKeys(req.IDs, req.Format)

	release := u.lockAll(ctx, keys)
	defer release()

	var (
		buf   bytes.Buffer
		added = make([]domain.ArtifactKey, 0, len(keys))
	)
	builder := u.archiver.NewBuilder(&buf)

	for _, key := range keys {
		data, err := u.store.Peek(ctx, key)
		if err != nil {
			if !errors.Is(err, e.ErrNotFound) {
				u.logger.Warnf("skipping %s in archive: %v", key.FileName(), err)
			}
			continue
		}

		if err := builder.Add(key.FileName(), data); err != nil {
			return nil, e.Wrap(op, err)
		}
		added = append(added, key)
	}

	if err := builder.Close(); err != nil {
		return nil, e.Wrap(op, err)
	}

	for _, key := range added {
		u.store.Delete(ctx, key)
	}

	outcome := outcomeOK
	if len(added) == 0 {
		outcome = outcomeNotFound
	}
	u.metrics.IncDownload(modeArchive, outcome)

	return NewDownload(ArchiveName, "application/zip", buf.Bytes(), len(added)), nil
}

// resolveKeys отбрасывает невалидные и повторные идентификаторы, сохраняя порядок.
func (u *ImageUseCase) resolveKeys(ids []string, format string) []domain.ArtifactKey {
	keys := make([]domain.ArtifactKey, 0, len(ids))
	seen := make(map[domain.ArtifactKey]struct{}, len(ids))
	for _, id := range ids {
		key, ok := u.resolveKey(id, format)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// lockAll берёт блокировки ключей в отсортированном порядке, чтобы встречные архивы не ждали друг друга.
func (u *ImageUseCase) lockAll(ctx context.Context, keys []domain.ArtifactKey) func() {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, func(a, b domain.ArtifactKey) int {
		return strings.Compare(a.FileName(), b.FileName())
	})

	releases := make([]func(), 0, len(sorted))
	for _, key := range sorted {
		releases = append(releases, u.lock(ctx, key))
	}

	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}

// lock берёт блокировку ключа, если она настроена. Если блокировку получить не удалось,
// операция выполняется без неё.
func (u *ImageUseCase) lock(ctx context.Context, key domain.ArtifactKey) func() {
	if u.locker == nil {
		return func() {}
	}

	release, err := u.locker.Acquire(ctx, key.FileName())
	if err != nil {
		u.logger.Warnf("proceeding without lock for %s: %v", key.FileName(), err)
		return func() {}
	}
	return release
}

func (u *ImageUseCase) resolveKey(id string, format string) (domain.ArtifactKey, bool) {
	if !u.ids.Valid(id) {
		return domain.ArtifactKey{}, false
	}

	if format == "" {
		return domain.NewArtifactKey(id, DefaultDownloadFormat), true
	}

	f, err := domain.ParseFormat(format)
	if err != nil {
		return domain.ArtifactKey{}, false
	}

	return domain.NewArtifactKey(id, f), true
}

func (u *ImageUseCase) resolveFormat(format string) (domain.Format, error) {
	if format == "" {
		return u.cfg.DefaultFormat, nil
	}
	return domain.ParseFormat(format)
}

func (u *ImageUseCase) resolveQuality(quality *int) int {
	if quality == nil {
		return u.cfg.DefaultQuality
	}
	return min(max(*quality, minQuality), maxQuality)
}
