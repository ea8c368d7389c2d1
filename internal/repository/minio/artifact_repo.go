package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/cfg"
	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

const codeNoSuchKey = "NoSuchKey"

// ArtifactRepo хранит артефакты объектами {id}.{ext} в одном бакете MinIO.
type ArtifactRepo struct {
	mc     *minio.Client
	cfg    *cfg.MinIOCfg
	logger logger.Logger
}

func NewArtifactRepo(mc *minio.Client, cfg *cfg.MinIOCfg, logger logger.Logger) *ArtifactRepo {
	return &ArtifactRepo{
		mc:     mc,
		cfg:    cfg,
		logger: logger,
	}
}

// Put загружает артефакт в MinIO.
func (a *ArtifactRepo) Put(ctx context.Context, key domain.ArtifactKey, data []byte) error {
	_, err := a.mc.PutObject(ctx, a.cfg.BucketName, ObjectKey(key), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: key.Format.ContentType(),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %w", e.ErrStoreWrite, err))
	}

	return nil
}

// Peek читает объект. Отсутствующий объект возвращает e.ErrNotFound.
func (a *ArtifactRepo) Peek(ctx context.Context, key domain.ArtifactKey) ([]byte, error) {
	obj, err := a.mc.GetObject(ctx, a.cfg.BucketName, ObjectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, a.readErr(err)
	}
	defer obj.Close()

	// minio-go сообщает об отсутствии объекта только при первом чтении
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, a.readErr(err)
	}

	return data, nil
}

func (a *ArtifactRepo) GetAndDelete(ctx context.Context, key domain.ArtifactKey) ([]byte, error) {
	data, err := a.Peek(ctx, key)
	if err != nil {
		return nil, err
	}

	a.Delete(ctx, key)
	return data, nil
}

func (a *ArtifactRepo) Delete(ctx context.Context, key domain.ArtifactKey) {
	if err := a.Remove(ctx, key); err != nil {
		a.logger.Warnf("Could not delete object %s: %v", ObjectKey(key), err)
	}
}

// Remove удаляет объект из MinIO по ключу артефакта.
func (a *ArtifactRepo) Remove(ctx context.Context, key domain.ArtifactKey) error {
	if err := a.mc.RemoveObject(ctx, a.cfg.BucketName, ObjectKey(key), minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// ListExpired перечисляет объекты бакета старше olderThan.
func (a *ArtifactRepo) ListExpired(ctx context.Context, olderThan time.Time) ([]domain.ArtifactKey, error) {
	var keys []domain.ArtifactKey
	for obj := range a.mc.ListObjects(ctx, a.cfg.BucketName, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return keys, e.Wrap(whereami.WhereAmI(), obj.Err)
		}

		key, ok := domain.ParseArtifactFileName(obj.Key)
		if !ok {
			continue
		}
		if obj.LastModified.Before(olderThan) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (a *ArtifactRepo) readErr(err error) error {
	if minio.ToErrorResponse(err).Code == codeNoSuchKey {
		return e.ErrNotFound
	}
	return e.Wrap(whereami.WhereAmI(), err)
}

// ObjectKey возвращает имя объекта артефакта в бакете.
func ObjectKey(key domain.ArtifactKey) string {
	return key.FileName()
}
