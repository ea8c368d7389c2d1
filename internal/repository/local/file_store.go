package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/jimlawless/whereami"
)

const (
	dirPerm    = 0o750
	filePerm   = 0o640
	tempPrefix = ".tmp-"
)

// FileStore хранит артефакты файлами {id}.{ext} в одном плоском каталоге.
// Запись идёт во временный файл с последующим rename, поэтому читатель
// никогда не видит недописанный артефакт.
type FileStore struct {
	dir    string
	logger logger.Logger
}

// NewFileStore создаёт каталог dir при необходимости. Ошибка оборачивает e.ErrStoreInit.
func NewFileStore(dir string, logger logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %s: %w", e.ErrStoreInit, dir, err))
	}

	return &FileStore{
		dir:    dir,
		logger: logger,
	}, nil
}

// Dir возвращает каталог хранилища.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Put(_ context.Context, key domain.ArtifactKey, data []byte) error {
	path, ok := s.path(key)
	if !ok {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: invalid key %q", e.ErrStoreWrite, key.ID))
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return s.writeErr(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return s.writeErr(err)
	}

	if err := tmp.Chmod(filePerm); err != nil {
		s.logger.Debugf("chmod %s: %v", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return s.writeErr(err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return s.writeErr(err)
	}

	return nil
}

func (s *FileStore) Peek(_ context.Context, key domain.ArtifactKey) ([]byte, error) {
	path, ok := s.path(key)
	if !ok {
		return nil, e.ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, e.ErrNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}

func (s *FileStore) GetAndDelete(ctx context.Context, key domain.ArtifactKey) ([]byte, error) {
	data, err := s.Peek(ctx, key)
	if err != nil {
		return nil, err
	}

	s.Delete(ctx, key)
	return data, nil
}

func (s *FileStore) Delete(ctx context.Context, key domain.ArtifactKey) {
	if err := s.Remove(ctx, key); err != nil {
		s.logger.Warnf("Could not delete %s: %v", key.FileName(), err)
	}
}

// Remove удаляет файл артефакта; отсутствие файла ошибкой не считается.
func (s *FileStore) Remove(_ context.Context, key domain.ArtifactKey) error {
	path, ok := s.path(key)
	if !ok {
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// ListExpired возвращает артефакты, изменённые раньше olderThan. Временные файлы незавершённых
// записей старше olderThan удаляются сразу, остальные посторонние файлы игнорируются.
func (s *FileStore) ListExpired(ctx context.Context, olderThan time.Time) ([]domain.ArtifactKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var keys []domain.ArtifactKey
	for _, entry := range entries {
		if ctx.Err() != nil {
			return keys, ctx.Err()
		}
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // файл удалили между ReadDir и Info
		}
		expired := info.ModTime().Before(olderThan)

		if strings.HasPrefix(entry.Name(), tempPrefix) {
			if expired {
				s.removeStaleTemp(entry.Name())
			}
			continue
		}

		key, ok := domain.ParseArtifactFileName(entry.Name())
		if !ok || !validID(key.ID) {
			continue
		}
		if expired {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (s *FileStore) removeStaleTemp(name string) {
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warnf("failed to remove stale temp file %s: %v", name, err)
		return
	}
	s.logger.Debugf("removed stale temp file %s", name)
}

// path возвращает путь к файлу артефакта; ok=false, если идентификатор мог бы выйти за пределы каталога.
func (s *FileStore) path(key domain.ArtifactKey) (string, bool) {
	if !validID(key.ID) || key.Format == "" {
		return "", false
	}
	return filepath.Join(s.dir, key.FileName()), true
}

func (s *FileStore) writeErr(err error) error {
	return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %w", e.ErrStoreWrite, err))
}

func validID(id string) bool {
	return id != "" &&
		!strings.HasPrefix(id, ".") &&
		!strings.ContainsAny(id, `/\`) &&
		!strings.Contains(id, "..")
}
