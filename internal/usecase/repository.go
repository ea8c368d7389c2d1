package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/domain"
)

// FileStore — плоское хранилище артефактов с ключом (идентификатор, формат).
// Собственной синхронизации нет: одновременные GetAndDelete одного ключа
// могут гоняться, проигравший получает e.ErrNotFound.
type FileStore interface {
	// Put записывает (или перезаписывает) артефакт. Ошибки ввода-вывода оборачивают e.ErrStoreWrite.
	Put(ctx context.Context, key domain.ArtifactKey, data []byte) error
	// Peek читает артефакт, не удаляя его.
	Peek(ctx context.Context, key domain.ArtifactKey) ([]byte, error)
	// GetAndDelete читает артефакт и затем удаляет его; ошибка удаления только логируется.
	GetAndDelete(ctx context.Context, key domain.ArtifactKey) ([]byte, error)
	// Delete удаляет артефакт; ошибки только логируются.
	Delete(ctx context.Context, key domain.ArtifactKey)
}

// ArtifactLister нужен только очистке невостребованных артефактов.
type ArtifactLister interface {
	ListExpired(ctx context.Context, olderThan time.Time) ([]domain.ArtifactKey, error)
}

// ArtifactRemover — удаление с возвратом ошибки для фоновой очистки.
type ArtifactRemover interface {
	Remove(ctx context.Context, key domain.ArtifactKey) error
}
