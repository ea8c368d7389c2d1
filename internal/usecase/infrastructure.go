package usecase

import (
	"context"
	"io"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/domain"
)

type Transcoder interface {
	Transcode(ctx context.Context, req *TranscodeReq) (*TranscodeRes, error)
}

type IDGenerator interface {
	NewID() string
	Valid(id string) bool
}

// KeyLocker сериализует потребление одного артефакта при скачивании.
type KeyLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type ArchiveBuilder interface {
	Add(name string, data []byte) error
	Close() error
}

type Archiver interface {
	NewBuilder(w io.Writer) ArchiveBuilder
}

// Cleaner удаляет артефакты в фоне с повторами.
type Cleaner interface {
	CleanupArtifacts(keys []domain.ArtifactKey)
	WaitForCleanup(ctx context.Context) error
}

type Metrics interface {
	ObserveTranscode(format domain.Format, outcome string, bytesBefore, bytesAfter int, took time.Duration)
	IncDownload(mode, outcome string)
	AddSwept(n int)
}
