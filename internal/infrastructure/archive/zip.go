// Package archive собирает zip-архивы для пакетного скачивания.
package archive

import (
	"io"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/usecase"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/klauspost/compress/zip"
)

// ZipArchiver создаёт zip-архивы со сжатием deflate.
type ZipArchiver struct {
	now func() time.Time
}

func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{now: time.Now}
}

func (a *ZipArchiver) NewBuilder(w io.Writer) usecase.ArchiveBuilder {
	return &zipBuilder{zw: zip.NewWriter(w), now: a.now}
}

type zipBuilder struct {
	zw  *zip.Writer
	now func() time.Time
}

// Add добавляет запись name с содержимым data.
func (b *zipBuilder) Add(name string, data []byte) error {
	w, err := b.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: b.now(),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := w.Write(data); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Close дописывает центральный каталог. Архив без записей остаётся корректным.
func (b *zipBuilder) Close() error {
	if err := b.zw.Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}
