package usecase

import (
	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/shopspring/decimal"
)

// IMAGE USECASE

// UploadedImage — изображение из multipart/form-data, живёт только в рамках одного перекодирования.
type UploadedImage struct {
	Data     []byte // байты изображения
	MimeType string // тип, определённый по содержимому
	Size     int64  // фактический размер в байтах
	Name     string // оригинальное имя файла (для логов)
}

// ProcessBatchReq — пакет изображений на сжатие.
// Quality == nil и пустой Format означают значения по умолчанию из конфигурации.
type ProcessBatchReq struct {
	Images  []UploadedImage
	Quality *int
	Format  string
}

// TranscodeResult — итог по одному изображению пакета. Размеры в КБ с отбрасыванием дробной части.
type TranscodeResult struct {
	ID           string
	Format       domain.Format
	SizeBeforeKB int
	SizeAfterKB  int
	SavedKB      int
	SavedPercent float64 // доля сэкономленных байт, в процентах с точностью до сотых
}

type ProcessBatchRes struct {
	Format  domain.Format
	Quality int
	Results []TranscodeResult
}

type DownloadOneReq struct {
	ID     string
	Format string
}

type DownloadManyReq struct {
	IDs    []string
	Format string
}

// Download — готовый к отдаче файл.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
	Entries     int // количество файлов в архиве (1 для одиночного скачивания)
}

// SWEEPER

type SweepRes struct {
	Expired int
}

// INFRASTRUCTURE

type TranscodeReq struct {
	Data    []byte
	Format  domain.Format
	Quality int
}

type TranscodeRes struct {
	Data         []byte
	SizeBeforeKB int
	SizeAfterKB  int
}

// MAPPERS

func NewUploadedImage(data []byte, mimeType string, name string) *UploadedImage {
	return &UploadedImage{
		Data:     data,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Name:     name,
	}
}

func NewProcessBatchReq(images []UploadedImage, quality *int, format string) *ProcessBatchReq {
	return &ProcessBatchReq{
		Images:  images,
		Quality: quality,
		Format:  format,
	}
}

func NewProcessBatchRes(format domain.Format, quality int, results []TranscodeResult) *ProcessBatchRes {
	return &ProcessBatchRes{
		Format:  format,
		Quality: quality,
		Results: results,
	}
}

// NewTranscodeResult считает экономию: SavedKB по округлённым КБ, SavedPercent по точным байтам.
func NewTranscodeResult(id string, format domain.Format, bytesBefore, bytesAfter int, res *TranscodeRes) *TranscodeResult {
	return &TranscodeResult{
		ID:           id,
		Format:       format,
		SizeBeforeKB: res.SizeBeforeKB,
		SizeAfterKB:  res.SizeAfterKB,
		SavedKB:      res.SizeBeforeKB - res.SizeAfterKB,
		SavedPercent: savedPercent(bytesBefore, bytesAfter),
	}
}

func NewDownloadOneReq(id string, format string) *DownloadOneReq {
	return &DownloadOneReq{ID: id, Format: format}
}

func NewDownloadManyReq(ids []string, format string) *DownloadManyReq {
	return &DownloadManyReq{IDs: ids, Format: format}
}

func NewDownload(name string, contentType string, data []byte, entries int) *Download {
	return &Download{
		Name:        name,
		ContentType: contentType,
		Data:        data,
		Entries:     entries,
	}
}

func NewTranscodeReq(data []byte, format domain.Format, quality int) *TranscodeReq {
	return &TranscodeReq{
		Data:    data,
		Format:  format,
		Quality: quality,
	}
}

func NewTranscodeRes(data []byte, sizeBefore int) *TranscodeRes {
	return &TranscodeRes{
		Data:         data,
		SizeBeforeKB: sizeBefore / 1024,
		SizeAfterKB:  len(data) / 1024,
	}
}

func savedPercent(before, after int) float64 {
	if before <= 0 {
		return 0
	}

	saved := decimal.NewFromInt(int64(before - after))
	return saved.Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(before))).
		Round(2).
		InexactFloat64()
}
