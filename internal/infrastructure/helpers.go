package infrastructure

import (
	"bytes"
	"net/http"

	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/DRSN-tech/imgshrink/pkg/e"
)

var (
	tiffLE = []byte("II*\x00")
	tiffBE = []byte("MM\x00*")
)

// GetFormatFromMIME возвращает формат изображения по MIME-типу.
// Для неподдерживаемых типов возвращает e.ErrUnsupportedMediaType.
func GetFormatFromMIME(mime string) (domain.Format, error) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return domain.FormatJPEG, nil
	case "image/png":
		return domain.FormatPNG, nil
	case "image/webp":
		return domain.FormatWEBP, nil
	case "image/gif":
		return domain.FormatGIF, nil
	case "image/bmp", "image/x-ms-bmp":
		return domain.FormatBMP, nil
	case "image/tiff":
		return domain.FormatTIFF, nil
	default:
		return "", e.ErrUnsupportedMediaType
	}
}

// DetectMIME определяет MIME-тип по первым 512 байтам.
// http.DetectContentType не знает TIFF, его сигнатуры проверяются отдельно.
func DetectMIME(data []byte) string {
	if bytes.HasPrefix(data, tiffLE) || bytes.HasPrefix(data, tiffBE) {
		return "image/tiff"
	}
	return http.DetectContentType(data[:min(len(data), 512)])
}
