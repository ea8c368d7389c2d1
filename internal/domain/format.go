package domain

import (
	"fmt"
	"strings"

	"github.com/DRSN-tech/imgshrink/pkg/e"
)

// Format — целевой формат перекодирования.
type Format string

const (
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatWEBP Format = "WEBP"
	FormatGIF  Format = "GIF"
	FormatTIFF Format = "TIFF"
	FormatBMP  Format = "BMP"
)

var formatAliases = map[string]Format{
	"JPEG": FormatJPEG,
	"JPG":  FormatJPEG,
	"PNG":  FormatPNG,
	"WEBP": FormatWEBP,
	"GIF":  FormatGIF,
	"TIFF": FormatTIFF,
	"TIF":  FormatTIFF,
	"BMP":  FormatBMP,
}

// ParseFormat разбирает имя формата без учёта регистра ("jpeg", "JPG", "webp").
// Для неизвестных имён возвращает e.ErrUnsupportedFormat.
func ParseFormat(s string) (Format, error) {
	f, ok := formatAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", e.Wrap(fmt.Sprintf("format %q", s), e.ErrUnsupportedFormat)
	}
	return f, nil
}

// Ext возвращает расширение файла артефакта в нижнем регистре.
func (f Format) Ext() string {
	return strings.ToLower(string(f))
}

// ContentType возвращает MIME-тип для ответа при скачивании.
func (f Format) ContentType() string {
	return "image/" + f.Ext()
}

// Lossy сообщает, учитывает ли формат параметр качества.
func (f Format) Lossy() bool {
	return f == FormatJPEG || f == FormatWEBP
}

// SupportsAlpha сообщает, может ли формат хранить прозрачность.
func (f Format) SupportsAlpha() bool {
	return f != FormatJPEG && f != FormatBMP
}
