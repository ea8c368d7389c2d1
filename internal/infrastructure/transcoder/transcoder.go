// Package transcoder перекодирует изображения в целевой формат с заданным качеством.
package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/DRSN-tech/imgshrink/internal/usecase"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/disintegration/imaging"
	"github.com/jimlawless/whereami"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	_ "golang.org/x/image/webp" // декодер WEBP для image.Decode
)

const (
	// webpMethod — самый медленный и самый компактный режим кодировщика libwebp.
	webpMethod = 6
	gifColors  = 256
)

// ImageTranscoder декодирует любые поддерживаемые imaging/x/image форматы
// и кодирует в JPEG, PNG, WEBP, GIF, TIFF или BMP.
type ImageTranscoder struct{}

func NewImageTranscoder() *ImageTranscoder {
	return &ImageTranscoder{}
}

// Transcode декодирует req.Data и кодирует в req.Format.
// Нераспознанные или повреждённые данные возвращают ошибку, оборачивающую e.ErrDecode.
func (t *ImageTranscoder) Transcode(_ context.Context, req *usecase.TranscodeReq) (*usecase.TranscodeRes, error) {
	if len(req.Data) == 0 {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: empty input", e.ErrDecode))
	}

	img, err := imaging.Decode(bytes.NewReader(req.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %w", e.ErrDecode, err))
	}

	if !req.Format.SupportsAlpha() && needsFlatten(img) {
		img = flatten(img)
	}

	var buf bytes.Buffer
	if err := encode(&buf, img, req.Format, req.Quality); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %s: %w", e.ErrEncode, req.Format, err))
	}

	return usecase.NewTranscodeRes(buf.Bytes(), len(req.Data)), nil
}

func encode(w io.Writer, img image.Image, format domain.Format, quality int) error {
	switch format {
	case domain.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case domain.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case domain.FormatGIF:
		return imaging.Encode(w, img, imaging.GIF, imaging.GIFNumColors(gifColors))
	case domain.FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case domain.FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case domain.FormatWEBP:
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return err
		}
		opts.Method = webpMethod
		return webp.Encode(w, img, opts)
	default:
		return e.ErrUnsupportedFormat
	}
}

// needsFlatten сообщает, есть ли в изображении палитра или прозрачность.
func needsFlatten(img image.Image) bool {
	if _, ok := img.(*image.Paletted); ok {
		return true
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// flatten накладывает изображение на непрозрачный белый холст.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
