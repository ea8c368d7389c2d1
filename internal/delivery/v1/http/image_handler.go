package http

import (
	"net/http"

	"github.com/DRSN-tech/imgshrink/internal/cfg"
	"github.com/DRSN-tech/imgshrink/internal/usecase"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type ImageHandler struct {
	imageUsecase usecase.ImageUC
	cfg          *cfg.UploadCfg
	maxBatch     int
	logger       logger.Logger
}

func NewImageHandler(imageUsecase usecase.ImageUC, cfg *cfg.UploadCfg, maxBatch int, logger logger.Logger) *ImageHandler {
	return &ImageHandler{imageUsecase: imageUsecase, cfg: cfg, maxBatch: maxBatch, logger: logger}
}

// uploadImages
//
//	@Summary		Сжатие изображений
//	@Description	Перекодирует до 5 изображений в выбранный формат с заданным качеством
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			images	formData	file			true	"Изображения"
//	@Param			quality	formData	int				false	"Качество 1-100 (по умолчанию 30)"
//	@Param			format	formData	string			false	"Формат: JPEG, PNG, WEBP, GIF, TIFF, BMP"
//	@Success		200		{object}	UploadResponse	"Результаты сжатия"
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		413		{object}	ErrorResponse	"Слишком большой запрос"
//	@Router			/images [post]
func (h *ImageHandler) uploadImages(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.cfg.MaxRequestBytes {
		h.logger.Warnf("%d: request of %d bytes rejected", http.StatusRequestEntityTooLarge, r.ContentLength)
		WriteError(w, e.ErrFileTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxRequestBytes)

	if err := ensureMultipartForm(r, h.cfg.MaxMemory); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if h.maxBatch > 0 && len(files) > h.maxBatch {
		h.logger.Debugf("batch of %d files truncated to %d", len(files), h.maxBatch)
		files = files[:h.maxBatch]
	}

	images := parseImages(files, h.cfg.MaxFileBytes, h.logger)
	quality := parseQuality(r.FormValue("quality"))

	res, err := h.imageUsecase.ProcessBatch(r.Context(), usecase.NewProcessBatchReq(images, quality, r.FormValue("format")))
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewUploadResponse(res))
}

// downloadImage
//
//	@Summary		Скачивание изображения
//	@Description	Отдаёт сжатое изображение и удаляет его: повторное скачивание вернёт 404
//	@Tags			images
//	@Produce		octet-stream
//	@Param			id		path		string			true	"Идентификатор изображения"
//	@Param			format	query		string			false	"Формат (по умолчанию jpeg)"
//	@Success		200		{file}		binary			"Изображение"
//	@Failure		404		{object}	ErrorResponse	"Изображение больше недоступно"
//	@Router			/images/{id} [get]
func (h *ImageHandler) downloadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dl, err := h.imageUsecase.DownloadOne(r.Context(), usecase.NewDownloadOneReq(id, r.URL.Query().Get("format")))
	if err != nil {
		h.logger.Debugf("download %s: %v", id, err)
		WriteError(w, err)
		return
	}

	writeAttachment(w, dl)
}

// downloadArchive
//
//	@Summary		Скачивание архива
//	@Description	Собирает найденные изображения в compressed_images.zip и удаляет их; отсутствующие пропускаются
//	@Tags			images
//	@Produce		application/zip
//	@Param			ids		query	[]string	true	"Идентификаторы изображений"	collectionFormat(multi)
//	@Param			format	query	string		false	"Формат (по умолчанию jpeg)"
//	@Success		200		{file}	binary		"Архив"
//	@Router			/images/archive [get]
func (h *ImageHandler) downloadArchive(w http.ResponseWriter, r *http.Request) {
	ids := queryList(r, "ids", "uids")

	dl, err := h.imageUsecase.DownloadMany(r.Context(), usecase.NewDownloadManyReq(ids, r.URL.Query().Get("format")))
	if err != nil {
		h.logger.Errorf(err, "failed to build archive")
		WriteError(w, err)
		return
	}

	writeAttachment(w, dl)
}
