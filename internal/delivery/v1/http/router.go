package http

import (
	"net/http"

	_ "github.com/DRSN-tech/imgshrink/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/imgshrink/internal/cfg"
	"github.com/DRSN-tech/imgshrink/internal/usecase"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(imageUC usecase.ImageUC, uploadCfg *cfg.UploadCfg, maxBatch int, metrics http.Handler) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(requestLogger(r.logger))
	r.router.Use(middleware.Recoverer)

	r.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	if metrics != nil {
		r.router.Handle("/metrics", metrics)
	}

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		imageHandler := NewImageHandler(imageUC, uploadCfg, maxBatch, r.logger)
		registerImageRoutes(v1, imageHandler)
	})
}

func registerImageRoutes(router chi.Router, imageHandler *ImageHandler) {
	router.Route("/images", func(im chi.Router) {
		im.Post("/", imageHandler.uploadImages)
		im.Get("/archive", imageHandler.downloadArchive)
		im.Get("/{id}", imageHandler.downloadImage)
	})
}
