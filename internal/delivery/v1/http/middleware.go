package http

import (
	"net/http"
	"time"

	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger пишет одну строку на запрос в структурированный лог.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.With("request_id", middleware.GetReqID(r.Context())).
				Infof("%s %s %d %dB %s", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start))
		})
	}
}
