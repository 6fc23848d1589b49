package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/minutes/internal/logging"
)

// RequestLogger logs each request and its outcome. Request attributes are
// attached to the context so handler logs carry them too. Health checks and
// static assets are not logged.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := r.Context()
			ctx = logging.AppendCtx(ctx, slog.String("request_id", chimw.GetReqID(ctx)))
			ctx = logging.AppendCtx(ctx, slog.String("method", r.Method))
			ctx = logging.AppendCtx(ctx, slog.String("path", r.URL.Path))
			r = r.WithContext(ctx)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if quiet(r.URL.Path) {
				return
			}
			logger.InfoContext(ctx, "http request",
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

func quiet(path string) bool {
	return path == "/api/health" || strings.HasPrefix(path, "/static/")
}
