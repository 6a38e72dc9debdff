package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Logger logs one line per request. It expects chi's RequestID middleware
// to run first so lines can be correlated with run logs. Authenticated
// requests also carry the key prefix, which is the rate-limit bucket.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		// Auth runs inside this middleware, so the key is only visible to the
		// request it replaces; capture it through a pointer.
		var key keyCapture
		next.ServeHTTP(ww, r.WithContext(key.attach(r.Context())))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []any{
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if key.prefix != "" {
			attrs = append(attrs, "key_prefix", key.prefix)
		}
		slog.Log(r.Context(), levelFor(status), "request", attrs...)
	})
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
