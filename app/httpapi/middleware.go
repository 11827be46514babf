package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	logMsgHTTPRequest = "http request"

	logAttrRequestID  = "request_id"
	logAttrMethod     = "method"
	logAttrPath       = "path"
	logAttrStatus     = "status"
	logAttrBytes      = "bytes"
	logAttrDurationMS = "duration_ms"
)

// RequestLogger logs one record per request once the response is written.
// Server errors are logged at error level, everything else at info.
func RequestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				level := slog.LevelInfo
				if status >= http.StatusInternalServerError {
					level = slog.LevelError
				}

				l.Log(r.Context(), level, logMsgHTTPRequest,
					logAttrRequestID, middleware.GetReqID(r.Context()),
					logAttrMethod, r.Method,
					logAttrPath, r.URL.Path,
					logAttrStatus, status,
					logAttrBytes, ww.BytesWritten(),
					logAttrDurationMS, float64(time.Since(start).Nanoseconds())/1e6,
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
