package middleware

import (
	"net/http"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// RequestLogger writes one line per request. Server errors go out at warning
// level so they stand out in the feed.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start).Round(time.Millisecond)
			if rec.status >= http.StatusInternalServerError {
				log.Warn("%s %s -> %d in %s (%d bytes)", r.Method, r.URL.Path, rec.status, elapsed, rec.bytes)
				return
			}
			log.Info("%s %s -> %d in %s (%d bytes)", r.Method, r.URL.Path, rec.status, elapsed, rec.bytes)
		})
	}
}
