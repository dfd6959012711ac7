package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
)

// Recovery converts handler panics into 500 responses. The panic value goes
// to the log only, never back to the caller.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					log.Error("Panic serving %s %s: %v\n%s", r.Method, r.URL.Path, v, debug.Stack())

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error": "internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
