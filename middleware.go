package nest

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Middleware wraps the HTTP adapter of an App. Hooks see only the
// transport-independent Request; middleware sees the raw *http.Request.
type Middleware func(next http.Handler) http.Handler

// Recovery returns middleware that recovers panics raised by other
// middleware and responds with a 500 problem. Panics in hooks and handlers
// never reach it; the dispatcher recovers those itself.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)
					resp, _ := DefaultFormatter(nil, &InternalError{})
					//nolint:errcheck,gosec // best-effort after a panic
					resp.write(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
