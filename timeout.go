package nest

import (
	"context"
	"net/http"
	"time"
)

// Timeout returns middleware that bounds each request with a deadline. The
// dispatcher checks the deadline between pipeline stages; a request that
// runs out of time stops before its next hook or handler and is answered
// with 503.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
