package nest

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// responseRecorder captures the status code and size written by the App.
type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter (supports http.ResponseController).
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Logger returns middleware that logs one line per request. Client errors
// log at Warn and server errors at Error.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("latency", time.Since(start)),
				slog.Int("size", rec.size),
				slog.String("remote", r.RemoteAddr),
			}
			if id := GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rec.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}

// LogEvents returns an Observer that logs each dispatch with its route
// template and version. Successful requests log at Debug; failures log at
// Info with their error kind, or Warn for internal errors.
func LogEvents(logger *slog.Logger) Observer {
	return func(ev Event) {
		route := ev.Route
		if route == "" {
			route = "unmatched"
		}
		attrs := []slog.Attr{
			slog.String("method", ev.Method),
			slog.String("route", route),
			slog.Int("status", ev.Status),
			slog.Duration("duration", ev.Duration),
		}
		if ev.Version != "" {
			attrs = append(attrs, slog.String("version", ev.Version))
		}

		level := slog.LevelDebug
		if ev.Err != nil {
			attrs = append(attrs,
				slog.String("kind", ev.Kind.String()),
				slog.String("error", ev.Err.Error()),
			)
			level = slog.LevelInfo
			if ev.Kind == KindInternal {
				level = slog.LevelWarn
			}
		}
		logger.LogAttrs(context.Background(), level, "dispatch", attrs...)
	}
}
