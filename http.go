package nest

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ServeHTTP implements http.Handler. Middleware registered with Use or
// WithMiddleware wraps the dispatcher.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var resp *Response

	req, err := readRequest(w, r, a.maxBody)
	if err != nil {
		c := newContext(r.Context(), a, req)
		resp = a.format(c, AsTypedError(err))
	} else {
		resp = a.Dispatch(r.Context(), req)
	}

	if err := resp.write(w); err != nil {
		a.logger.DebugContext(r.Context(), "response write failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
}

// ListenAndServe starts an HTTP server on addr. It blocks until ctx is
// cancelled, then shuts down gracefully.
func (a *App) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
