package nest

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"
)

// Dispatch runs req through the compiled tree and returns the response. It
// never returns nil and never panics on a per-request failure: every error
// raised while routing, validating, running hooks or the handler is
// rendered by the formatter chain.
func (a *App) Dispatch(ctx context.Context, req *Request) *Response {
	start := time.Now()
	normalize(req)

	var end func(error)
	if a.tracer != nil {
		ctx, end = a.tracer.StartSpan(ctx, req.Method+" "+req.Path, map[string]string{
			"http.request.method": req.Method,
			"url.path":            req.Path,
		})
	}

	c := newContext(ctx, a, req)
	resp, err := a.serve(c)
	stripHead(req, resp)

	if end != nil {
		end(err)
	}
	if a.observer != nil {
		ev := Event{
			Method:   req.Method,
			Version:  c.version,
			Status:   resp.Status,
			Err:      err,
			Duration: time.Since(start),
		}
		if c.route != nil {
			ev.Route = c.route.Path
		}
		if err != nil {
			ev.Kind = err.Kind()
		}
		a.observer(ev)
	}
	return resp
}

// serve returns the response and, if the request failed, the typed error it
// was rendered from.
func (a *App) serve(c *Context) (*Response, TypedError) {
	resp, err := a.run(c)
	if err == nil {
		return resp, nil
	}

	te := AsTypedError(err)
	if ie, ok := te.(*InternalError); ok && !ie.Canceled() {
		a.logger.ErrorContext(c.ctx, "request failed",
			"method", c.req.Method,
			"path", c.req.Path,
			"error", ie.Err,
		)
	}
	return a.format(c, te), te
}

// run executes the pipeline: routing, pre-validation hooks, validation,
// post-validation hooks, handler. The request context is checked before
// each stage.
func (a *App) run(c *Context) (resp *Response, err error) {
	defer func() {
		if v := recover(); v != nil {
			a.logger.ErrorContext(c.ctx, "panic recovered",
				"panic", v,
				"stack", string(debug.Stack()),
				"method", c.req.Method,
				"path", c.req.Path,
			)
			resp, err = nil, &InternalError{Err: fmt.Errorf("panic: %v", v)}
		}
	}()

	if err := c.checkpoint(); err != nil {
		return nil, err
	}

	r, captures, err := a.resolve(c)
	if err != nil {
		return nil, err
	}
	c.route = r

	for _, h := range r.before {
		if err := c.checkpoint(); err != nil {
			return nil, err
		}
		if err := h(c); err != nil {
			return nil, err
		}
	}

	if err := c.checkpoint(); err != nil {
		return nil, err
	}
	raw, err := a.rawParams(c.req, captures)
	if err != nil {
		return nil, err
	}
	params, err := Validate(r.schema, raw, a.validateOpts...)
	if err != nil {
		return nil, err
	}
	c.params = params
	c.validated = true

	for _, h := range r.after {
		if err := c.checkpoint(); err != nil {
			return nil, err
		}
		if err := h(c); err != nil {
			return nil, err
		}
	}

	if err := c.checkpoint(); err != nil {
		return nil, err
	}
	out, err := r.handler(c)
	if err != nil {
		return nil, err
	}
	if err := c.checkpoint(); err != nil {
		return nil, err
	}

	return a.render(c, out)
}

// stripHead drops the body of a response to HEAD, keeping its length.
func stripHead(req *Request, resp *Response) {
	if req.Method != http.MethodHead || resp.Body == nil {
		return
	}
	resp.Header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	resp.Body = nil
}

func normalize(req *Request) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Path == "" {
		req.Path = "/"
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
}
