package nest

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
)

// Formatter renders a failed request. It returns false to decline, passing
// the error to the next formatter. Formatters run in registration order and
// the first to claim the error produces the response; the default formatter
// renders anything none claims.
//
// c.Route() is nil for routing errors, and c.Params() is empty unless
// validation completed.
type Formatter func(c *Context, err TypedError) (*Response, bool)

// ProblemDetail is an RFC 9457 problem details body.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string             `json:"type,omitempty"`
	Title    string             `json:"title,omitempty"`
	Status   int                `json:"status"`
	Detail   string             `json:"detail,omitempty"`
	Instance string             `json:"instance,omitempty"`
	Code     string             `json:"code,omitempty"`
	Errors   []*ValidationError `json:"errors,omitempty"`
	Payload  any                `json:"payload,omitempty"`
}

// Error returns the detail message, or the title if detail is empty.
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// Problem returns the problem details DefaultFormatter renders for err.
// Internal errors never expose their cause.
func Problem(err TypedError, instance string) *ProblemDetail {
	status := ErrorStatus(err)
	pd := &ProblemDetail{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Instance: instance,
	}

	switch e := err.(type) {
	case *ValidationError:
		pd.Detail = e.Error()
		pd.Errors = []*ValidationError{e}
	case ValidationErrors:
		pd.Detail = e.Error()
		pd.Errors = e
	case *RoutingError:
		pd.Detail = e.Error()
		pd.Code = strings.ReplaceAll(e.Reason.String(), " ", "_")
	case *ApplicationError:
		pd.Detail = e.Message
		pd.Code = e.Code
		pd.Payload = e.Payload
	case *InternalError:
		if e.Canceled() {
			pd.Detail = "request canceled"
		}
	}
	return pd
}

// DefaultFormatter renders err as application/problem+json. It claims every
// error.
func DefaultFormatter(c *Context, err TypedError) (*Response, bool) {
	var instance string
	if c != nil && c.req != nil {
		instance = c.req.Path
	}
	pd := Problem(err, instance)

	b, merr := jsonAPI.Marshal(pd)
	if merr != nil {
		b = fmt.Appendf(nil, `{"status":%d}`, pd.Status)
	}
	resp := Blob(pd.Status, "application/problem+json", b)

	switch e := err.(type) {
	case *RoutingError:
		if e.Reason == RouteMethodNotAllowed {
			resp.Header.Set("Allow", strings.Join(e.Allowed, ", "))
		}
	case *ApplicationError:
		for k, vs := range e.Header {
			resp.Header[k] = append(resp.Header[k], vs...)
		}
	}
	return resp, true
}

// format runs the formatter chain. A formatter that panics or returns a nil
// response is treated as declining.
func (a *App) format(c *Context, err TypedError) *Response {
	for _, f := range a.formatters {
		if resp, ok := a.tryFormat(f, c, err); ok {
			return resp
		}
	}
	resp, _ := DefaultFormatter(c, err)
	return resp
}

func (a *App) tryFormat(f Formatter, c *Context, err TypedError) (resp *Response, ok bool) {
	defer func() {
		if v := recover(); v != nil {
			a.logger.ErrorContext(c.ctx, "formatter panic",
				"error", v,
				"stack", string(debug.Stack()),
			)
			resp, ok = nil, false
		}
	}()
	resp, ok = f(c, err)
	if ok && resp == nil {
		return nil, false
	}
	if ok && resp.Status == 0 {
		resp.Status = ErrorStatus(err)
	}
	if ok && resp.Header == nil {
		resp.Header = make(http.Header)
	}
	return resp, ok
}
