package nest

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
)

// Response is the transport-independent output of Dispatch.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// StatusCode returns the response status.
func (r *Response) StatusCode() int { return r.Status }

// Text returns a text/plain response.
func Text(status int, s string) *Response {
	return &Response{
		Status: status,
		Header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:   []byte(s),
	}
}

// Blob returns a response with the given content type.
func Blob(status int, contentType string, b []byte) *Response {
	return &Response{
		Status: status,
		Header: http.Header{"Content-Type": {contentType}},
		Body:   b,
	}
}

// JSON returns a JSON response.
func JSON(status int, v any) (*Response, error) {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Blob(status, "application/json", b), nil
}

// NoContent returns an empty 204 response.
func NoContent() *Response {
	return &Response{Status: http.StatusNoContent, Header: make(http.Header)}
}

// CookieSetter is optionally implemented by handler results to set cookies.
type CookieSetter interface {
	Cookies() []*http.Cookie
}

// HeaderSetter is optionally implemented by handler results to set
// response headers.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// render turns a handler result into a Response. Headers and cookies
// staged on c are applied first; the result's own headers win.
func (a *App) render(c *Context, out any) (*Response, error) {
	status := http.StatusOK
	if c.route != nil && c.route.Status != 0 {
		status = c.route.Status
	}

	var resp *Response
	switch v := out.(type) {
	case *Response:
		if v == nil {
			resp = NoContent()
			break
		}
		cp := *v
		cp.Header = v.Header.Clone()
		if cp.Header == nil {
			cp.Header = make(http.Header)
		}
		resp = &cp
	case nil:
		resp = NoContent()
		if status != http.StatusOK {
			resp.Status = status
		}
	case string:
		resp = Text(status, v)
	case []byte:
		resp = Blob(status, "application/octet-stream", v)
	default:
		enc, ok := a.codecs.negotiate(c.Header("Accept"))
		if !ok {
			return nil, Errorf(http.StatusNotAcceptable, "cannot encode response as %q", c.Header("Accept"))
		}
		var buf bytes.Buffer
		if err := enc.Encode(&buf, v); err != nil {
			return nil, &InternalError{Err: err}
		}
		if sc, ok := v.(StatusCoder); ok {
			status = sc.StatusCode()
		}
		resp = Blob(status, enc.ContentType(), buf.Bytes())
	}

	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	if resp.Status == 0 {
		resp.Status = status
	}

	header := c.staged()
	if cs, ok := out.(CookieSetter); ok {
		for _, ck := range cs.Cookies() {
			if v := ck.String(); v != "" {
				header.Add("Set-Cookie", v)
			}
		}
	}
	if hs, ok := out.(HeaderSetter); ok {
		hs.SetHeaders(header)
	}
	for k, vs := range resp.Header {
		header[k] = vs
	}
	resp.Header = header

	return resp, nil
}

// write sends resp on w.
func (r *Response) write(w http.ResponseWriter) error {
	for k, vs := range r.Header {
		w.Header()[k] = vs
	}
	if r.Status != http.StatusNoContent && r.Status != http.StatusNotModified && w.Header().Get("Content-Length") == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(r.Body)))
	}
	w.WriteHeader(r.Status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }
