package nest

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
)

// Request is the transport-independent input to Dispatch.
type Request struct {
	Method string
	Path   string
	Header http.Header
	// Query holds the query string parameters.
	Query url.Values
	// Params holds raw parameters supplied by the caller directly. They
	// override query values of the same name.
	Params map[string]any
	// Body is decoded according to the Content-Type header. A JSON body
	// must be an object; its fields override query and Params values.
	Body       []byte
	Cookies    []*http.Cookie
	RemoteAddr string
}

// readRequest converts an *http.Request, reading at most maxBody bytes of
// body.
func readRequest(w http.ResponseWriter, r *http.Request, maxBody int64) (*Request, error) {
	req := &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Header:     r.Header,
		Query:      r.URL.Query(),
		Cookies:    r.Cookies(),
		RemoteAddr: r.RemoteAddr,
	}

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	body := r.Body
	if maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return req, Errorf(http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", mbe.Limit)
		}
		return req, Error(http.StatusBadRequest, "could not read request body")
	}
	req.Body = b
	return req, nil
}

// rawParams merges the request's raw parameters. Later sources win: query,
// caller-supplied Params, decoded body, path captures.
func (a *App) rawParams(req *Request, captures map[string]string) (map[string]any, error) {
	raw := make(map[string]any)
	mergeValues(raw, req.Query)
	maps.Copy(raw, req.Params)

	if len(req.Body) > 0 {
		body, err := a.decodeBody(req)
		if err != nil {
			return nil, err
		}
		maps.Copy(raw, body)
	}

	for name, v := range captures {
		raw[name] = v
	}

	if a.strategy == VersionParam {
		delete(raw, a.versionKey)
	}
	return raw, nil
}

func (a *App) decodeBody(req *Request) (map[string]any, error) {
	contentType := req.Header.Get("Content-Type")
	dec, ok := a.codecs.decoderFor(contentType)
	if !ok {
		return nil, Errorf(http.StatusUnsupportedMediaType, "unsupported content type %q", contentType)
	}

	var body any
	if err := dec.Decode(bytesReader(req.Body), &body); err != nil {
		return nil, &ValidationError{Field: "body", Reason: fmt.Sprintf("could not be decoded as %s: %v", dec.ContentType(), err)}
	}
	if body == nil {
		return nil, nil
	}
	m, ok := body.(map[string]any)
	if !ok {
		return nil, &ValidationError{Field: "body", Reason: "must be an object"}
	}
	return m, nil
}

// mergeValues copies url.Values into raw: one value as a string, repeated
// values as a []string.
func mergeValues(raw map[string]any, values url.Values) {
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			raw[k] = vs[0]
		default:
			raw[k] = slices.Clone(vs)
		}
	}
}
