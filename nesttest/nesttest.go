// Package nesttest provides test helpers for nest APIs.
package nesttest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"

	"github.com/bjaus/nest"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
}

// NewClient starts a test server for app. It is closed when the test ends.
func NewClient(t testing.TB, app *nest.App) *Client {
	t.Helper()
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Option configures a test request.
type Option func(*request)

type request struct {
	query   url.Values
	header  http.Header
	body    io.Reader
	cookies []*http.Cookie
	err     error
}

// Query adds a query parameter.
func Query(key, value string) Option {
	return func(r *request) {
		r.query.Add(key, value)
	}
}

// Header sets a request header.
func Header(key, value string) Option {
	return func(r *request) {
		r.header.Set(key, value)
	}
}

// Cookie adds a request cookie.
func Cookie(ck *http.Cookie) Option {
	return func(r *request) {
		r.cookies = append(r.cookies, ck)
	}
}

// JSON sends v as a JSON body.
func JSON(v any) Option {
	return func(r *request) {
		b, err := jsonAPI.Marshal(v)
		if err != nil {
			r.err = err
			return
		}
		r.body = bytes.NewReader(b)
		r.header.Set("Content-Type", "application/json")
	}
}

// Form sends values as a form-urlencoded body.
func Form(values url.Values) Option {
	return func(r *request) {
		r.body = strings.NewReader(values.Encode())
		r.header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
}

// Result holds a raw API response.
type Result struct {
	Status  int
	Headers http.Header
	Body    []byte
	Raw     *http.Response
}

// Text returns the body as a string.
func (r *Result) Text() string { return string(r.Body) }

// Problem decodes an application/problem+json body.
func (r *Result) Problem(t testing.TB) *nest.ProblemDetail {
	t.Helper()
	var pd nest.ProblemDetail
	if err := jsonAPI.Unmarshal(r.Body, &pd); err != nil {
		t.Fatalf("nesttest: decode problem: %v (body %q)", err, r.Body)
	}
	return &pd
}

// Cookie returns the named cookie set by the response.
func (r *Result) Cookie(name string) (*http.Cookie, bool) {
	for _, ck := range r.Raw.Cookies() {
		if ck.Name == name {
			return ck, true
		}
	}
	return nil, false
}

// Do sends a request and returns the raw result.
func (c *Client) Do(t testing.TB, method, path string, opts ...Option) *Result {
	t.Helper()

	r := &request{query: make(url.Values), header: make(http.Header)}
	for _, opt := range opts {
		opt(r)
	}
	if r.err != nil {
		t.Fatalf("nesttest: build request: %v", r.err)
	}

	target := c.Server.URL + path
	if len(r.query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(context.Background(), method, target, r.body)
	if err != nil {
		t.Fatalf("nesttest: create request: %v", err)
	}
	for k, vs := range r.header {
		req.Header[k] = vs
	}
	for _, ck := range r.cookies {
		req.AddCookie(ck)
	}

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("nesttest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("nesttest: close body: %v", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("nesttest: read body: %v", err)
	}

	return &Result{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    body,
		Raw:     resp,
	}
}

// Response holds a decoded API response.
type Response[T any] struct {
	*Result
	Decoded *T
}

// Get sends a GET request and decodes a JSON response body.
func Get[Resp any](t testing.TB, c *Client, path string, opts ...Option) *Response[Resp] {
	t.Helper()
	return decode[Resp](t, c.Do(t, http.MethodGet, path, opts...))
}

// Post sends body as JSON and decodes a JSON response body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...Option) *Response[Resp] {
	t.Helper()
	return decode[Resp](t, c.Do(t, http.MethodPost, path, append(opts, JSON(body))...))
}

// Put sends body as JSON and decodes a JSON response body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...Option) *Response[Resp] {
	t.Helper()
	return decode[Resp](t, c.Do(t, http.MethodPut, path, append(opts, JSON(body))...))
}

// Delete sends a DELETE request and decodes a JSON response body.
func Delete[Resp any](t testing.TB, c *Client, path string, opts ...Option) *Response[Resp] {
	t.Helper()
	return decode[Resp](t, c.Do(t, http.MethodDelete, path, opts...))
}

// decode leaves Decoded nil for empty and non-JSON bodies.
func decode[Resp any](t testing.TB, res *Result) *Response[Resp] {
	t.Helper()
	out := &Response[Resp]{Result: res}
	if len(res.Body) == 0 || !strings.HasPrefix(res.Headers.Get("Content-Type"), "application/json") {
		return out
	}

	var decoded Resp
	if err := jsonAPI.Unmarshal(res.Body, &decoded); err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("nesttest: decode body: %v", err)
	}
	out.Decoded = &decoded
	return out
}

// Dispatch runs req through app in-process, without a server.
func Dispatch(t testing.TB, app *nest.App, req *nest.Request) *nest.Response {
	t.Helper()
	return app.Dispatch(t.Context(), req)
}
