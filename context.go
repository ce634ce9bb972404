package nest

import (
	"context"
	"net/http"
)

// Context carries one request through the hook chain and handler. It is
// created per request and must not be retained after the handler returns.
type Context struct {
	ctx     context.Context
	app     *App
	req     *Request
	version string
	route   *Route

	params    Params
	validated bool

	header  http.Header
	cookies []*http.Cookie
}

func newContext(ctx context.Context, app *App, req *Request) *Context {
	return &Context{
		ctx:    ctx,
		app:    app,
		req:    req,
		header: make(http.Header),
	}
}

// Context returns the request context.
func (c *Context) Context() context.Context { return c.ctx }

// App returns the compiled API serving the request.
func (c *Context) App() *App { return c.app }

// Request returns the request.
func (c *Context) Request() *Request { return c.req }

// Method returns the request method.
func (c *Context) Method() string { return c.req.Method }

// Path returns the request path.
func (c *Context) Path() string { return c.req.Path }

// Header returns the first value of the named request header.
func (c *Context) Header(name string) string { return c.req.Header.Get(name) }

// Version returns the resolved API version, or "" when the API is not
// versioned.
func (c *Context) Version() string { return c.version }

// Route returns the matched route. It is nil while formatting routing
// errors.
func (c *Context) Route() *Route { return c.route }

// Params returns the validated parameters. Before validation has run (in
// pre-validation hooks and for validation failures) it is empty.
func (c *Context) Params() Params { return c.params }

// Validated reports whether parameter validation has completed.
func (c *Context) Validated() bool { return c.validated }

// Cookie returns the named request cookie.
func (c *Context) Cookie(name string) (*http.Cookie, bool) {
	for _, ck := range c.req.Cookies {
		if ck.Name == name {
			return ck, true
		}
	}
	return nil, false
}

// SetCookie stages a cookie on the response. Staged cookies are discarded
// if the request fails.
func (c *Context) SetCookie(ck *http.Cookie) {
	c.cookies = append(c.cookies, ck)
}

// ResponseHeader returns the staged response headers. They are discarded
// if the request fails.
func (c *Context) ResponseHeader() http.Header { return c.header }

// staged returns a copy of the staged headers with cookies applied.
func (c *Context) staged() http.Header {
	h := c.header.Clone()
	for _, ck := range c.cookies {
		if v := ck.String(); v != "" {
			h.Add("Set-Cookie", v)
		}
	}
	return h
}

// checkpoint reports a cancelled request context as an *InternalError.
func (c *Context) checkpoint() error {
	if err := c.ctx.Err(); err != nil {
		return &InternalError{Err: err}
	}
	return nil
}

type contextKey[T any] struct{}

// SetValue stores a typed value on the request. For use in hooks; handlers
// read it with GetValue.
func SetValue[T any](c *Context, val T) {
	c.ctx = context.WithValue(c.ctx, contextKey[T]{}, val)
}

// GetValue retrieves a typed value stored with SetValue.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}
