package nest

import (
	"fmt"
	"net/http"
	"strings"
)

// Hook is a lifecycle callback attached to a namespace or endpoint. A
// non-nil error aborts the request and is rendered by the formatter chain.
type Hook func(c *Context) error

// Handler produces the response for an endpoint. The returned value is
// rendered as follows: *Response is sent as-is, string as text/plain,
// []byte as application/octet-stream, nil as 204 No Content, and anything
// else through the negotiated encoder.
type Handler func(c *Context) (any, error)

// Namespace is a builder for a prefixed group of endpoints and child
// namespaces. Namespaces are only mutated while the API is declared; Build
// compiles them into an immutable App.
type Namespace struct {
	prefix   string
	segs     []segment
	schema   *Schema
	before   []Hook
	after    []Hook
	versions []string
	desc     string

	children  []*Namespace
	endpoints []*Endpoint

	parent *Namespace
	errs   []error
}

// NewNamespace returns a standalone namespace that can later be attached
// to an API or another namespace with Mount.
func NewNamespace(prefix string) *Namespace {
	n := &Namespace{prefix: prefix}
	segs, err := parsePattern(prefix)
	if err != nil {
		n.errs = append(n.errs, fmt.Errorf("%w: %w", ErrInvalidNamespace, err))
	}
	n.segs = segs
	return n
}

// Prefix returns the prefix the namespace was declared with.
func (n *Namespace) Prefix() string { return n.prefix }

// Params sets the parameter schema for the namespace. It replaces any
// schema set earlier.
func (n *Namespace) Params(s *Schema) *Namespace {
	n.schema = s
	return n
}

// Before registers pre-validation hooks.
func (n *Namespace) Before(hooks ...Hook) *Namespace {
	n.before = append(n.before, hooks...)
	return n
}

// After registers post-validation hooks.
func (n *Namespace) After(hooks ...Hook) *Namespace {
	n.after = append(n.after, hooks...)
	return n
}

// Versions restricts the namespace and everything below it to the given
// API versions. Without it the nearest ancestor's restriction applies.
func (n *Namespace) Versions(versions ...string) *Namespace {
	n.versions = append(n.versions, versions...)
	return n
}

// Describe sets a description used by documentation exporters.
func (n *Namespace) Describe(desc string) *Namespace {
	n.desc = desc
	return n
}

// Namespace declares a child namespace and returns its builder.
func (n *Namespace) Namespace(prefix string) *Namespace {
	return n.Mount(NewNamespace(prefix))
}

// Mount attaches a separately built namespace as a child and returns it.
func (n *Namespace) Mount(child *Namespace) *Namespace {
	switch {
	case child == nil:
		n.errs = append(n.errs, fmt.Errorf("%w: mount of nil namespace under %q", ErrInvalidNamespace, n.prefix))
		return NewNamespace("")
	case child.parent != nil:
		n.errs = append(n.errs, fmt.Errorf("%w: namespace %q is already mounted", ErrInvalidNamespace, child.prefix))
		return child
	}
	for p := n; p != nil; p = p.parent {
		if p == child {
			n.errs = append(n.errs, fmt.Errorf("%w: namespace %q cannot be mounted inside itself", ErrInvalidNamespace, child.prefix))
			return child
		}
	}
	child.parent = n
	n.children = append(n.children, child)
	return child
}

// Get declares a GET endpoint.
func (n *Namespace) Get(path string, h Handler, opts ...EndpointOption) *Namespace {
	return n.Handle(http.MethodGet, path, h, opts...)
}

// Post declares a POST endpoint.
func (n *Namespace) Post(path string, h Handler, opts ...EndpointOption) *Namespace {
	return n.Handle(http.MethodPost, path, h, opts...)
}

// Put declares a PUT endpoint.
func (n *Namespace) Put(path string, h Handler, opts ...EndpointOption) *Namespace {
	return n.Handle(http.MethodPut, path, h, opts...)
}

// Patch declares a PATCH endpoint.
func (n *Namespace) Patch(path string, h Handler, opts ...EndpointOption) *Namespace {
	return n.Handle(http.MethodPatch, path, h, opts...)
}

// Delete declares a DELETE endpoint.
func (n *Namespace) Delete(path string, h Handler, opts ...EndpointOption) *Namespace {
	return n.Handle(http.MethodDelete, path, h, opts...)
}

// Handle declares an endpoint for an arbitrary method.
func (n *Namespace) Handle(method, path string, h Handler, opts ...EndpointOption) *Namespace {
	ep := &Endpoint{
		method:  strings.ToUpper(method),
		path:    path,
		handler: h,
	}
	for _, opt := range opts {
		opt(ep)
	}

	segs, err := parsePattern(path)
	if err != nil {
		n.errs = append(n.errs, fmt.Errorf("%w: %s %q: %w", ErrInvalidEndpoint, ep.method, path, err))
	}
	ep.segs = segs

	switch {
	case ep.method == "":
		n.errs = append(n.errs, fmt.Errorf("%w: endpoint %q has no method", ErrInvalidEndpoint, path))
	case h == nil:
		n.errs = append(n.errs, fmt.Errorf("%w: %s %q has no handler", ErrInvalidEndpoint, ep.method, path))
	}

	n.endpoints = append(n.endpoints, ep)
	return n
}

// Endpoint is a leaf route bound to one method and one handler.
type Endpoint struct {
	method  string
	path    string
	segs    []segment
	handler Handler

	schema *Schema
	before []Hook
	after  []Hook

	summary    string
	desc       string
	tags       []string
	status     int
	deprecated bool
	hidden     bool
}

// EndpointOption configures an endpoint at declaration time.
type EndpointOption func(*Endpoint)

// WithParams sets the endpoint's own parameter schema. Its parameters
// override ancestor parameters of the same name.
func WithParams(s *Schema) EndpointOption {
	return func(ep *Endpoint) {
		ep.schema = s
	}
}

// WithBefore adds pre-validation hooks that run after every namespace's
// pre-validation hooks.
func WithBefore(hooks ...Hook) EndpointOption {
	return func(ep *Endpoint) {
		ep.before = append(ep.before, hooks...)
	}
}

// WithAfter adds post-validation hooks that run after every namespace's
// post-validation hooks.
func WithAfter(hooks ...Hook) EndpointOption {
	return func(ep *Endpoint) {
		ep.after = append(ep.after, hooks...)
	}
}

// WithStatus sets the default HTTP status code for the response.
func WithStatus(code int) EndpointOption {
	return func(ep *Endpoint) {
		ep.status = code
	}
}

// WithSummary sets the documentation summary for the endpoint.
func WithSummary(s string) EndpointOption {
	return func(ep *Endpoint) {
		ep.summary = s
	}
}

// WithDescription sets the documentation description for the endpoint.
func WithDescription(d string) EndpointOption {
	return func(ep *Endpoint) {
		ep.desc = d
	}
}

// WithTags adds documentation tags to the endpoint.
func WithTags(tags ...string) EndpointOption {
	return func(ep *Endpoint) {
		ep.tags = append(ep.tags, tags...)
	}
}

// WithDeprecated marks the endpoint as deprecated in documentation.
func WithDeprecated() EndpointOption {
	return func(ep *Endpoint) {
		ep.deprecated = true
	}
}

// WithHidden excludes the endpoint from documentation.
func WithHidden() EndpointOption {
	return func(ep *Endpoint) {
		ep.hidden = true
	}
}

// segment is one element of a prefix or path pattern.
type segment struct {
	value   string
	capture bool
}

// key returns the collision key: captures compare equal regardless of name.
func (s segment) key() string {
	if s.capture {
		return ":"
	}
	return s.value
}

func (s segment) String() string {
	if s.capture {
		return ":" + s.value
	}
	return s.value
}

// parsePattern splits a prefix or path into segments. ":name" declares a
// capture.
func parsePattern(p string) ([]segment, error) {
	parts := splitPath(p)
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			if name == "" {
				return nil, fmt.Errorf("empty capture name in %q", p)
			}
			segs = append(segs, segment{value: name, capture: true})
			continue
		}
		segs = append(segs, segment{value: part})
	}
	return segs, nil
}

// splitPath splits p on "/" and drops empty elements.
func splitPath(p string) []string {
	var parts []string
	for part := range strings.SplitSeq(p, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func patternKey(segs []segment) string {
	keys := make([]string, len(segs))
	for i, s := range segs {
		keys[i] = s.key()
	}
	return strings.Join(keys, "/")
}

func patternString(segs []segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.String()
	}
	return "/" + strings.Join(parts, "/")
}
