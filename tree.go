package nest

import (
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
)

// App is a compiled API. It is immutable and safe for concurrent use.
type App struct {
	prefix     []segment
	strategy   VersionStrategy
	versions   []string
	versionKey string

	trie   *trieNode
	routes []*Route

	formatters   []Formatter
	validateOpts []ValidateOption
	codecs       *codecRegistry

	logger   *slog.Logger
	maxBody  int64
	observer Observer
	tracer   SpanStarter

	handler http.Handler
}

// Route is the structural metadata of one compiled endpoint. Documentation
// exporters read it; it cannot be used to change the App.
type Route struct {
	Method string
	// Path is the full path template without the version segment, e.g.
	// "/api/admin/server_status". Captures are written ":name".
	Path string
	// Prefix is the API prefix, e.g. "/api".
	Prefix string
	// Pattern is the path below the prefix and version.
	Pattern string
	// Versions lists the versions the route is served for. Empty means
	// every version the API declares.
	Versions []string
	// Params is the merged parameter schema, root to leaf.
	Params   []Param
	Strict   bool
	Captures []string

	Summary     string
	Description string
	Tags        []string
	Status      int
	Deprecated  bool
	Hidden      bool
	// Namespaces lists the namespace prefixes from the root to the route.
	Namespaces []string

	segs    []segment
	schema  *Schema
	before  []Hook
	after   []Hook
	handler Handler
}

// PathFor returns the request path of the route for version under the
// VersionPath strategy. With an empty version it returns Path.
func (r *Route) PathFor(version string) string {
	if version == "" {
		return r.Path
	}
	if r.Pattern == "/" {
		return r.Prefix + "/" + version
	}
	return r.Prefix + "/" + version + r.Pattern
}

// Routes returns a copy of the compiled routes in declaration order.
func (a *App) Routes() []Route {
	out := make([]Route, len(a.routes))
	for i, r := range a.routes {
		cp := *r
		cp.Versions = slices.Clone(r.Versions)
		cp.Params = slices.Clone(r.Params)
		cp.Captures = slices.Clone(r.Captures)
		cp.Tags = slices.Clone(r.Tags)
		cp.Namespaces = slices.Clone(r.Namespaces)
		out[i] = cp
	}
	return out
}

// Versioning returns the version strategy and the declared versions.
func (a *App) Versioning() (VersionStrategy, []string) {
	return a.strategy, slices.Clone(a.versions)
}

// VersionKey returns the header or query parameter name the version is read
// from, or "" for path and no versioning.
func (a *App) VersionKey() string { return a.versionKey }

// Prefix returns the API prefix, e.g. "/api".
func (a *App) Prefix() string {
	if len(a.prefix) == 0 {
		return ""
	}
	return patternString(a.prefix)
}

// trieNode indexes routes by path segment. Static children are tried
// before the capture child.
type trieNode struct {
	static  map[string]*trieNode
	capture *trieNode
	routes  map[string][]*Route
}

func newTrieNode() *trieNode {
	return &trieNode{
		static: make(map[string]*trieNode),
		routes: make(map[string][]*Route),
	}
}

func (t *trieNode) insert(r *Route) error {
	n := t
	for _, s := range r.segs {
		if s.capture {
			if n.capture == nil {
				n.capture = newTrieNode()
			}
			n = n.capture
			continue
		}
		child, ok := n.static[s.value]
		if !ok {
			child = newTrieNode()
			n.static[s.value] = child
		}
		n = child
	}

	for _, other := range n.routes[r.Method] {
		if versionsOverlap(other.Versions, r.Versions) {
			return fmt.Errorf("%w: %s %s and %s %s", ErrRouteCollision, other.Method, other.Path, r.Method, r.Path)
		}
	}
	n.routes[r.Method] = append(n.routes[r.Method], r)
	return nil
}

// match walks segs, backtracking from static to capture children until a
// node serves method for version. It returns the route and the captured
// values in order. Methods served for version at nodes that matched the
// path but not the method are added to allowed.
func (t *trieNode) match(segs []string, method, version string, captured []string, allowed map[string]struct{}) (*Route, []string) {
	if len(segs) == 0 {
		r, methods := t.route(method, version)
		if r != nil {
			return r, captured
		}
		for _, m := range methods {
			allowed[m] = struct{}{}
		}
		return nil, nil
	}
	if child, ok := t.static[segs[0]]; ok {
		if r, vals := child.match(segs[1:], method, version, captured, allowed); r != nil {
			return r, vals
		}
	}
	if t.capture != nil {
		if r, vals := t.capture.match(segs[1:], method, version, append(captured, segs[0]), allowed); r != nil {
			return r, vals
		}
	}
	return nil, nil
}

// route selects the route for method and version at t. When there is none
// it returns the methods that are served for version.
func (t *trieNode) route(method, version string) (*Route, []string) {
	candidates := t.routes[method]
	if len(candidates) == 0 && method == http.MethodHead {
		candidates = t.routes[http.MethodGet]
	}
	for _, r := range candidates {
		if servesVersion(r, version) {
			return r, nil
		}
	}

	var allowed []string
	for m, rs := range t.routes {
		if slices.ContainsFunc(rs, func(r *Route) bool { return servesVersion(r, version) }) {
			allowed = append(allowed, m)
		}
	}
	return nil, allowed
}

func servesVersion(r *Route, version string) bool {
	return version == "" || len(r.Versions) == 0 || slices.Contains(r.Versions, version)
}

// resolve finds the route for req and the raw values of its captures.
func (a *App) resolve(c *Context) (*Route, map[string]string, error) {
	req := c.req
	notFound := &RoutingError{Reason: RouteNotFound, Method: req.Method, Path: req.Path}

	segs := splitPath(req.Path)
	captures := make(map[string]string)

	if len(segs) < len(a.prefix) {
		return nil, nil, notFound
	}
	for i, s := range a.prefix {
		switch {
		case s.capture:
			captures[s.value] = segs[i]
		case s.value != segs[i]:
			return nil, nil, notFound
		}
	}
	segs = segs[len(a.prefix):]

	version, segs, err := a.resolveVersion(req, segs)
	if err != nil {
		return nil, nil, err
	}
	c.version = version

	allowed := make(map[string]struct{})
	r, vals := a.trie.match(segs, req.Method, version, nil, allowed)
	if r == nil {
		if len(allowed) == 0 {
			return nil, nil, notFound
		}
		return nil, nil, &RoutingError{
			Reason:  RouteMethodNotAllowed,
			Method:  req.Method,
			Path:    req.Path,
			Version: version,
			Allowed: slices.Sorted(maps.Keys(allowed)),
		}
	}

	i := 0
	for _, s := range r.segs {
		if s.capture {
			captures[s.value] = vals[i]
			i++
		}
	}
	return r, captures, nil
}
