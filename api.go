package nest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
)

// DefaultMaxBodySize is the request body limit applied by ServeHTTP unless
// WithMaxBodySize overrides it.
const DefaultMaxBodySize int64 = 1 << 20

// API is the root builder. It is itself a namespace whose prefix is set by
// WithPrefix. Declare the tree, then call Build once at startup.
type API struct {
	cfg  config
	root *Namespace
}

type config struct {
	prefix     string
	strategy   VersionStrategy
	versions   []string
	versionKey string
	versioned  int

	formatters []Formatter
	aggregate  bool

	logger   *slog.Logger
	encoders []Encoder
	decoders []Decoder
	maxBody  int64

	observers  []Observer
	tracer     SpanStarter
	middleware []Middleware
}

// defaultConfig states the default of every API setting.
func defaultConfig() config {
	return config{
		prefix:     "",
		strategy:   VersionNone,
		versions:   nil,
		versionKey: "",
		versioned:  0,
		formatters: nil,
		aggregate:  false,
		logger:     slog.Default(),
		encoders:   nil,
		decoders:   nil,
		maxBody:    DefaultMaxBodySize,
		observers:  nil,
		tracer:     nil,
		middleware: nil,
	}
}

// Option configures an API.
type Option func(*config)

// WithPrefix sets the path prefix of the whole API, e.g. "api".
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithVersions enables versioning with the given strategy and the versions
// the API serves. An API has exactly one strategy; configuring it twice
// fails Build.
func WithVersions(strategy VersionStrategy, versions ...string) Option {
	return func(c *config) {
		c.strategy = strategy
		c.versions = append([]string(nil), versions...)
		c.versioned++
	}
}

// WithVersionKey overrides the header (VersionHeader) or query parameter
// (VersionParam) the version is read from.
func WithVersionKey(name string) Option {
	return func(c *config) {
		c.versionKey = name
	}
}

// WithFormatter appends an error formatter. Formatters are consulted in
// registration order and the first to claim an error renders it.
func WithFormatter(f Formatter) Option {
	return func(c *config) {
		c.formatters = append(c.formatters, f)
	}
}

// WithAggregateValidation reports every parameter failure instead of only
// the first one.
func WithAggregateValidation() Option {
	return func(c *config) {
		c.aggregate = true
	}
}

// WithLogger sets the logger used for recovered panics and failed writes.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) Option {
	return func(c *config) {
		c.encoders = append(c.encoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) Option {
	return func(c *config) {
		c.decoders = append(c.decoders, dec)
	}
}

// WithMaxBodySize sets the maximum request body size read by ServeHTTP.
func WithMaxBodySize(n int64) Option {
	return func(c *config) {
		c.maxBody = n
	}
}

// WithObserver adds a callback invoked once per dispatched request.
// Observers run in the order added.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithTracer sets a tracing hook for dispatch.
func WithTracer(s SpanStarter) Option {
	return func(c *config) {
		c.tracer = s
	}
}

// WithMiddleware adds HTTP middleware applied by ServeHTTP, in the order added.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *config) {
		c.middleware = append(c.middleware, mw...)
	}
}

// New returns an API builder.
func New(opts ...Option) *API {
	a := &API{cfg: defaultConfig()}
	for _, opt := range opts {
		opt(&a.cfg)
	}
	a.root = NewNamespace(a.cfg.prefix)
	return a
}

// Root returns the root namespace.
func (a *API) Root() *Namespace { return a.root }

// Use adds HTTP middleware. Middleware is applied in the order added.
func (a *API) Use(mw ...Middleware) *API {
	a.cfg.middleware = append(a.cfg.middleware, mw...)
	return a
}

// Namespace declares a top-level namespace and returns its builder.
func (a *API) Namespace(prefix string) *Namespace { return a.root.Namespace(prefix) }

// Mount attaches a separately built namespace at the top level.
func (a *API) Mount(n *Namespace) *Namespace { return a.root.Mount(n) }

// Params sets the API-wide parameter schema.
func (a *API) Params(s *Schema) *API {
	a.root.Params(s)
	return a
}

// Before registers API-wide pre-validation hooks.
func (a *API) Before(hooks ...Hook) *API {
	a.root.Before(hooks...)
	return a
}

// After registers API-wide post-validation hooks.
func (a *API) After(hooks ...Hook) *API {
	a.root.After(hooks...)
	return a
}

// Get declares a top-level GET endpoint.
func (a *API) Get(path string, h Handler, opts ...EndpointOption) *API {
	return a.Handle(http.MethodGet, path, h, opts...)
}

// Post declares a top-level POST endpoint.
func (a *API) Post(path string, h Handler, opts ...EndpointOption) *API {
	return a.Handle(http.MethodPost, path, h, opts...)
}

// Put declares a top-level PUT endpoint.
func (a *API) Put(path string, h Handler, opts ...EndpointOption) *API {
	return a.Handle(http.MethodPut, path, h, opts...)
}

// Patch declares a top-level PATCH endpoint.
func (a *API) Patch(path string, h Handler, opts ...EndpointOption) *API {
	return a.Handle(http.MethodPatch, path, h, opts...)
}

// Delete declares a top-level DELETE endpoint.
func (a *API) Delete(path string, h Handler, opts ...EndpointOption) *API {
	return a.Handle(http.MethodDelete, path, h, opts...)
}

// Handle declares a top-level endpoint for an arbitrary method.
func (a *API) Handle(method, path string, h Handler, opts ...EndpointOption) *API {
	a.root.Handle(method, path, h, opts...)
	return a
}

// Build compiles the declared tree into an immutable App. Every
// configuration error is reported, joined; no App is returned if any exist.
func (a *API) Build() (*App, error) {
	cfg := a.cfg

	c := &compiler{
		cfg:      &cfg,
		rootSegs: a.root.segs,
		trie:     newTrieNode(),
	}
	c.checkVersioning()

	key := cfg.versionKey
	if key == "" {
		key = cfg.strategy.defaultKey()
	}

	rootChain := chain{
		schemas:  []*Schema{a.root.schema},
		before:   slices.Clone(a.root.before),
		after:    slices.Clone(a.root.after),
		versions: a.root.versions,
	}
	c.walk(a.root, rootChain)

	if err := errors.Join(c.errs...); err != nil {
		return nil, err
	}

	app := &App{
		prefix:     a.root.segs,
		strategy:   cfg.strategy,
		versions:   slices.Clone(cfg.versions),
		versionKey: key,
		trie:       c.trie,
		routes:     c.routes,
		formatters: slices.Clone(cfg.formatters),
		codecs:     newCodecRegistry(cfg.encoders, cfg.decoders),
		logger:     cfg.logger,
		maxBody:    cfg.maxBody,
		observer:   chainObservers(cfg.observers),
		tracer:     cfg.tracer,
	}
	if cfg.aggregate {
		app.validateOpts = []ValidateOption{AggregateErrors()}
	}

	var h http.Handler = http.HandlerFunc(app.serveHTTP)
	for i := len(cfg.middleware) - 1; i >= 0; i-- {
		h = cfg.middleware[i](h)
	}
	app.handler = h

	return app, nil
}

// chain accumulates what a route inherits from its ancestors.
type chain struct {
	segs     []segment
	schemas  []*Schema
	before   []Hook
	after    []Hook
	versions []string
	names    []string
}

func (ch chain) extend(n *Namespace) chain {
	versions := ch.versions
	if len(n.versions) > 0 {
		versions = n.versions
	}
	return chain{
		segs:     slices.Concat(ch.segs, n.segs),
		schemas:  slices.Concat(ch.schemas, []*Schema{n.schema}),
		before:   slices.Concat(ch.before, n.before),
		after:    slices.Concat(ch.after, n.after),
		versions: versions,
		names:    slices.Concat(ch.names, []string{n.prefix}),
	}
}

type compiler struct {
	cfg      *config
	rootSegs []segment
	trie     *trieNode
	routes   []*Route
	errs     []error
}

func (c *compiler) fail(err error) {
	c.errs = append(c.errs, err)
}

func (c *compiler) checkVersioning() {
	cfg := c.cfg
	if cfg.versioned > 1 {
		c.fail(fmt.Errorf("%w: version strategy configured %d times", ErrInvalidVersioning, cfg.versioned))
	}
	if !cfg.strategy.valid() {
		c.fail(fmt.Errorf("%w: unknown strategy %d", ErrInvalidVersioning, cfg.strategy))
		return
	}
	if cfg.strategy == VersionNone {
		if len(cfg.versions) > 0 {
			c.fail(fmt.Errorf("%w: versions declared without a strategy", ErrInvalidVersioning))
		}
		return
	}
	if len(cfg.versions) == 0 {
		c.fail(fmt.Errorf("%w: %s strategy without versions", ErrInvalidVersioning, cfg.strategy))
	}
	seen := make(map[string]bool, len(cfg.versions))
	for _, v := range cfg.versions {
		switch {
		case v == "":
			c.fail(fmt.Errorf("%w: empty version", ErrInvalidVersioning))
		case seen[v]:
			c.fail(fmt.Errorf("%w: duplicate version %q", ErrInvalidVersioning, v))
		}
		seen[v] = true
	}
}

func (c *compiler) walk(n *Namespace, ch chain) {
	label := "/" + joinNames(ch.names)

	c.errs = append(c.errs, n.errs...)
	for _, err := range n.schema.check("") {
		c.fail(fmt.Errorf("namespace %s: %w", label, err))
	}
	c.checkNamespaceVersions(n, label)
	c.checkSiblings(n, ch)

	for _, ep := range n.endpoints {
		c.endpoint(ep, ch)
	}
	for _, child := range n.children {
		c.walk(child, ch.extend(child))
	}
}

func (c *compiler) checkNamespaceVersions(n *Namespace, label string) {
	if len(n.versions) == 0 {
		return
	}
	if c.cfg.strategy == VersionNone {
		c.fail(fmt.Errorf("%w: namespace %s restricts versions but the API is not versioned", ErrInvalidVersioning, label))
		return
	}
	for _, v := range n.versions {
		if !slices.Contains(c.cfg.versions, v) {
			c.fail(fmt.Errorf("%w: namespace %s uses undeclared version %q", ErrInvalidVersioning, label, v))
		}
	}
}

// checkSiblings rejects child namespaces whose prefixes are identical and
// that are served for overlapping versions.
func (c *compiler) checkSiblings(n *Namespace, ch chain) {
	type sibling struct {
		ns       *Namespace
		versions []string
	}
	byKey := make(map[string][]sibling)
	for _, child := range n.children {
		versions := ch.versions
		if len(child.versions) > 0 {
			versions = child.versions
		}
		key := patternKey(child.segs)
		for _, other := range byKey[key] {
			if versionsOverlap(other.versions, versions) {
				c.fail(fmt.Errorf("%w: namespaces %q and %q under /%s", ErrPrefixCollision, other.ns.prefix, child.prefix, joinNames(ch.names)))
			}
		}
		byKey[key] = append(byKey[key], sibling{ns: child, versions: versions})
	}
}

func (c *compiler) endpoint(ep *Endpoint, ch chain) {
	segs := slices.Concat(ch.segs, ep.segs)
	schema := mergeSchemas(slices.Concat(ch.schemas, []*Schema{ep.schema})...)

	r := &Route{
		Method:      ep.method,
		Pattern:     patternString(segs),
		Prefix:      prefixString(c.cfg.prefix),
		Versions:    slices.Clone(ch.versions),
		Params:      schema.Params(),
		Strict:      schema.strict,
		Summary:     ep.summary,
		Description: ep.desc,
		Tags:        slices.Clone(ep.tags),
		Status:      ep.status,
		Deprecated:  ep.deprecated,
		Hidden:      ep.hidden,
		Namespaces:  slices.Clone(ch.names),

		segs:    segs,
		schema:  schema,
		before:  slices.Concat(ch.before, ep.before),
		after:   slices.Concat(ch.after, ep.after),
		handler: ep.handler,
	}
	r.Path = r.Prefix + r.Pattern
	if r.Pattern == "/" && r.Prefix != "" {
		r.Path = r.Prefix
	}

	for _, err := range ep.schema.check("") {
		c.fail(fmt.Errorf("%s %s: %w", r.Method, r.Path, err))
	}

	seen := make(map[string]bool)
	for _, s := range slices.Concat(c.rootSegs, segs) {
		if !s.capture {
			continue
		}
		if seen[s.value] {
			c.fail(fmt.Errorf("%w: %s %s captures %q twice", ErrInvalidEndpoint, r.Method, r.Path, s.value))
		}
		seen[s.value] = true
		r.Captures = append(r.Captures, s.value)
		if _, declared := schema.Lookup(s.value); schema.strict && !declared {
			c.fail(fmt.Errorf("%w: %s %s: capture %q is not declared in a strict schema", ErrInvalidSchema, r.Method, r.Path, s.value))
		}
	}

	if err := c.trie.insert(r); err != nil {
		c.fail(err)
		return
	}
	c.routes = append(c.routes, r)
}

func versionsOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, v := range a {
		if slices.Contains(b, v) {
			return true
		}
	}
	return false
}

func joinNames(names []string) string {
	var parts []string
	for _, n := range names {
		parts = append(parts, splitPath(n)...)
	}
	return strings.Join(parts, "/")
}

func prefixString(prefix string) string {
	parts := splitPath(prefix)
	if len(parts) == 0 {
		return ""
	}
	segs, _ := parsePattern(prefix)
	return patternString(segs)
}
