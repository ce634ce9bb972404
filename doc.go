// Package nest is a declarative framework for composing versioned, nested
// REST APIs. Namespaces group related endpoints under a shared prefix, every
// namespace and endpoint declares typed parameters that are validated before
// handler code runs, and cross-cutting concerns are expressed as hooks.
//
// The tree is declared once with builders and compiled by Build:
//
//	a := nest.New(
//	    nest.WithPrefix("api"),
//	    nest.WithVersions(nest.VersionPath, "v1"),
//	    nest.WithFormatter(unauthorized),
//	)
//
//	admin := a.Namespace("admin").
//	    Params(nest.NewSchema().Req("token", nest.String())).
//	    After(nest.TokenAuth(nest.TokenAuthConfig{Secret: "password1"}))
//
//	admin.Get("server_status", func(c *nest.Context) (any, error) {
//	    return "Everything is OK", nil
//	})
//
//	app, err := a.Build()
//
// A request runs through a fixed pipeline: pre-validation hooks, parameter
// validation against the schema merged from root to leaf, post-validation
// hooks, then the handler. Any failure is a TypedError and is rendered by the
// first Formatter that claims it, falling back to an RFC 9457 problem details
// response.
//
// The compiled App is immutable and safe for concurrent use. It implements
// http.Handler and exposes Dispatch for transport-independent use.
package nest
