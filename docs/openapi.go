// Package docs exports a compiled nest API as an OpenAPI 3.1 document. It
// reads the finalized route table and never changes it.
package docs

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/bjaus/nest"
)

// Spec is the top-level OpenAPI 3.1 document.
type Spec struct {
	OpenAPI    string              `json:"openapi" yaml:"openapi"`
	Info       Info                `json:"info" yaml:"info"`
	Servers    []Server            `json:"servers,omitempty" yaml:"servers,omitempty"`
	Tags       []Tag               `json:"tags,omitempty" yaml:"tags,omitempty"`
	Paths      map[string]PathItem `json:"paths" yaml:"paths"`
	Components *Components         `json:"components,omitempty" yaml:"components,omitempty"`
}

// Info holds API metadata.
type Info struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string   `json:"version" yaml:"version"`
	Contact     *Contact `json:"contact,omitempty" yaml:"contact,omitempty"`
	License     *License `json:"license,omitempty" yaml:"license,omitempty"`
}

// Contact is the API maintainer.
type Contact struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// License is the API license.
type License struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Server is a base URL the API is served from.
type Server struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Tag groups operations.
type Tag struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PathItem maps lower-case HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string       `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	OperationID string       `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter  `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   Responses    `json:"responses" yaml:"responses"`
	Deprecated  bool         `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name" yaml:"name"`
	In          string     `json:"in" yaml:"in"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      JSONSchema `json:"schema" yaml:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                 `json:"required" yaml:"required"`
	Content  map[string]MediaType `json:"content" yaml:"content"`
}

// MediaType is a media type object with an optional schema.
type MediaType struct {
	Schema *JSONSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Responses maps HTTP status codes (or "default") to responses.
type Responses map[string]Response

// Response describes a single response.
type Response struct {
	Description string               `json:"description" yaml:"description"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

// Components holds reusable schemas.
type Components struct {
	Schemas map[string]JSONSchema `json:"schemas,omitempty" yaml:"schemas,omitempty"`
}

// Option configures Build.
type Option func(*config)

type config struct {
	servers    []Server
	tags       []Tag
	showHidden bool
}

// WithServer adds a server URL to the document.
func WithServer(url, description string) Option {
	return func(c *config) {
		c.servers = append(c.servers, Server{URL: url, Description: description})
	}
}

// WithTag describes a tag used by the API's endpoints.
func WithTag(name, description string) Option {
	return func(c *config) {
		c.tags = append(c.tags, Tag{Name: name, Description: description})
	}
}

// WithHidden includes endpoints declared with nest.WithHidden.
func WithHidden() Option {
	return func(c *config) {
		c.showHidden = true
	}
}

const problemRef = "#/components/schemas/Problem"

// Build generates the OpenAPI document for app. Under path versioning each
// route appears once per version it serves; under header and parameter
// versioning the version is a required parameter.
func Build(app *nest.App, info Info, opts ...Option) Spec {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	strategy, versions := app.Versioning()
	bodyTypes := app.RequestContentTypes()
	if info.Version == "" && len(versions) > 0 {
		info.Version = versions[len(versions)-1]
	}

	spec := Spec{
		OpenAPI: "3.1.0",
		Info:    info,
		Servers: cfg.servers,
		Tags:    cfg.tags,
		Paths:   make(map[string]PathItem),
		Components: &Components{
			Schemas: map[string]JSONSchema{"Problem": problemSchema()},
		},
	}

	for _, r := range app.Routes() {
		if r.Hidden && !cfg.showHidden {
			continue
		}

		routeVersions := r.Versions
		if len(routeVersions) == 0 {
			routeVersions = versions
		}

		switch strategy {
		case nest.VersionPath:
			for _, v := range routeVersions {
				op := buildOperation(&r, nil, bodyTypes)
				op.OperationID = operationID(r.Method, r.PathFor(v))
				addOperation(spec.Paths, r.PathFor(v), r.Method, op)
			}
		case nest.VersionHeader, nest.VersionParam:
			in := "header"
			if strategy == nest.VersionParam {
				in = "query"
			}
			p := &Parameter{
				Name:     app.VersionKey(),
				In:       in,
				Required: true,
				Schema:   JSONSchema{Type: "string", Enum: slices.Clone(routeVersions)},
			}
			op := buildOperation(&r, p, bodyTypes)
			op.OperationID = operationID(r.Method, r.Path)
			addOperation(spec.Paths, r.Path, r.Method, op)
		default:
			op := buildOperation(&r, nil, bodyTypes)
			op.OperationID = operationID(r.Method, r.Path)
			addOperation(spec.Paths, r.Path, r.Method, op)
		}
	}

	return spec
}

func addOperation(paths map[string]PathItem, path, method string, op Operation) {
	path = toOpenAPIPath(path)
	if paths[path] == nil {
		paths[path] = make(PathItem)
	}
	paths[path][strings.ToLower(method)] = op
}

// buildOperation creates an Operation from a route. Captures become path
// parameters. Other parameters are query parameters for GET, HEAD and
// DELETE and a request body, in every decodable media type, for the
// remaining methods.
func buildOperation(r *nest.Route, version *Parameter, bodyTypes []string) Operation {
	op := Operation{
		Summary:     r.Summary,
		Description: r.Description,
		Tags:        r.Tags,
		Deprecated:  r.Deprecated,
		Responses:   make(Responses),
	}
	if len(op.Tags) == 0 {
		op.Tags = defaultTags(r)
	}

	if version != nil {
		op.Parameters = append(op.Parameters, *version)
	}

	inQuery := r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete
	body := JSONSchema{Type: "object", Properties: make(map[string]JSONSchema)}
	if r.Strict {
		body.AdditionalProperties = false
	}

	for _, p := range r.Params {
		switch {
		case slices.Contains(r.Captures, p.Name):
			op.Parameters = append(op.Parameters, Parameter{
				Name:        p.Name,
				In:          "path",
				Description: p.Doc,
				Required:    true,
				Schema:      paramSchema(p),
			})
		case inQuery:
			op.Parameters = append(op.Parameters, Parameter{
				Name:        p.Name,
				In:          "query",
				Description: p.Doc,
				Required:    p.Required,
				Schema:      paramSchema(p),
			})
		default:
			body.Properties[p.Name] = paramSchema(p)
			if p.Required {
				body.Required = append(body.Required, p.Name)
			}
		}
	}
	for _, name := range r.Captures {
		if !slices.ContainsFunc(r.Params, func(p nest.Param) bool { return p.Name == name }) {
			op.Parameters = append(op.Parameters, Parameter{
				Name:     name,
				In:       "path",
				Required: true,
				Schema:   JSONSchema{Type: "string"},
			})
		}
	}

	if len(body.Properties) > 0 {
		op.RequestBody = &RequestBody{
			Required: len(body.Required) > 0,
			Content:  make(map[string]MediaType, len(bodyTypes)),
		}
		for _, ct := range bodyTypes {
			op.RequestBody.Content[ct] = MediaType{Schema: &body}
		}
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	op.Responses[strconv.Itoa(status)] = Response{Description: "Successful response"}
	op.Responses["default"] = Response{
		Description: "Error",
		Content: map[string]MediaType{
			"application/problem+json": {Schema: &JSONSchema{Ref: problemRef}},
		},
	}

	return op
}

func defaultTags(r *nest.Route) []string {
	for _, ns := range slices.Backward(r.Namespaces) {
		if name := strings.Trim(ns, "/"); name != "" && !strings.Contains(name, ":") {
			return []string{name}
		}
	}
	return nil
}

// toOpenAPIPath rewrites ":name" captures as "{name}".
func toOpenAPIPath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			parts[i] = "{" + name + "}"
		}
	}
	return strings.Join(parts, "/")
}

// operationID derives a stable identifier such as "getApiV1AdminServerStatus".
func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, part := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '_' || r == '-' || r == ':' || r == '.'
	}) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
