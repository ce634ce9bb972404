package docs

import (
	"bytes"
	"html/template"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/bjaus/nest"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSON writes the document as indented JSON to w.
func (s Spec) WriteJSON(w io.Writer) error {
	enc := jsonAPI.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteYAML writes the document as YAML to w.
func (s Spec) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// Namespace returns a sub-tree that serves the document of the App it is
// compiled into:
//
//	GET <prefix>               OpenAPI JSON
//	GET <prefix>/openapi.yaml  OpenAPI YAML
//	GET <prefix>/ui            Stoplight Elements viewer
//
// The document is built on each request from the finalized route table.
// The endpoints are hidden, so they do not document themselves.
func Namespace(prefix string, info Info, opts ...Option) *nest.Namespace {
	ui := template.Must(template.New("docs").Parse(uiHTML))

	return nest.NewNamespace(prefix).
		Describe("API documentation").
		Get("", func(c *nest.Context) (any, error) {
			var buf bytes.Buffer
			if err := Build(c.App(), info, opts...).WriteJSON(&buf); err != nil {
				return nil, err
			}
			return nest.Blob(http.StatusOK, "application/json", buf.Bytes()), nil
		}, nest.WithHidden(), nest.WithSummary("OpenAPI document (JSON)")).
		Get("openapi.yaml", func(c *nest.Context) (any, error) {
			var buf bytes.Buffer
			if err := Build(c.App(), info, opts...).WriteYAML(&buf); err != nil {
				return nil, err
			}
			return nest.Blob(http.StatusOK, "application/yaml", buf.Bytes()), nil
		}, nest.WithHidden(), nest.WithSummary("OpenAPI document (YAML)")).
		Get("ui", func(c *nest.Context) (any, error) {
			page := uiPage{
				Title:   info.Title,
				SpecURL: strings.TrimSuffix(c.Path(), "/ui"),
			}
			var buf bytes.Buffer
			if err := ui.Execute(&buf, page); err != nil {
				return nil, err
			}
			return nest.Blob(http.StatusOK, "text/html; charset=utf-8", buf.Bytes()), nil
		}, nest.WithHidden(), nest.WithSummary("API documentation viewer"))
}

type uiPage struct {
	Title   string
	SpecURL string
}

const uiHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/@stoplight/elements/styles.min.css">
  <script src="https://unpkg.com/@stoplight/elements/web-components.min.js"></script>
</head>
<body>
  <elements-api
    apiDescriptionUrl="{{.SpecURL}}"
    router="hash"
    layout="sidebar"
  />
</body>
</html>`
