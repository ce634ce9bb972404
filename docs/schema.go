package docs

import "github.com/bjaus/nest"

// JSONSchema is the subset of JSON Schema used to describe parameters.
type JSONSchema struct {
	Type        string                `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string                `json:"format,omitempty" yaml:"format,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty" yaml:"items,omitempty"`
	Required    []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default     any                   `json:"default,omitempty" yaml:"default,omitempty"`
	Ref         string                `json:"$ref,omitempty" yaml:"$ref,omitempty"`

	// AdditionalProperties is false for strict schemas and unset otherwise.
	AdditionalProperties any `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

func paramSchema(p nest.Param) JSONSchema {
	s := typeSchema(p.Type)
	s.Description = p.Doc
	if p.HasDefault {
		s.Default = p.Default
	}
	return s
}

// typeSchema converts a parameter type to a JSONSchema.
func typeSchema(t nest.Type) JSONSchema {
	switch t.String() {
	case "integer":
		return JSONSchema{Type: "integer", Format: "int64"}
	case "array":
		elem, ok := t.Elem()
		if !ok {
			return JSONSchema{Type: "array"}
		}
		items := typeSchema(elem)
		return JSONSchema{Type: "array", Items: &items}
	case "object":
		return objectSchema(t.Schema())
	default:
		return JSONSchema{Type: t.String()}
	}
}

func objectSchema(s *nest.Schema) JSONSchema {
	out := JSONSchema{Type: "object"}
	if s == nil {
		return out
	}
	out.Properties = make(map[string]JSONSchema)
	for _, p := range s.Params() {
		out.Properties[p.Name] = paramSchema(p)
		if p.Required {
			out.Required = append(out.Required, p.Name)
		}
	}
	if s.IsStrict() {
		out.AdditionalProperties = false
	}
	return out
}

func problemSchema() JSONSchema {
	return JSONSchema{
		Type:        "object",
		Description: "RFC 9457 problem details",
		Properties: map[string]JSONSchema{
			"type":     {Type: "string"},
			"title":    {Type: "string"},
			"status":   {Type: "integer"},
			"detail":   {Type: "string"},
			"instance": {Type: "string"},
			"code":     {Type: "string"},
			"payload":  {},
			"errors": {
				Type: "array",
				Items: &JSONSchema{
					Type: "object",
					Properties: map[string]JSONSchema{
						"field":  {Type: "string"},
						"reason": {Type: "string"},
						"value":  {},
					},
					Required: []string{"field", "reason"},
				},
			},
		},
		Required: []string{"status"},
	}
}
