package nest

import (
	"fmt"
	"slices"
)

type typeKind uint8

const (
	kindInvalid typeKind = iota
	kindString
	kindInteger
	kindBoolean
	kindArray
	kindObject
)

// Type describes the expected shape of a parameter value. The set of types
// is closed: String, Integer, Boolean, Array and Object.
type Type struct {
	kind   typeKind
	elem   *Type
	schema *Schema
}

// String describes a string parameter.
func String() Type { return Type{kind: kindString} }

// Integer describes an integer parameter. Values are normalized to int64.
func Integer() Type { return Type{kind: kindInteger} }

// Boolean describes a boolean parameter.
func Boolean() Type { return Type{kind: kindBoolean} }

// Array describes a list whose elements all match elem.
func Array(elem Type) Type { return Type{kind: kindArray, elem: &elem} }

// Object describes a nested object validated against s.
func Object(s *Schema) Type { return Type{kind: kindObject, schema: s} }

// String returns the type name used in error messages and documentation.
func (t Type) String() string {
	//exhaustive:ignore
	switch t.kind {
	case kindString:
		return "string"
	case kindInteger:
		return "integer"
	case kindBoolean:
		return "boolean"
	case kindArray:
		return "array"
	case kindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Elem returns the element type of an array type.
func (t Type) Elem() (Type, bool) {
	if t.kind != kindArray || t.elem == nil {
		return Type{}, false
	}
	return *t.elem, true
}

// Schema returns the nested schema of an object type, or nil.
func (t Type) Schema() *Schema {
	if t.kind != kindObject {
		return nil
	}
	return t.schema
}

// Param describes a single named parameter.
type Param struct {
	Name       string
	Type       Type
	Required   bool
	Default    any
	HasDefault bool
	Doc        string
}

// ParamOption configures a Param when it is declared.
type ParamOption func(*Param)

// Default sets the value used when an optional parameter is absent.
func Default(v any) ParamOption {
	return func(p *Param) {
		p.Default = v
		p.HasDefault = true
	}
}

// Doc sets the parameter description (used in generated documentation).
func Doc(s string) ParamOption {
	return func(p *Param) {
		p.Doc = s
	}
}

// Schema is an ordered set of parameter declarations. Parameters are
// validated in declaration order.
type Schema struct {
	params []Param
	strict bool
}

// NewSchema returns an empty, non-strict schema.
func NewSchema() *Schema {
	return &Schema{}
}

// Req declares a required parameter.
func (s *Schema) Req(name string, t Type, opts ...ParamOption) *Schema {
	return s.add(Param{Name: name, Type: t, Required: true}, opts)
}

// Opt declares an optional parameter.
func (s *Schema) Opt(name string, t Type, opts ...ParamOption) *Schema {
	return s.add(Param{Name: name, Type: t}, opts)
}

// Strict makes unknown parameters a validation failure instead of passing
// them through.
func (s *Schema) Strict() *Schema {
	s.strict = true
	return s
}

// IsStrict reports whether unknown parameters are rejected.
func (s *Schema) IsStrict() bool {
	return s != nil && s.strict
}

// Params returns a copy of the declared parameters in declaration order.
func (s *Schema) Params() []Param {
	if s == nil {
		return nil
	}
	return slices.Clone(s.params)
}

// Lookup returns the parameter declared under name.
func (s *Schema) Lookup(name string) (Param, bool) {
	if s == nil {
		return Param{}, false
	}
	for _, p := range s.params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (s *Schema) add(p Param, opts []ParamOption) *Schema {
	for _, opt := range opts {
		opt(&p)
	}
	s.params = append(s.params, p)
	return s
}

// check reports malformed declarations: empty or duplicate names, invalid
// types, defaults that do not validate against their type, and object
// schemas that contain themselves.
func (s *Schema) check(path string) []error {
	return s.checkNested(path, make(map[*Schema]bool))
}

// checkNested checks s with open holding the schemas being checked on the
// way down from the root.
func (s *Schema) checkNested(path string, open map[*Schema]bool) []error {
	if s == nil {
		return nil
	}
	if open[s] {
		return []error{fmt.Errorf("%w: schema of %q contains itself", ErrInvalidSchema, pathOrRoot(path))}
	}
	open[s] = true
	defer delete(open, s)

	var errs []error
	seen := make(map[string]bool, len(s.params))
	for _, p := range s.params {
		field := joinField(path, p.Name)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%w: %s: empty parameter name", ErrInvalidSchema, pathOrRoot(path)))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidSchema, field))
			continue
		}
		seen[p.Name] = true

		errs = append(errs, checkType(p.Type, field, open)...)

		if p.HasDefault {
			if p.Required {
				errs = append(errs, fmt.Errorf("%w: required parameter %q has a default", ErrInvalidSchema, field))
			}
			v := &validator{}
			if _, ok := v.value(p.Type, p.Default, field); !ok {
				errs = append(errs, fmt.Errorf("%w: default for %q: %w", ErrInvalidSchema, field, v.errs[0]))
			}
		}
	}
	return errs
}

func checkType(t Type, field string, open map[*Schema]bool) []error {
	//exhaustive:ignore
	switch t.kind {
	case kindString, kindInteger, kindBoolean:
		return nil
	case kindArray:
		if t.elem == nil {
			return []error{fmt.Errorf("%w: array %q has no element type", ErrInvalidSchema, field)}
		}
		return checkType(*t.elem, field+"[]", open)
	case kindObject:
		if t.schema == nil {
			return []error{fmt.Errorf("%w: object %q has no schema", ErrInvalidSchema, field)}
		}
		return t.schema.checkNested(field, open)
	default:
		return []error{fmt.Errorf("%w: parameter %q has no type", ErrInvalidSchema, field)}
	}
}

// mergeSchemas merges schemas ordered from root to leaf. A parameter declared
// closer to the leaf replaces an ancestor's declaration of the same name in
// place; strictness is taken from the closest non-nil schema.
func mergeSchemas(schemas ...*Schema) *Schema {
	merged := &Schema{}
	index := make(map[string]int)
	for _, s := range schemas {
		if s == nil {
			continue
		}
		merged.strict = s.strict
		for _, p := range s.params {
			if i, ok := index[p.Name]; ok {
				merged.params[i] = p
				continue
			}
			index[p.Name] = len(merged.params)
			merged.params = append(merged.params, p)
		}
	}
	return merged
}

func joinField(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func pathOrRoot(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
