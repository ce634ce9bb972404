package nest

import (
	"maps"
	"slices"
)

// Params holds validated, normalized parameters. It is produced only by the
// validator and is read-only.
//
// Declared values are normalized: string, int64, bool, []any and Params for
// nested objects. Undeclared values passed through by a non-strict schema
// keep their raw form.
type Params struct {
	values map[string]any
}

// Get returns the value stored under name.
func (p Params) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Has reports whether name is present.
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Len returns the number of parameters.
func (p Params) Len() int { return len(p.values) }

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	return slices.Sorted(maps.Keys(p.values))
}

// String returns the string value of name, or "" if it is absent or not a
// string.
func (p Params) String(name string) string {
	s, _ := asString(p.values[name])
	return s
}

// Int returns the integer value of name, or 0.
func (p Params) Int(name string) int64 {
	n, _ := p.values[name].(int64)
	return n
}

// Bool returns the boolean value of name, or false.
func (p Params) Bool(name string) bool {
	b, _ := p.values[name].(bool)
	return b
}

// Slice returns the array value of name, or nil.
func (p Params) Slice(name string) []any {
	s, _ := p.values[name].([]any)
	return slices.Clone(s)
}

// Object returns the nested object value of name. The result is empty if
// name is absent or not an object.
func (p Params) Object(name string) Params {
	o, _ := p.values[name].(Params)
	return o
}

// Map returns a deep copy of the parameters as plain maps and slices.
func (p Params) Map() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = plain(v)
	}
	return out
}

// MarshalJSON encodes the parameters as a JSON object.
func (p Params) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(p.Map())
}

func plain(v any) any {
	switch x := v.(type) {
	case Params:
		return x.Map()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

// Bind decodes the parameters into a new T using its JSON field names.
func Bind[T any](p Params) (*T, error) {
	b, err := jsonAPI.Marshal(p.Map())
	if err != nil {
		return nil, err
	}
	var out T
	if err := jsonAPI.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
