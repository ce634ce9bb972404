package nest

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// ValidateOption configures a single Validate call.
type ValidateOption func(*validator)

// AggregateErrors collects every failure instead of stopping at the first
// one. The returned error is a ValidationErrors.
func AggregateErrors() ValidateOption {
	return func(v *validator) {
		v.aggregate = true
	}
}

// Validate checks raw against s and returns the normalized parameters.
//
// By default validation stops at the first failure, in declaration order,
// and returns it as a *ValidationError. With AggregateErrors every failure is
// collected and returned as ValidationErrors.
func Validate(s *Schema, raw map[string]any, opts ...ValidateOption) (Params, error) {
	v := &validator{}
	for _, opt := range opts {
		opt(v)
	}

	if s == nil {
		s = &Schema{}
	}

	values, _ := v.object(s, raw, "")
	if len(v.errs) > 0 {
		if v.aggregate {
			return Params{}, v.errs
		}
		return Params{}, v.errs[0]
	}
	return Params{values: values}, nil
}

type validator struct {
	aggregate bool
	errs      ValidationErrors
}

func (v *validator) fail(field, reason string, value any) {
	v.errs = append(v.errs, &ValidationError{Field: field, Reason: reason, Value: value})
}

// object validates raw against s. ok is false when validation must stop.
func (v *validator) object(s *Schema, raw map[string]any, prefix string) (map[string]any, bool) {
	out := make(map[string]any, len(raw))
	valid := true

	for _, p := range s.params {
		field := joinField(prefix, p.Name)

		in, present := raw[p.Name]
		if !present || in == nil {
			switch {
			case p.Required:
				v.fail(field, "is required", nil)
				valid = false
				if !v.aggregate {
					return nil, false
				}
			case p.HasDefault:
				norm, ok := v.value(p.Type, p.Default, field)
				if !ok {
					valid = false
					if !v.aggregate {
						return nil, false
					}
					continue
				}
				out[p.Name] = norm
			}
			continue
		}

		norm, ok := v.value(p.Type, in, field)
		if !ok {
			valid = false
			if !v.aggregate {
				return nil, false
			}
			continue
		}
		out[p.Name] = norm
	}

	for _, name := range slices.Sorted(maps.Keys(raw)) {
		if _, declared := s.Lookup(name); declared {
			continue
		}
		if s.strict {
			v.fail(joinField(prefix, name), "is not allowed", raw[name])
			valid = false
			if !v.aggregate {
				return nil, false
			}
			continue
		}
		out[name] = raw[name]
	}

	return out, valid
}

// value validates and normalizes a single present value.
func (v *validator) value(t Type, in any, field string) (any, bool) {
	//exhaustive:ignore
	switch t.kind {
	case kindString:
		if s, ok := asString(in); ok {
			return s, true
		}
	case kindInteger:
		if n, ok := asInteger(in); ok {
			return n, true
		}
	case kindBoolean:
		if b, ok := asBoolean(in); ok {
			return b, true
		}
	case kindArray:
		if t.elem == nil {
			break
		}
		return v.array(*t.elem, in, field)
	case kindObject:
		m, ok := asObject(in)
		if !ok || t.schema == nil {
			break
		}
		out, ok := v.object(t.schema, m, field)
		if !ok {
			return nil, false
		}
		return Params{values: out}, true
	}

	v.fail(field, "must be "+article(t.String())+" "+t.String(), in)
	return nil, false
}

func (v *validator) array(elem Type, in any, field string) (any, bool) {
	items, ok := asSlice(in)
	if !ok {
		v.fail(field, "must be an array", in)
		return nil, false
	}

	out := make([]any, 0, len(items))
	valid := true
	for i, item := range items {
		norm, ok := v.value(elem, item, fmt.Sprintf("%s[%d]", field, i))
		if !ok {
			valid = false
			if !v.aggregate {
				return nil, false
			}
			continue
		}
		out = append(out, norm)
	}
	if !valid {
		return nil, false
	}
	return out, true
}

func article(name string) string {
	switch name {
	case "integer", "array", "object":
		return "an"
	default:
		return "a"
	}
}

// single unwraps a one-element repeated query value.
func single(in any) any {
	if ss, ok := in.([]string); ok && len(ss) == 1 {
		return ss[0]
	}
	return in
}

func asString(in any) (string, bool) {
	s, ok := single(in).(string)
	return s, ok
}

func asInteger(in any) (int64, bool) {
	switch x := single(in).(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return uintToInt(uint64(x))
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return uintToInt(x)
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func uintToInt(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func asBoolean(in any) (bool, bool) {
	switch x := single(in).(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	default:
		return false, false
	}
}

// asSlice accepts any slice or array. A scalar is treated as a one-element
// list so that a single query value can fill an array parameter.
func asSlice(in any) ([]any, bool) {
	switch x := in.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case map[string]any, Params:
		return nil, false
	}

	rv := reflect.ValueOf(in)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	case reflect.Map, reflect.Struct:
		return nil, false
	default:
		return []any{in}, true
	}
}

func asObject(in any) (map[string]any, bool) {
	switch x := in.(type) {
	case map[string]any:
		return x, true
	case Params:
		return x.values, true
	}

	rv := reflect.ValueOf(in)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
