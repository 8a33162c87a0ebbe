// Package record models the self-describing interchange tree (objects,
// arrays, scalars and null) that IR documents are read into, independent of
// the wire encoding.
package record

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"fortio.org/safecast"
)

// Kind classifies a record node.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt   // fits int64
	KindUint  // exceeds math.MaxInt64
	KindFloat // non-integral number
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt, KindUint:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one node of a record tree. The zero Value is null.
//
// The underlying representation is normalized: map[string]any, []any,
// string, bool, nil, int64, uint64 (only above math.MaxInt64) and float64.
type Value struct {
	v any
}

// Null is the null record.
var Null = Value{}

// Of normalizes a decoded Go value into a Value.
func Of(v any) (Value, error) {
	n, err := normalize(v)
	if err != nil {
		return Null, err
	}
	return Value{v: n}, nil
}

// MustOf is Of for values known to be well-formed, e.g. test literals.
func MustOf(v any) Value {
	r, err := Of(v)
	if err != nil {
		panic(err)
	}
	return r
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return normalizeUint(uint64(x)), nil
	case uint64:
		return normalizeUint(x), nil
	case float32:
		return float64(x), nil
	case []byte:
		return string(x), nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is %T, want string", k, k)
			}
			n, err := normalize(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ks, err)
			}
			out[ks] = n
		}
		return out, nil
	case Value:
		return x.v, nil
	default:
		return nil, fmt.Errorf("unsupported record value %T", v)
	}
}

func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

// Kind returns the node kind.
func (v Value) Kind() Kind {
	switch v.v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64:
		return KindInt
	case uint64:
		return KindUint
	case float64:
		return KindFloat
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindNull
	}
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.v == nil }

// Interface returns the normalized Go value, suitable for re-encoding.
func (v Value) Interface() any { return v.v }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	b, ok := v.v.(bool)
	if !ok {
		return false, wrongKind(KindBool, v)
	}
	return b, nil
}

// AsString returns the string payload.
func (v Value) AsString() (string, error) {
	s, ok := v.v.(string)
	if !ok {
		return "", wrongKind(KindString, v)
	}
	return s, nil
}

// AsInt64 returns a signed integer payload.
func (v Value) AsInt64() (int64, error) {
	switch x := v.v.(type) {
	case int64:
		return x, nil
	case uint64:
		return 0, outOfRange(KindInt, v, "value %d overflows int64", x)
	default:
		return 0, wrongKind(KindInt, v)
	}
}

// AsUint64 returns an unsigned integer payload.
func (v Value) AsUint64() (uint64, error) {
	switch x := v.v.(type) {
	case int64:
		u, err := safecast.Conv[uint64](x)
		if err != nil {
			return 0, outOfRange(KindUint, v, "value %d is negative", x)
		}
		return u, nil
	case uint64:
		return x, nil
	default:
		return 0, wrongKind(KindUint, v)
	}
}

// AsFloat64 returns a numeric payload; integers are widened.
func (v Value) AsFloat64() (float64, error) {
	switch x := v.v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	default:
		return 0, wrongKind(KindFloat, v)
	}
}

// AsFloat32 narrows a numeric payload to float32. Finite values beyond the
// float32 range are out of range; infinities and NaN pass through.
func (v Value) AsFloat32() (float32, error) {
	f, err := v.AsFloat64()
	if err != nil {
		return 0, err
	}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, outOfRange(KindFloat, v, "value %g does not fit float32", f)
	}
	return float32(f), nil
}

// AsArray returns the elements of an array node.
func (v Value) AsArray() ([]Value, error) {
	a, ok := v.v.([]any)
	if !ok {
		return nil, wrongKind(KindArray, v)
	}
	out := make([]Value, len(a))
	for i, e := range a {
		out[i] = Value{v: e}
	}
	return out, nil
}

// AsObject returns a field reader over an object node.
func (v Value) AsObject() (Object, error) {
	m, ok := v.v.(map[string]any)
	if !ok {
		return Object{}, wrongKind(KindObject, v)
	}
	return Object{fields: m}, nil
}

// Object reads named fields. Every accessor returns a *FieldError naming the
// field on failure.
type Object struct {
	fields map[string]any
}

// Len returns the number of fields.
func (o Object) Len() int { return len(o.fields) }

// Keys returns the field names in sorted order.
func (o Object) Keys() []string { return slices.Sorted(maps.Keys(o.fields)) }

// Lookup returns a field that is present, possibly null.
func (o Object) Lookup(name string) (Value, bool) {
	x, ok := o.fields[name]
	return Value{v: x}, ok
}

// Present reports whether the field exists and is not null.
func (o Object) Present(name string) bool {
	x, ok := o.fields[name]
	return ok && x != nil
}

// Require returns a field that must be present.
func (o Object) Require(name string) (Value, error) {
	x, ok := o.fields[name]
	if !ok {
		return Null, &FieldError{Field: name, Problem: ProblemMissing}
	}
	return Value{v: x}, nil
}

func (o Object) field(name string, read func(Value) error) error {
	v, err := o.Require(name)
	if err != nil {
		return err
	}
	if err := read(v); err != nil {
		return withField(err, name)
	}
	return nil
}

// Bool reads a required boolean field.
func (o Object) Bool(name string) (out bool, err error) {
	err = o.field(name, func(v Value) (e error) { out, e = v.AsBool(); return })
	return out, err
}

// String reads a required string field.
func (o Object) String(name string) (out string, err error) {
	err = o.field(name, func(v Value) (e error) { out, e = v.AsString(); return })
	return out, err
}

// Int64 reads a required signed integer field.
func (o Object) Int64(name string) (out int64, err error) {
	err = o.field(name, func(v Value) (e error) { out, e = v.AsInt64(); return })
	return out, err
}

// Uint64 reads a required unsigned integer field.
func (o Object) Uint64(name string) (out uint64, err error) {
	err = o.field(name, func(v Value) (e error) { out, e = v.AsUint64(); return })
	return out, err
}

// Float64 reads a required numeric field.
func (o Object) Float64(name string) (out float64, err error) {
	err = o.field(name, func(v Value) (e error) { out, e = v.AsFloat64(); return })
	return out, err
}

// Float32 reads a required numeric field narrowed to float32.
func (o Object) Float32(name string) (out float32, err error) {
	err = o.field(name, func(v Value) (e error) { out, e = v.AsFloat32(); return })
	return out, err
}

// Array reads a required array field.
func (o Object) Array(name string) (out []Value, err error) {
	err = o.field(name, func(v Value) (e error) { out, e = v.AsArray(); return })
	return out, err
}

// Object reads a required object field.
func (o Object) Object(name string) (out Object, err error) {
	err = o.field(name, func(v Value) (e error) { out, e = v.AsObject(); return })
	return out, err
}

// OptString reads an optional string field; absent and null both yield ok=false.
func (o Object) OptString(name string) (out string, ok bool, err error) {
	if !o.Present(name) {
		return "", false, nil
	}
	out, err = o.String(name)
	return out, err == nil, err
}

// OptUint64 reads an optional unsigned field, returning def when absent or null.
func (o Object) OptUint64(name string, def uint64) (uint64, error) {
	if !o.Present(name) {
		return def, nil
	}
	return o.Uint64(name)
}
