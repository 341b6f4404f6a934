package types

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

var (
	ErrMissingField = eris.New("missing initializer field")
	ErrFieldKind    = eris.New("initializer field has the wrong kind")
)

// Kind is the value kind of an initializer field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindInvalid:
	}
	return "invalid"
}

// Value is one typed initializer value.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func String(v string) Value { return Value{kind: KindString, s: v} }

func (v Value) Kind() Kind { return v.kind }

// Any returns the underlying Go value.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindInvalid:
	}
	return nil
}

func (v Value) String() string {
	return fmt.Sprintf("%v(%v)", v.kind, v.Any())
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON reads a JSON number or string. Numbers written without a fraction or exponent
// become integers.
func (v *Value) UnmarshalJSON(bz []byte) error {
	var raw any
	if err := json.Unmarshal(bz, &raw); err != nil {
		return eris.Wrap(err, "invalid initializer value")
	}
	switch x := raw.(type) {
	case string:
		*v = String(x)
	case float64:
		if bytes.ContainsAny(bz, ".eE") {
			*v = Float(x)
			return nil
		}
		var i int64
		if err := json.Unmarshal(bz, &i); err != nil {
			return eris.Wrap(err, "integer out of range")
		}
		*v = Int(i)
	default:
		return eris.Wrapf(ErrFieldKind, "unsupported initializer value %s", bz)
	}
	return nil
}

// InitMap is the typed, string keyed initializer record a component entity is built from.
type InitMap map[string]Value

// Keys returns the field names in sorted order.
func (m InitMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m InitMap) Has(key string) bool {
	_, ok := m[key]
	return ok
}

func (m InitMap) Int(key string) (int64, error) {
	v, ok := m[key]
	if !ok {
		return 0, eris.Wrapf(ErrMissingField, "field %q", key)
	}
	if v.kind != KindInt {
		return 0, eris.Wrapf(ErrFieldKind, "field %q is %s, want integer", key, v.kind)
	}
	return v.i, nil
}

// Float accepts integer values as well, since scene descriptions often write 1 for 1.0.
func (m InitMap) Float(key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, eris.Wrapf(ErrMissingField, "field %q", key)
	}
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	case KindString, KindInvalid:
	}
	return 0, eris.Wrapf(ErrFieldKind, "field %q is %s, want float", key, v.kind)
}

func (m InitMap) Str(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", eris.Wrapf(ErrMissingField, "field %q", key)
	}
	if v.kind != KindString {
		return "", eris.Wrapf(ErrFieldKind, "field %q is %s, want string", key, v.kind)
	}
	return v.s, nil
}

// AsMap flattens the init map into plain Go values, ready for encoding.
func (m InitMap) AsMap() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}
