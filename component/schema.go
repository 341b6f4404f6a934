package component

import (
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"pkg.world.dev/world-engine/scene/types"
)

// Field describes one initializer field a component accepts.
type Field struct {
	Name     string     `json:"name"`
	Kind     types.Kind `json:"kind"`
	Required bool       `json:"required"`
}

// Schema is the initializer schema of a component, reflected from a Go struct. Struct fields map to
// initializer fields by their json name; fields tagged omitempty are optional.
type Schema struct {
	raw    []byte
	fields []Field
	byName map[string]int
}

type schemaProperty struct {
	Type string `json:"type"`
}

type schemaObject struct {
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

type schemaDocument struct {
	Ref         string                    `json:"$ref"`
	Definitions map[string]schemaObject   `json:"definitions"`
	Defs        map[string]schemaObject   `json:"$defs"`
	Properties  map[string]schemaProperty `json:"properties"`
	Required    []string                  `json:"required"`
}

// NewSchema reflects the initializer schema of I, which must be a struct whose fields are integers,
// floats or strings (or pointers to them).
func NewSchema[I any]() (*Schema, error) {
	var zero I
	raw, err := jsonschema.ReflectFromType(reflect.TypeOf(zero)).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "initializer must be json serializable")
	}
	return parseSchema(raw)
}

// MustSchema is NewSchema for package level initialization.
func MustSchema[I any]() *Schema {
	s, err := NewSchema[I]()
	if err != nil {
		panic(err)
	}
	return s
}

func parseSchema(raw []byte) (*Schema, error) {
	var doc schemaDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "failed to read reflected schema")
	}

	obj := schemaObject{Properties: doc.Properties, Required: doc.Required}
	if doc.Ref != "" {
		name := doc.Ref[strings.LastIndex(doc.Ref, "/")+1:]
		def, ok := doc.Definitions[name]
		if !ok {
			def, ok = doc.Defs[name]
		}
		if !ok {
			return nil, eris.Errorf("schema reference %s not found", doc.Ref)
		}
		obj = def
	}

	required := make(map[string]bool, len(obj.Required))
	for _, name := range obj.Required {
		required[name] = true
	}

	s := &Schema{raw: raw, byName: make(map[string]int, len(obj.Properties))}
	for name, prop := range obj.Properties {
		var kind types.Kind
		switch prop.Type {
		case "integer":
			kind = types.KindInt
		case "number":
			kind = types.KindFloat
		case "string":
			kind = types.KindString
		default:
			return nil, eris.Errorf("initializer field %s has unsupported type %q", name, prop.Type)
		}
		s.fields = append(s.fields, Field{Name: name, Kind: kind, Required: required[name]})
	}
	sort.Slice(s.fields, func(i, j int) bool { return s.fields[i].Name < s.fields[j].Name })
	for i, f := range s.fields {
		s.byName[f.Name] = i
	}
	return s, nil
}

// Fields returns the accepted fields sorted by name.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// JSON returns the reflected JSON schema document.
func (s *Schema) JSON() []byte {
	return s.raw
}

// Validate checks an initializer map: every required field is present, no unknown field is given,
// and every value has the field's kind. Integers are accepted for float fields.
func (s *Schema) Validate(init types.InitMap) error {
	for _, f := range s.fields {
		if f.Required && !init.Has(f.Name) {
			return eris.Wrapf(types.ErrMissingField, "field %q", f.Name)
		}
	}
	for _, key := range init.Keys() {
		f, ok := s.Field(key)
		if !ok {
			return eris.Wrapf(ErrUnknownField, "field %q", key)
		}
		got := init[key].Kind()
		if got == f.Kind || (f.Kind == types.KindFloat && got == types.KindInt) {
			continue
		}
		return eris.Wrapf(types.ErrFieldKind, "field %q is %s, want %s", key, got, f.Kind)
	}
	return nil
}

// ValidateAgainst compares the schema with one stored by an external scene loader.
func (s *Schema) ValidateAgainst(stored []byte) error {
	diff, err := jsondiff.CompareJSON(s.raw, stored)
	if err != nil {
		return eris.Wrap(err, "failed to compare component schema")
	}

	if diff.String() != "" {
		return eris.Wrap(ErrSchemaMismatch, diff.String())
	}

	return nil
}
