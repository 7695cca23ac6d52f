package util

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// ValidationError reports the first argument that does not match a tool schema.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Property describes one tool argument.
type Property struct {
	Name        string
	Type        string // string, integer, number, boolean, array or object
	Description string
	Enum        []string
	Optional    bool
}

// Object renders props as a JSON schema object.
func Object(props ...Property) map[string]any {
	properties := make(map[string]any, len(props))
	var required []string

	for _, p := range props {
		s := map[string]any{"type": p.Type}
		if p.Description != "" {
			s["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			s["enum"] = slices.Clone(p.Enum)
		}
		properties[p.Name] = s

		if !p.Optional {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// CreateSchema derives an argument schema from the exported fields of a
// struct. Tags: json names the argument, description documents it and enum
// lists the allowed values separated by commas. Pointer and omitempty fields
// are optional.
func CreateSchema(structType any) map[string]any {
	return Object(PropertiesOf(structType)...)
}

// PropertiesOf lists the tool arguments described by a struct value.
func PropertiesOf(structType any) []Property {
	t := reflect.TypeOf(structType)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	var props []Property
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}

		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		p := Property{
			Name:        name,
			Type:        kindOf(f.Type),
			Description: f.Tag.Get("description"),
			Optional:    f.Type.Kind() == reflect.Pointer || slices.Contains(strings.Split(opts, ","), "omitempty"),
		}
		if enum := f.Tag.Get("enum"); enum != "" {
			p.Enum = strings.Split(enum, ",")
		}

		props = append(props, p)
	}

	return props
}

func kindOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	}

	return "string"
}

// ValidateParameters checks params against an object schema and returns the
// first mismatch in property name order. Unknown arguments are ignored and a
// nil value satisfies any type.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, name := range requiredFields(schema) {
		if _, ok := params[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	properties, _ := schema["properties"].(map[string]any)

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, ok := params[name]
		if !ok || value == nil {
			continue
		}

		prop, _ := properties[name].(map[string]any)
		want, _ := prop["type"].(string)

		if !matchesType(value, want) {
			return &ValidationError{Field: name, Value: value, Message: fmt.Sprintf("expected type %s, got %T", want, value)}
		}

		if enum := enumValues(prop["enum"]); len(enum) > 0 {
			if s, _ := value.(string); !slices.Contains(enum, s) {
				return &ValidationError{Field: name, Value: value, Message: fmt.Sprintf("must be one of [%s]", strings.Join(enum, ", "))}
			}
		}
	}

	return nil
}

// requiredFields accepts both the []string built by Object and the []any
// produced by decoding a JSON schema.
func requiredFields(schema map[string]any) []string {
	return enumValues(schema["required"])
}

func enumValues(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, x := range vs {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func matchesType(value any, want string) bool {
	rv := reflect.ValueOf(value)

	switch want {
	case "string":
		return rv.Kind() == reflect.String
	case "boolean":
		return rv.Kind() == reflect.Bool
	case "integer":
		switch {
		case rv.CanInt(), rv.CanUint():
			return true
		case rv.CanFloat():
			// Decoded JSON numbers arrive as float64.
			f := rv.Float()
			return f == float64(int64(f))
		}
		return false
	case "number":
		return rv.CanInt() || rv.CanUint() || rv.CanFloat()
	case "array":
		return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	case "object":
		return rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct
	}

	return true
}
