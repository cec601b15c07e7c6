// Package schema builds and validates the JSON Schema that constrains the
// backend's structured response.
//
// # Quick Start
//
//	params := schema.Object(map[string]*schema.Property{
//	    "selectionReplacement": schema.String("Text that replaces the marked span"),
//	}, "selectionReplacement").Strict()
//
//	compiled := schema.MustCompile(params.Raw())
//	err := compiled.Validate(args) // args decoded from the function call
//
// The raw map is what gets handed to the backend as function parameters; the
// compiled form validates whatever the backend sends back.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema represents a JSON Schema definition.
// It provides both the raw map representation (for serialization/prompts)
// and a compiled validator (for runtime validation).
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the underlying map[string]any representation.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate validates the given data against the schema.
// Returns nil if valid, or a *ValidationError describing the failure.
func (s *Schema) Validate(data map[string]any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	// jsonschema wants a plain any; a typed nil map is not an object.
	var v any = data
	if data == nil {
		v = nil
	}
	if err := s.compiled.Validate(v); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError wraps a JSON Schema validation error with a cleaner message.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile compiles a raw schema map into a Schema with a compiled validator.
// A nil map compiles to a nil Schema, which accepts everything.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	schemaJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	schemaData, err := jsonschema.UnmarshalJSON(strings.NewReader(string(schemaJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Schema{
		raw:      raw,
		compiled: compiled,
	}, nil
}

// MustCompile is like Compile but panics on error.
// Use this for schemas defined at init time.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// -----------------------------------------------------------------------------
// Schema Builders
// -----------------------------------------------------------------------------

// ObjectSchema is an object schema under construction.
type ObjectSchema struct {
	properties map[string]*Property
	required   []string
	strict     bool
}

// Object creates an object schema with the given properties.
// Pass property names as variadic arguments to mark them as required.
func Object(properties map[string]*Property, required ...string) *ObjectSchema {
	return &ObjectSchema{properties: properties, required: required}
}

// Strict disallows properties not listed in the schema.
func (o *ObjectSchema) Strict() *ObjectSchema {
	o.strict = true
	return o
}

// Raw returns the schema as a JSON-compatible map.
func (o *ObjectSchema) Raw() map[string]any {
	props := make(map[string]any, len(o.properties))
	for name, prop := range o.properties {
		props[name] = prop.build()
	}

	m := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(o.required) > 0 {
		m["required"] = o.required
	}
	if o.strict {
		m["additionalProperties"] = false
	}
	return m
}

// Property represents a property in an object schema.
type Property struct {
	typ         string
	description string
	enum        []any
	minLength   *int
	maxLength   *int
	pattern     string
}

func (p *Property) build() map[string]any {
	m := map[string]any{}

	if p.typ != "" {
		m["type"] = p.typ
	}
	if p.description != "" {
		m["description"] = p.description
	}
	if len(p.enum) > 0 {
		m["enum"] = p.enum
	}
	if p.minLength != nil {
		m["minLength"] = *p.minLength
	}
	if p.maxLength != nil {
		m["maxLength"] = *p.maxLength
	}
	if p.pattern != "" {
		m["pattern"] = p.pattern
	}

	return m
}

// String creates a string property.
//
//	schema.String("Replacement text")
//	schema.String("Tone").Enum("formal", "casual")
func String(description string) *Property {
	return &Property{typ: "string", description: description}
}

// Enum sets allowed values for the property.
func (p *Property) Enum(values ...any) *Property {
	p.enum = values
	return p
}

// MinLength sets the minimum length for string properties.
func (p *Property) MinLength(min int) *Property {
	p.minLength = &min
	return p
}

// MaxLength sets the maximum length for string properties.
func (p *Property) MaxLength(max int) *Property {
	p.maxLength = &max
	return p
}

// Pattern sets a regex pattern for string validation.
func (p *Property) Pattern(pattern string) *Property {
	p.pattern = pattern
	return p
}
