package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema validates raw response bodies against a JSON schema reflected from a
// Go response type.
type Schema struct {
	name     string
	compiled *validator.Schema
}

// ReflectSchema builds a Schema from T. Fields without `omitempty` are
// required; unknown properties are allowed.
func ReflectSchema[T any](name string) (*Schema, error) {
	reflector := jsonschema.Reflector{DoNotReference: true, Anonymous: true, AllowAdditionalProperties: true}
	var zero T
	reflected := reflector.Reflect(&zero)

	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("error marshalling %s schema: %w", name, err)
	}

	resource := strings.ReplaceAll(name, " ", "_") + ".json"
	compiler := validator.NewCompiler()
	if err := compiler.AddResource(resource, strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("error adding %s schema: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("error compiling %s schema: %w", name, err)
	}

	return &Schema{name: name, compiled: compiled}, nil
}

// MustReflectSchema is like ReflectSchema but panics on failure. Intended for
// package-level schema variables.
func MustReflectSchema[T any](name string) *Schema {
	schema, err := ReflectSchema[T](name)
	if err != nil {
		panic(err)
	}
	return schema
}

func (s *Schema) Name() string { return s.name }

// Validate checks raw JSON against the schema. Any failure, including
// invalid JSON, is a *MalformedResponseError.
func (s *Schema) Validate(raw []byte) error {
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return &MalformedResponseError{Reason: "invalid JSON in " + s.name, Err: err}
	}
	if err := s.compiled.Validate(document); err != nil {
		return &MalformedResponseError{Reason: s.name + " does not match schema", Err: err}
	}
	return nil
}
