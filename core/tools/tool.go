// Package tools defines the tool contract the orchestrator governs: specs
// exposed to the model, the invocation/result shapes flowing through the
// gate and governor, and an in-process registry transport.
package tools

import (
	"encoding/json"
	"fmt"
	"reflect"

	invopop "github.com/invopop/jsonschema"
	kaptinlin "github.com/kaptinlin/jsonschema"
)

// ParameterBase describes one tool parameter. Minimum/Maximum carry the
// clamping bounds applied by the governor before dispatch.
type ParameterBase struct {
	Type        string
	Description string
	Minimum     *float64
	Maximum     *float64
	Enum        []any
}

// Tool is a named remote capability reachable through the registry. Heavy
// tools cause a physical/observable action and are held by the
// speak-before-act gate; light tools bypass it.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]ParameterBase
	Heavy       bool

	schemaJSON json.RawMessage
	schema     *kaptinlin.Schema
	execute    func(arguments string) (string, error)
}

type ToolOption func(*Tool)

// WithHeavy marks the tool as causing an observable physical action.
func WithHeavy() ToolOption {
	return func(t *Tool) { t.Heavy = true }
}

// NewTool builds a tool whose handler receives arguments unmarshalled into
// T. The model-facing schema is reflected from T and enriched with the
// descriptions and bounds from parameters.
func NewTool[T any](name, description string, parameters map[string]ParameterBase, handler func(T) (string, error), opts ...ToolOption) Tool {
	tool := Tool{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		execute: func(arguments string) (string, error) {
			var parsed T
			if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
				return "", fmt.Errorf("failed to parse arguments for tool %q: %w", name, err)
			}
			return handler(parsed)
		},
	}
	for _, opt := range opts {
		opt(&tool)
	}

	tool.schemaJSON = reflectSchema[T](parameters)
	tool.schema = compileSchema(tool.schemaJSON)
	return tool
}

// Execute runs the tool handler on a raw argument payload. Validation and
// clamping happen upstream in the governor.
func (t Tool) Execute(arguments string) (string, error) {
	if t.execute == nil {
		return "", fmt.Errorf("tool %q has no handler", t.Name)
	}
	return t.execute(arguments)
}

// SchemaJSON is the model-facing JSON schema for the tool's arguments.
func (t Tool) SchemaJSON() json.RawMessage { return t.schemaJSON }

func reflectSchema[T any](parameters map[string]ParameterBase) json.RawMessage {
	reflector := invopop.Reflector{DoNotReference: true}
	schema := reflector.ReflectFromType(reflect.TypeFor[T]())
	schema.Version = ""

	if schema.Properties != nil {
		for name, parameter := range parameters {
			property, ok := schema.Properties.Get(name)
			if !ok {
				continue
			}
			property.Description = parameter.Description
			if parameter.Minimum != nil {
				property.Minimum = json.Number(fmt.Sprintf("%g", *parameter.Minimum))
			}
			if parameter.Maximum != nil {
				property.Maximum = json.Number(fmt.Sprintf("%g", *parameter.Maximum))
			}
			if len(parameter.Enum) > 0 {
				property.Enum = parameter.Enum
			}
		}
	}

	raw, err := schema.MarshalJSON()
	if err != nil {
		// Reflection of a concrete Go type cannot produce an unmarshalable
		// schema; treat it as a programming error.
		panic(fmt.Sprintf("failed to marshal schema for tool arguments: %v", err))
	}
	return raw
}

func compileSchema(raw json.RawMessage) *kaptinlin.Schema {
	compiler := kaptinlin.NewCompiler()
	schema, err := compiler.Compile(raw)
	if err != nil {
		panic(fmt.Sprintf("failed to compile tool argument schema: %v", err))
	}
	return schema
}
