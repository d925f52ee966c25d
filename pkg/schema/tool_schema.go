package schema

import (
	"fmt"
	"math"
)

// ParameterType enumerates the primitive JSON-ish types a parameter can
// declare. Kept as a closed set (rather than a free string) so
// ValidateArguments can type-check without a schema library in the
// common flat-parameter case.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// ParameterSchema describes one tool argument.
type ParameterSchema struct {
	Name        string                     `json:"name"`
	Type        ParameterType              `json:"type"`
	Description string                     `json:"description,omitempty"`
	Required    bool                       `json:"required,omitempty"`
	Default     any                        `json:"default,omitempty"`
	Enum        []any                      `json:"enum,omitempty"`
	Properties  map[string]ParameterSchema `json:"properties,omitempty"`
}

// ToolSchema is either a flat list of ParameterSchema or an opaque
// JSON-schema blob carrying a Format discriminator, per §4.1. Exactly
// one of Parameters or Raw should be set.
type ToolSchema struct {
	Parameters   []ParameterSchema `json:"parameters,omitempty"`
	Raw          map[string]any    `json:"raw,omitempty"`
	Format       string            `json:"format,omitempty"`
	OutputSchema map[string]any    `json:"output_schema,omitempty"`
}

// IsRaw reports whether this schema is an opaque JSON-schema blob
// rather than a flat parameter list.
func (s ToolSchema) IsRaw() bool { return s.Raw != nil }

// ValidateArguments checks args against the schema, rejecting missing
// required parameters, wrong primitive types, NaN/Inf numbers, and
// out-of-enum values, per §4.1. Raw schemas are not structurally
// validated here (callers relying on a raw JSON-schema blob are
// expected to validate with their own JSON-schema engine); this keeps
// the flat-schema path dependency-free. ToJSONSchema is likewise
// hand-written and uses no JSON-schema library.
func (s ToolSchema) ValidateArguments(args map[string]any) error {
	if s.IsRaw() {
		return nil
	}
	for _, p := range s.Parameters {
		v, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("missing required parameter %q", p.Name)
			}
			continue
		}
		if err := validateValue(p, v); err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}
	return nil
}

func validateValue(p ParameterSchema, v any) error {
	if v == nil {
		return nil
	}
	switch p.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", v)
		}
	case TypeNumber, TypeInteger:
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("expected number, got %T", v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("numeric value must be finite, got %v", f)
		}
		if p.Type == TypeInteger && f != math.Trunc(f) {
			return fmt.Errorf("expected integer, got %v", f)
		}
	case TypeArray:
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
		for name, sub := range p.Properties {
			if sv, present := obj[name]; present {
				if err := validateValue(sub, sv); err != nil {
					return fmt.Errorf("property %q: %w", name, err)
				}
			} else if sub.Required {
				return fmt.Errorf("missing required property %q", name)
			}
		}
	}
	if len(p.Enum) > 0 && !inEnum(v, p.Enum) {
		return fmt.Errorf("value %v not in enum %v", v, p.Enum)
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func inEnum(v any, enum []any) bool {
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(v) {
			return true
		}
	}
	return false
}

// ToJSONSchema converts a flat parameter list into a JSON-schema object
// suitable for providers that require function-calling advertisement
// in JSON-schema form (§4.1 conversion helpers).
func (s ToolSchema) ToJSONSchema() map[string]any {
	if s.IsRaw() {
		return s.Raw
	}
	props := make(map[string]any, len(s.Parameters))
	var required []string
	for _, p := range s.Parameters {
		props[p.Name] = parameterToJSONSchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func parameterToJSONSchema(p ParameterSchema) map[string]any {
	out := map[string]any{"type": string(p.Type)}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.Default != nil {
		out["default"] = p.Default
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Type == TypeObject && len(p.Properties) > 0 {
		props := make(map[string]any, len(p.Properties))
		var required []string
		for name, sub := range p.Properties {
			props[name] = parameterToJSONSchema(sub)
			if sub.Required {
				required = append(required, name)
			}
		}
		out["properties"] = props
		if len(required) > 0 {
			out["required"] = required
		}
	}
	return out
}

// FromJSONSchema builds a flat ToolSchema from a JSON-schema object,
// the inverse of ToJSONSchema, for providers that only expose
// function definitions in JSON-schema form.
func FromJSONSchema(js map[string]any) ToolSchema {
	props, _ := js["properties"].(map[string]any)
	requiredSet := map[string]bool{}
	if req, ok := js["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				requiredSet[s] = true
			}
		}
	}
	params := make([]ParameterSchema, 0, len(props))
	for name, raw := range props {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := m["type"].(string)
		desc, _ := m["description"].(string)
		params = append(params, ParameterSchema{
			Name:        name,
			Type:        ParameterType(typ),
			Description: desc,
			Required:    requiredSet[name],
			Default:     m["default"],
		})
	}
	return ToolSchema{Parameters: params}
}
