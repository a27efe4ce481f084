// Package schema declares the input shapes tools accept and validates
// loosely-typed wire input against them.
package schema

import "slices"

// Field type literals understood by the validator.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

var validTypes = map[string]struct{}{
	TypeString:  {},
	TypeInteger: {},
	TypeFloat:   {},
	TypeBoolean: {},
	TypeArray:   {},
	TypeObject:  {},
}

// FieldSpec describes one named input field.
type FieldSpec struct {
	Type        string               `json:"type"`
	Required    bool                 `json:"required,omitempty"`
	Description string               `json:"description,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	MinLen      int                  `json:"min_len,omitempty"`
	MaxLen      int                  `json:"max_len,omitempty"`
	Min         *float64             `json:"min,omitempty"`
	Max         *float64             `json:"max,omitempty"`
	MaxItems    int                  `json:"max_items,omitempty"`
	Items       *FieldSpec           `json:"items,omitempty"`
	Properties  map[string]FieldSpec `json:"properties,omitempty"`
}

// Schema is a declarative field table for one tool's input. It is pure data:
// composed at registration time, never mutated afterwards.
type Schema struct {
	Fields map[string]FieldSpec `json:"fields"`
}

// New builds a schema from a field table.
func New(fields map[string]FieldSpec) Schema {
	return Schema{Fields: fields}
}

// FieldNames returns declared field names in deterministic order.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Paginated returns a copy of base extended with page/limit fields. Callers
// get page >= 1 (default 1) and 1 <= limit <= 100 (default 25) after
// validation.
func Paginated(base map[string]FieldSpec) Schema {
	fields := make(map[string]FieldSpec, len(base)+2)
	for name, spec := range base {
		fields[name] = spec
	}
	one := 1.0
	hundred := 100.0
	fields["page"] = FieldSpec{
		Type:        TypeInteger,
		Description: "Page number (1-based)",
		Default:     1,
		Min:         &one,
	}
	fields["limit"] = FieldSpec{
		Type:        TypeInteger,
		Description: "Maximum results per page",
		Default:     25,
		Min:         &one,
		Max:         &hundred,
	}
	return New(fields)
}

func isValidType(typeName string) bool {
	_, ok := validTypes[typeName]
	return ok
}
