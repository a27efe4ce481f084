package schema

// JSONSchema renders a schema as a JSON Schema object suitable for the wire
// tools/list reply. The rendering is lossy in one direction only: bounds and
// defaults are carried, Go-side coercion behavior is not expressible.
func JSONSchema(s Schema) map[string]any {
	properties := make(map[string]any, len(s.Fields))
	required := make([]string, 0)

	for _, name := range s.FieldNames() {
		spec := s.Fields[name]
		properties[name] = fieldJSONSchema(spec)
		if spec.Required {
			required = append(required, name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func fieldJSONSchema(spec FieldSpec) map[string]any {
	out := map[string]any{
		"type": jsonSchemaType(spec.Type),
	}
	if spec.Description != "" {
		out["description"] = spec.Description
	}
	if spec.Default != nil {
		out["default"] = spec.Default
	}
	if len(spec.Enum) > 0 {
		out["enum"] = spec.Enum
	}
	if spec.MinLen > 0 {
		out["minLength"] = spec.MinLen
	}
	if spec.MaxLen > 0 {
		out["maxLength"] = spec.MaxLen
	}
	if spec.Min != nil {
		out["minimum"] = *spec.Min
	}
	if spec.Max != nil {
		out["maximum"] = *spec.Max
	}
	if spec.MaxItems > 0 {
		out["maxItems"] = spec.MaxItems
	}
	if spec.Items != nil {
		out["items"] = fieldJSONSchema(*spec.Items)
	}
	if len(spec.Properties) > 0 {
		nested := make(map[string]any, len(spec.Properties))
		for name, prop := range spec.Properties {
			nested[name] = fieldJSONSchema(prop)
		}
		out["properties"] = nested
	}
	return out
}

func jsonSchemaType(typeName string) string {
	switch typeName {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "string"
	}
}
