package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Validation diagnostic codes.
const (
	CodeRequired     = "REQUIRED"
	CodeInvalidType  = "INVALID_TYPE"
	CodeOutOfRange   = "OUT_OF_RANGE"
	CodeTooShort     = "TOO_SHORT"
	CodeTooLong      = "TOO_LONG"
	CodeTooManyItems = "TOO_MANY_ITEMS"
	CodeInvalidEnum  = "INVALID_ENUM"
)

// Diagnostic is a structured validation finding for one field.
type Diagnostic struct {
	Field    string   `json:"field"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Params is the schema-conformant value produced by Validate: the raw input
// with defaults substituted and primitive kinds coerced. It is owned by the
// single handler invocation it was produced for.
type Params struct {
	values map[string]any
}

// Map exposes the coerced values. Callers must not retain the map beyond the
// invocation that produced it.
func (p Params) Map() map[string]any {
	return p.values
}

// String returns a string field, or "" when absent.
func (p Params) String(name string) string {
	value, _ := p.values[name].(string)
	return value
}

// StringOr returns a string field, or fallback when absent or empty.
func (p Params) StringOr(name, fallback string) string {
	if value, ok := p.values[name].(string); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

// Int returns an integer field, or 0 when absent.
func (p Params) Int(name string) int {
	switch value := p.values[name].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return 0
	}
}

// IntOr returns an integer field, or fallback when absent.
func (p Params) IntOr(name string, fallback int) int {
	if _, ok := p.values[name]; !ok {
		return fallback
	}
	return p.Int(name)
}

// Float returns a float field, or 0 when absent.
func (p Params) Float(name string) float64 {
	switch value := p.values[name].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case int64:
		return float64(value)
	default:
		return 0
	}
}

// Bool returns a boolean field, or false when absent.
func (p Params) Bool(name string) bool {
	value, _ := p.values[name].(bool)
	return value
}

// Has reports whether a field is present after validation.
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Validate coerces raw input against the schema. It substitutes defaults,
// applies kind-preserving coercions, and checks declared bounds, collecting
// every violation in one pass rather than failing fast. Unknown input fields
// pass through untouched. Validate has no side effects.
func Validate(s Schema, raw map[string]any) (Params, []Diagnostic) {
	out := make(map[string]any, len(raw)+len(s.Fields))
	for key, value := range raw {
		out[key] = value
	}

	diags := make([]Diagnostic, 0)
	for _, name := range s.FieldNames() {
		spec := s.Fields[name]
		value, present := raw[name]

		if !present || value == nil {
			if spec.Default != nil {
				out[name] = normalizeDefault(spec, spec.Default)
				continue
			}
			if spec.Required {
				diags = append(diags, Diagnostic{
					Field:    name,
					Code:     CodeRequired,
					Severity: SeverityError,
					Message:  fmt.Sprintf("%s is required", name),
				})
			}
			continue
		}

		coerced, fieldDiags := coerceField(name, spec, value)
		diags = append(diags, fieldDiags...)
		if len(fieldDiags) == 0 {
			out[name] = coerced
		}
	}
	return Params{values: out}, diags
}

// HasErrors reports whether any diagnostic is error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Summarize renders diagnostics as one human-readable line.
func Summarize(diags []Diagnostic) string {
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Severity == SeverityError {
			parts = append(parts, d.Message)
		}
	}
	return strings.Join(parts, "; ")
}

func coerceField(name string, spec FieldSpec, value any) (any, []Diagnostic) {
	switch spec.Type {
	case TypeString:
		return coerceString(name, spec, value)
	case TypeInteger:
		return coerceInteger(name, spec, value)
	case TypeFloat:
		return coerceFloat(name, spec, value)
	case TypeBoolean:
		return coerceBoolean(name, value)
	case TypeArray:
		return coerceArray(name, spec, value)
	case TypeObject:
		return coerceObject(name, value)
	default:
		return nil, []Diagnostic{{
			Field:    name,
			Code:     CodeInvalidType,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s has unsupported schema type %q", name, spec.Type),
		}}
	}
}

func coerceString(name string, spec FieldSpec, value any) (any, []Diagnostic) {
	text, ok := value.(string)
	if !ok {
		return nil, typeMismatch(name, TypeString, value)
	}

	diags := make([]Diagnostic, 0)
	if spec.MinLen > 0 && len(text) < spec.MinLen {
		diags = append(diags, Diagnostic{
			Field:    name,
			Code:     CodeTooShort,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s must be at least %d characters", name, spec.MinLen),
		})
	}
	if spec.MaxLen > 0 && len(text) > spec.MaxLen {
		diags = append(diags, Diagnostic{
			Field:    name,
			Code:     CodeTooLong,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s must be at most %d characters", name, spec.MaxLen),
		})
	}
	if len(spec.Enum) > 0 && !containsString(spec.Enum, text) {
		diags = append(diags, Diagnostic{
			Field:    name,
			Code:     CodeInvalidEnum,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s must be one of: %s", name, strings.Join(spec.Enum, ", ")),
		})
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return text, nil
}

func coerceInteger(name string, spec FieldSpec, value any) (any, []Diagnostic) {
	var number float64
	switch v := value.(type) {
	case int:
		number = float64(v)
	case int64:
		number = float64(v)
	case float64:
		number = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, typeMismatch(name, TypeInteger, value)
		}
		number = parsed
	default:
		return nil, typeMismatch(name, TypeInteger, value)
	}

	if number != math.Trunc(number) {
		return nil, typeMismatch(name, TypeInteger, value)
	}
	// Conversion to int is defined only inside the representable range.
	if number >= float64(math.MaxInt64) || number < float64(math.MinInt64) {
		return nil, []Diagnostic{{
			Field:    name,
			Code:     CodeOutOfRange,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s is out of integer range", name),
		}}
	}
	if diags := checkRange(name, spec, number); len(diags) > 0 {
		return nil, diags
	}
	return int(number), nil
}

func coerceFloat(name string, spec FieldSpec, value any) (any, []Diagnostic) {
	var number float64
	switch v := value.(type) {
	case float64:
		number = v
	case int:
		number = float64(v)
	case int64:
		number = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, typeMismatch(name, TypeFloat, value)
		}
		number = parsed
	default:
		return nil, typeMismatch(name, TypeFloat, value)
	}

	if diags := checkRange(name, spec, number); len(diags) > 0 {
		return nil, diags
	}
	return number, nil
}

func coerceBoolean(name string, value any) (any, []Diagnostic) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, typeMismatch(name, TypeBoolean, value)
		}
		return parsed, nil
	default:
		return nil, typeMismatch(name, TypeBoolean, value)
	}
}

func coerceArray(name string, spec FieldSpec, value any) (any, []Diagnostic) {
	items, ok := value.([]any)
	if !ok {
		return nil, typeMismatch(name, TypeArray, value)
	}
	if spec.MaxItems > 0 && len(items) > spec.MaxItems {
		return nil, []Diagnostic{{
			Field:    name,
			Code:     CodeTooManyItems,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s must have at most %d items", name, spec.MaxItems),
		}}
	}
	if spec.Items == nil {
		return items, nil
	}

	coerced := make([]any, 0, len(items))
	diags := make([]Diagnostic, 0)
	for i, item := range items {
		itemName := fmt.Sprintf("%s[%d]", name, i)
		value, itemDiags := coerceField(itemName, *spec.Items, item)
		if len(itemDiags) > 0 {
			diags = append(diags, itemDiags...)
			continue
		}
		coerced = append(coerced, value)
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return coerced, nil
}

func coerceObject(name string, value any) (any, []Diagnostic) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, typeMismatch(name, TypeObject, value)
	}
	return obj, nil
}

func checkRange(name string, spec FieldSpec, number float64) []Diagnostic {
	if spec.Min != nil && number < *spec.Min {
		return []Diagnostic{{
			Field:    name,
			Code:     CodeOutOfRange,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s must be >= %v", name, *spec.Min),
		}}
	}
	if spec.Max != nil && number > *spec.Max {
		return []Diagnostic{{
			Field:    name,
			Code:     CodeOutOfRange,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s must be <= %v", name, *spec.Max),
		}}
	}
	return nil
}

func typeMismatch(name, want string, got any) []Diagnostic {
	return []Diagnostic{{
		Field:    name,
		Code:     CodeInvalidType,
		Severity: SeverityError,
		Message:  fmt.Sprintf("%s must be a %s, got %T", name, want, got),
	}}
}

func normalizeDefault(spec FieldSpec, value any) any {
	// Defaults are declared in Go literals; align their kind with what
	// coercion would produce for wire input.
	if spec.Type == TypeInteger {
		switch v := value.(type) {
		case float64:
			return int(v)
		case int64:
			return int(v)
		}
	}
	return value
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
