package state

import (
	"errors"
	"fmt"
)

// Errors reported by record operations.
var (
	// ErrUnknownField indicates a field name not declared in the schema.
	ErrUnknownField = errors.New("field not declared in schema")

	// ErrKindMismatch indicates a value of the wrong kind for a field.
	ErrKindMismatch = errors.New("value kind does not match field declaration")

	// ErrInvalidEnumToken indicates an enum value outside the declared tokens.
	ErrInvalidEnumToken = errors.New("value is not a declared enum token")

	// ErrSchemaMismatch indicates two records bound to different schemas.
	ErrSchemaMismatch = errors.New("records have different schemas")
)

// Record is a schema-bound mapping from field name to typed value.
// Unset fields are absent: Get reports ok=false rather than returning a
// zero value or nil.
//
// Internal representation per kind: string fields hold string, int fields
// int64, float fields float64, bool fields bool, enum fields a validated
// string token, record fields a nested Record, list fields []any of
// element values.
//
// Record is a small value wrapping a map; pass it by value. Set mutates
// the underlying map, so use Clone before sharing a record across an
// ownership boundary.
type Record struct {
	schema *Schema
	values map[string]any
}

// Schema returns the schema this record is bound to.
func (r Record) Schema() *Schema {
	return r.schema
}

// Set stores a value for a declared field, type-checking it against the
// schema. Integer and float inputs are normalized (int/int32/int64 to
// int64, float32/float64 to float64); a float field also accepts integer
// input. Nil values are rejected: use Unset to return a field to absent.
func (r Record) Set(name string, value any) error {
	f, ok := r.schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	v, err := checkValue(f, value)
	if err != nil {
		return err
	}
	r.values[name] = v
	return nil
}

// MustSet is Set but panics on error. Intended for building initial
// states and test fixtures where the value is statically known to fit.
func (r Record) MustSet(name string, value any) Record {
	if err := r.Set(name, value); err != nil {
		panic(err)
	}
	return r
}

// Unset returns a field to absent. Unknown names are ignored.
func (r Record) Unset(name string) {
	delete(r.values, name)
}

// Get returns the raw value for a field and whether it is set.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has returns true if the field is set.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// GetString returns a string or enum field's value.
func (r Record) GetString(name string) (string, bool) {
	v, ok := r.values[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt returns an int field's value.
func (r Record) GetInt(name string) (int64, bool) {
	v, ok := r.values[name]
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// GetFloat returns a float field's value.
func (r Record) GetFloat(name string) (float64, bool) {
	v, ok := r.values[name]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// GetBool returns a bool field's value.
func (r Record) GetBool(name string) (bool, bool) {
	v, ok := r.values[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetRecord returns a nested record field's value.
func (r Record) GetRecord(name string) (Record, bool) {
	v, ok := r.values[name]
	if !ok {
		return Record{}, false
	}
	nested, ok := v.(Record)
	return nested, ok
}

// GetList returns a list field's elements.
func (r Record) GetList(name string) ([]any, bool) {
	v, ok := r.values[name]
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok
}

// Len returns the number of set fields.
func (r Record) Len() int {
	return len(r.values)
}

// SetFields returns the names of set fields in schema declaration order.
func (r Record) SetFields() []string {
	names := make([]string, 0, len(r.values))
	for _, f := range r.schema.Fields() {
		if _, ok := r.values[f.Name]; ok {
			names = append(names, f.Name)
		}
	}
	return names
}

// Clone returns a deep copy. The clone shares the schema (immutable) but
// no mutable value storage, so the original and the copy never alias.
func (r Record) Clone() Record {
	out := Record{schema: r.schema, values: make(map[string]any, len(r.values))}
	for name, v := range r.values {
		out.values[name] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies a stored value. Scalars are immutable; nested
// records and lists carry mutable storage that must be copied.
func cloneValue(v any) any {
	switch val := v.(type) {
	case Record:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// checkValue validates and normalizes a value for a field declaration.
func checkValue(f Field, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: field %s: nil value (use Unset for absence)", ErrKindMismatch, f.Name)
	}
	switch f.Kind {
	case KindString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case KindInt:
		switch n := value.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		}
	case KindFloat:
		switch n := value.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case KindBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case KindEnum:
		s, ok := value.(string)
		if !ok {
			break
		}
		for _, token := range f.Enum {
			if s == token {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: field %s: %q not in %v", ErrInvalidEnumToken, f.Name, s, f.Enum)
	case KindRecord:
		nested, ok := value.(Record)
		if !ok {
			break
		}
		if nested.schema != f.Nested {
			return nil, fmt.Errorf("%w: field %s: nested record bound to a different schema", ErrSchemaMismatch, f.Name)
		}
		return nested.Clone(), nil
	case KindList:
		list, ok := value.([]any)
		if !ok {
			break
		}
		out := make([]any, len(list))
		for i, e := range list {
			v, err := checkValue(*f.Elem, e)
			if err != nil {
				return nil, fmt.Errorf("field %s[%d]: %w", f.Name, i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: field %s: want %s, got %T", ErrKindMismatch, f.Name, f.Kind, value)
}
