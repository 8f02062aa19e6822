// Package state provides the schema-typed record that flows through a graph.
//
// A Schema declares, once per graph, the fields a Record may carry and the
// kind of value each field holds. Records track which fields are set; an
// unset field is reported as absent rather than as a zero value, so nodes
// can distinguish "never written" from "written with the zero value".
//
// Nodes return partial records containing only the fields they changed.
// Merge folds such a partial update into a prior record field by field,
// type-checking every value against the schema.
package state

import (
	"fmt"
)

// Kind identifies the value kind a schema field holds.
type Kind int

// Field kinds.
const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindEnum
	KindRecord
	KindList
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field declares a single schema field.
type Field struct {
	// Name is the field name. Unique within a schema.
	Name string
	// Kind is the value kind.
	Kind Kind
	// Enum lists the legal tokens when Kind is KindEnum.
	Enum []string
	// Nested is the sub-schema when Kind is KindRecord.
	Nested *Schema
	// Elem declares the element when Kind is KindList. Elem.Name is ignored.
	Elem *Field
}

// Schema declares the fields a Record may carry.
// Build a schema once with the fluent methods, then share it freely;
// Schema is immutable after construction from the caller's point of view
// and safe for concurrent reads.
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema creates an empty schema.
// Chain the field methods to declare fields:
//
//	schema := state.NewSchema().
//	    String("title").
//	    Enum("verdict", "approve", "reject").
//	    Float("score")
func NewSchema() *Schema {
	return &Schema{fields: make(map[string]Field)}
}

// Add declares a field. Most callers use the typed convenience methods.
//
// Panics if the name is empty or already declared, if an enum field
// declares no tokens, if a record field has no nested schema, or if a
// list field has no element declaration. These are programmer errors in
// graph construction, not runtime conditions.
func (s *Schema) Add(f Field) *Schema {
	if f.Name == "" {
		panic("state: field name cannot be empty")
	}
	if _, exists := s.fields[f.Name]; exists {
		panic(fmt.Sprintf("state: duplicate field: %s", f.Name))
	}
	switch f.Kind {
	case KindEnum:
		if len(f.Enum) == 0 {
			panic(fmt.Sprintf("state: enum field %s declares no tokens", f.Name))
		}
	case KindRecord:
		if f.Nested == nil {
			panic(fmt.Sprintf("state: record field %s has no nested schema", f.Name))
		}
	case KindList:
		if f.Elem == nil {
			panic(fmt.Sprintf("state: list field %s has no element declaration", f.Name))
		}
	}
	s.fields[f.Name] = f
	s.order = append(s.order, f.Name)
	return s
}

// String declares a string field.
func (s *Schema) String(name string) *Schema {
	return s.Add(Field{Name: name, Kind: KindString})
}

// Int declares an integer field.
func (s *Schema) Int(name string) *Schema {
	return s.Add(Field{Name: name, Kind: KindInt})
}

// Float declares a float field.
func (s *Schema) Float(name string) *Schema {
	return s.Add(Field{Name: name, Kind: KindFloat})
}

// Bool declares a boolean field.
func (s *Schema) Bool(name string) *Schema {
	return s.Add(Field{Name: name, Kind: KindBool})
}

// Enum declares a field restricted to the given tokens.
func (s *Schema) Enum(name string, tokens ...string) *Schema {
	return s.Add(Field{Name: name, Kind: KindEnum, Enum: tokens})
}

// Record declares a nested record field with its own schema.
func (s *Schema) Record(name string, nested *Schema) *Schema {
	return s.Add(Field{Name: name, Kind: KindRecord, Nested: nested})
}

// List declares an ordered sequence field. elem declares the element
// value; its Name is ignored.
func (s *Schema) List(name string, elem Field) *Schema {
	e := elem
	return s.Add(Field{Name: name, Kind: KindList, Elem: &e})
}

// Field returns the declaration for a field name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Has returns true if the field is declared.
func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Fields returns all field declarations in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// NewRecord creates an empty record bound to this schema.
// All fields start absent.
func (s *Schema) NewRecord() Record {
	return Record{schema: s, values: make(map[string]any)}
}
