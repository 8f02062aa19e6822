package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewSchema verifies basic schema construction.
func TestNewSchema(t *testing.T) {
	schema := NewSchema().
		String("title").
		Int("revision").
		Float("score").
		Bool("approved").
		Enum("verdict", "approve", "reject")

	assert.Equal(t, 5, schema.Len())

	f, ok := schema.Field("verdict")
	require.True(t, ok)
	assert.Equal(t, KindEnum, f.Kind)
	assert.Equal(t, []string{"approve", "reject"}, f.Enum)
}

// TestSchema_Fields_DeclarationOrder verifies Fields preserves order.
func TestSchema_Fields_DeclarationOrder(t *testing.T) {
	schema := NewSchema().String("c").String("a").String("b")

	var names []string
	for _, f := range schema.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

// TestSchema_DuplicateField_Panics tests duplicate declarations panic.
func TestSchema_DuplicateField_Panics(t *testing.T) {
	assert.Panics(t, func() {
		NewSchema().String("x").Int("x")
	})
}

// TestSchema_EmptyName_Panics tests empty field names panic.
func TestSchema_EmptyName_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "state: field name cannot be empty", func() {
		NewSchema().String("")
	})
}

// TestSchema_EnumWithoutTokens_Panics tests enum fields need tokens.
func TestSchema_EnumWithoutTokens_Panics(t *testing.T) {
	assert.Panics(t, func() {
		NewSchema().Enum("verdict")
	})
}

// TestSchema_RecordWithoutNested_Panics tests record fields need a schema.
func TestSchema_RecordWithoutNested_Panics(t *testing.T) {
	assert.Panics(t, func() {
		NewSchema().Record("sub", nil)
	})
}

// TestSchema_Nested verifies nested record and list declarations.
func TestSchema_Nested(t *testing.T) {
	author := NewSchema().String("name").String("email")
	schema := NewSchema().
		Record("author", author).
		List("tags", Field{Kind: KindString})

	f, ok := schema.Field("author")
	require.True(t, ok)
	assert.Same(t, author, f.Nested)

	f, ok = schema.Field("tags")
	require.True(t, ok)
	require.NotNil(t, f.Elem)
	assert.Equal(t, KindString, f.Elem.Kind)
}

// TestKind_String covers the diagnostic names.
func TestKind_String(t *testing.T) {
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "int", KindInt.String())
	assert.Equal(t, "float", KindFloat.String())
	assert.Equal(t, "bool", KindBool.String())
	assert.Equal(t, "enum", KindEnum.String())
	assert.Equal(t, "record", KindRecord.String())
	assert.Equal(t, "list", KindList.String())
}
