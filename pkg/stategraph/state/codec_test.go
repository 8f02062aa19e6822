package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCodec_RoundTrip verifies type fidelity through JSON, including the
// int/float distinction that generic map decoding would lose.
func TestCodec_RoundTrip(t *testing.T) {
	author := NewSchema().String("name")
	schema := NewSchema().
		String("title").
		Int("revision").
		Float("score").
		Bool("approved").
		Enum("verdict", "approve", "reject").
		Record("author", author).
		List("tags", Field{Kind: KindString})

	r := schema.NewRecord().
		MustSet("title", "draft").
		MustSet("revision", 3).
		MustSet("score", 8.5).
		MustSet("approved", true).
		MustSet("verdict", "approve").
		MustSet("tags", []any{"go", "graphs"})
	a := author.NewRecord().MustSet("name", "Ada")
	require.NoError(t, r.Set("author", a))

	data, err := json.Marshal(r)
	require.NoError(t, err)

	decoded, err := schema.Decode(data)
	require.NoError(t, err)

	rev, ok := decoded.GetInt("revision")
	require.True(t, ok)
	assert.Equal(t, int64(3), rev)

	score, _ := decoded.GetFloat("score")
	assert.Equal(t, 8.5, score)

	nested, ok := decoded.GetRecord("author")
	require.True(t, ok)
	name, _ := nested.GetString("name")
	assert.Equal(t, "Ada", name)

	tags, _ := decoded.GetList("tags")
	assert.Equal(t, []any{"go", "graphs"}, tags)
}

// TestCodec_AbsentFieldsOmitted verifies absence survives a round trip.
func TestCodec_AbsentFieldsOmitted(t *testing.T) {
	schema := testSchema()
	r := schema.NewRecord().MustSet("title", "draft")

	data, err := json.Marshal(r)
	require.NoError(t, err)

	decoded, err := schema.Decode(data)
	require.NoError(t, err)

	assert.True(t, decoded.Has("title"))
	assert.False(t, decoded.Has("revision"))
	assert.False(t, decoded.Has("score"))
}

// TestDecode_UnknownKey rejects payloads with undeclared fields.
func TestDecode_UnknownKey(t *testing.T) {
	_, err := testSchema().Decode([]byte(`{"bogus": 1}`))
	assert.ErrorIs(t, err, ErrUnknownField)
}

// TestDecode_MistypedValue rejects values of the wrong kind.
func TestDecode_MistypedValue(t *testing.T) {
	schema := testSchema()

	_, err := schema.Decode([]byte(`{"revision": "three"}`))
	assert.Error(t, err)

	_, err = schema.Decode([]byte(`{"verdict": "maybe"}`))
	assert.ErrorIs(t, err, ErrInvalidEnumToken)
}

// TestDecode_EmptyObject yields an all-absent record.
func TestDecode_EmptyObject(t *testing.T) {
	decoded, err := testSchema().Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.Len())
}
