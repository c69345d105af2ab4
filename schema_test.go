package sel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewSchema(t *testing.T) {
	t.Run("builds a root object with nested branches", func(t *testing.T) {
		s := testSchema()
		assert.Equal(t, TypeObject, s.Root.Type)
		assert.NotNil(t, s.Root.Properties["media"])
		assert.Equal(t, TypeObject, s.Root.Properties["media"].Type)
	})

	t.Run("defaults a bare properties node to object", func(t *testing.T) {
		raw := map[string]any{
			"nested_no_type": map[string]any{
				"properties": map[string]any{
					"a": map[string]any{"type": TypeKeyword},
				},
			},
		}
		s, err := NewSchema(raw)
		require.NoError(t, err)
		assert.Equal(t, TypeObject, s.Root.Properties["nested_no_type"].Type)
	})

	t.Run("rejects a malformed field description", func(t *testing.T) {
		_, err := NewSchema(map[string]any{"bad": "not an object"})
		assert.Error(t, err)
		var internalErr *InternalError
		assert.ErrorAs(t, err, &internalErr)
	})
}

func Test_Schema_fieldByPath(t *testing.T) {
	s := testSchema()

	t.Run("finds an exact nested path", func(t *testing.T) {
		entry := s.fieldByPath("media.label.name")
		require.NotNil(t, entry)
		assert.Equal(t, TypeKeyword, entry.field.Type)
	})

	t.Run("returns nil for an unknown path", func(t *testing.T) {
		assert.Nil(t, s.fieldByPath("media.label.unknown"))
	})
}

func Test_Schema_suffixMatches(t *testing.T) {
	s := testSchema()

	t.Run("matches whole segments only, not partial words", func(t *testing.T) {
		matches := s.suffixMatches([]string{"name"})
		require.Len(t, matches, 1)
		assert.Equal(t, "media.label.name", matches[0].path())
	})

	t.Run("does not match a partial segment", func(t *testing.T) {
		matches := s.suffixMatches([]string{"ame"})
		assert.Empty(t, matches)
	})
}

// short_path uniquely identifies a field: no two fields in the schema share
// the same short_path.
func Test_Schema_shortPath_uniqueness(t *testing.T) {
	s := testSchema()
	seen := map[string]bool{}
	for _, e := range s.index {
		sp := s.shortPath(e.segments)
		assert.False(t, seen[sp], "duplicate short_path %q", sp)
		seen[sp] = true
	}
}
