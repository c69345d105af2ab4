package sel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_wrapNested(t *testing.T) {
	inner := map[string]any{"terms": map[string]any{"field": "media.label.name"}}
	wrapped := wrapNested("media.label")(inner)
	assert.Equal(t, map[string]any{"path": "media.label"}, wrapped["nested"])
	assert.Equal(t, inner, wrapped["aggs"].(map[string]any)["sub"])
}

func Test_wrapReverseNested(t *testing.T) {
	inner := map[string]any{"terms": map[string]any{"field": "x"}}

	t.Run("empty path means back to the root document", func(t *testing.T) {
		wrapped := wrapReverseNested("")(inner)
		assert.Equal(t, map[string]any{}, wrapped["reverse_nested"])
	})

	t.Run("non-empty path escapes to that ancestor scope", func(t *testing.T) {
		wrapped := wrapReverseNested("media")(inner)
		assert.Equal(t, map[string]any{"path": "media"}, wrapped["reverse_nested"])
	})
}

func Test_wrapFilter(t *testing.T) {
	inner := map[string]any{"terms": map[string]any{"field": "x"}}
	query := map[string]any{"term": map[string]any{"color": "blue"}}
	wrapped := wrapFilter(query)(inner)
	assert.Equal(t, query, wrapped["filter"])
	assert.Equal(t, inner, wrapped["aggs"].(map[string]any)["sub"])
}

func Test_unwrapAggregationResult(t *testing.T) {
	t.Run("peels every layer of sub nesting", func(t *testing.T) {
		innermost := map[string]any{"buckets": []any{}}
		data := map[string]any{"sub": map[string]any{"sub": map[string]any{"sub": innermost}}}
		assert.Equal(t, innermost, unwrapAggregationResult(data))
	})

	t.Run("returns data unchanged when it carries no sub wrapper", func(t *testing.T) {
		data := map[string]any{"buckets": []any{}}
		assert.Equal(t, data, unwrapAggregationResult(data))
	})
}
