package sel

// wrapLayer wraps an inner aggregation (or query) body in one more level of
// Elasticsearch nesting: `nested`, `filter`, or `reverse_nested`. Each layer
// is always keyed under "sub", a single unwrap convention so the
// post-formatter can peel layers off without knowing which combination
// produced them.
type wrapLayer func(inner map[string]any) map[string]any

// wrapNested wraps inner in a `nested` aggregation scoped to path.
func wrapNested(path string) wrapLayer {
	return func(inner map[string]any) map[string]any {
		return map[string]any{
			"nested": map[string]any{"path": path},
			"aggs":   map[string]any{"sub": inner},
		}
	}
}

// wrapReverseNested escapes back out of the current nested scope to path
// (the empty string means back to the root document), then applies inner.
func wrapReverseNested(path string) wrapLayer {
	return func(inner map[string]any) map[string]any {
		reverse := map[string]any{}
		if path != "" {
			reverse["path"] = path
		}
		return map[string]any{
			"reverse_nested": reverse,
			"aggs":           map[string]any{"sub": inner},
		}
	}
}

// wrapFilter wraps inner in a `filter` aggregation, used to apply a
// `where` clause's query without it affecting sibling aggregations'
// document sets.
func wrapFilter(query map[string]any) wrapLayer {
	return func(inner map[string]any) map[string]any {
		return map[string]any{
			"filter": query,
			"aggs":   map[string]any{"sub": inner},
		}
	}
}

// unwrapAggregationResult peels the "sub" nesting convention wrapLayer
// applies, returning the innermost aggregation response object - the one
// that holds the actual buckets.
func unwrapAggregationResult(data map[string]any) map[string]any {
	for {
		sub, ok := data["sub"].(map[string]any)
		if !ok {
			return data
		}
		data = sub
	}
}
