package sel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFormatter(t *testing.T, cfg Config, w *Warnings) *PostFormatter {
	t.Helper()
	if w == nil {
		w = NewWarnings()
	}
	f, err := NewPostFormatter(testSchema(), cfg, w)
	require.NoError(t, err)
	return f
}

func Test_PostFormatter_FormatAggregations_unwrapsNestedBuckets(t *testing.T) {
	cfg := testConfig()
	f := newTestFormatter(t, cfg, nil)

	plan := map[string]*AggregationPlan{
		"aggreg_0": {Name: "aggreg_0", Type: "aggreg", Field: "media.label.name", QueryField: "label", Size: 10},
	}
	raw := map[string]any{
		"aggreg_0": map[string]any{
			"doc_count": float64(5),
			"sub": map[string]any{
				"buckets": []any{
					map[string]any{"key": "bag", "doc_count": float64(3)},
					map[string]any{"key": "shoe", "doc_count": float64(2)},
				},
			},
		},
	}

	out := f.FormatAggregations(raw, plan)
	body := out["aggreg_0"].(map[string]any)
	assert.Equal(t, "aggreg", body["aggreg_type"])
	assert.Equal(t, "media.label.name", body["field"])
	assert.Equal(t, "label", body["query_field"])
	buckets := body["buckets"].([]any)
	require.Len(t, buckets, 2)
	assert.Equal(t, "bag", buckets[0].(map[string]any)["key"])
}

func Test_PostFormatter_formatOne_nonBucketedMetricPassesThrough(t *testing.T) {
	cfg := testConfig()
	f := newTestFormatter(t, cfg, nil)

	plan := &AggregationPlan{Name: "count_0", Type: "count", Field: "media.label.score", QueryField: "score"}
	data := map[string]any{"value": float64(42)}

	out := f.formatOne(data, plan)
	assert.Equal(t, float64(42), out["value"])
	_, hasBuckets := out["buckets"]
	assert.False(t, hasBuckets)
}

func Test_PostFormatter_formatBucket_dateHistogramKeyAsString(t *testing.T) {
	cfg := testConfig()
	f := newTestFormatter(t, cfg, nil)

	plan := &AggregationPlan{Name: "histogram_0", Type: "histogram", Field: "date", Interval: "month"}
	bucket := map[string]any{"key": float64(1525876800000), "doc_count": float64(1)}

	out := f.formatBucket(bucket, plan)
	keyAsString, ok := out["key_as_string"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, keyAsString)
}

func Test_PostFormatter_formatBucket_recursesIntoSubaggregations(t *testing.T) {
	cfg := testConfig()
	f := newTestFormatter(t, cfg, nil)

	plan := &AggregationPlan{
		Name: "aggreg_0", Type: "aggreg", Field: "media.label.name",
		Sub: map[string]*AggregationPlan{
			"inner": {Name: "inner", Type: "count", Field: "media.label.score"},
		},
	}
	bucket := map[string]any{
		"key":       "bag",
		"doc_count": float64(3),
		"inner": map[string]any{
			"sub": map[string]any{"value": float64(7)},
		},
	}

	out := f.formatBucket(bucket, plan)
	inner := out["inner"].(map[string]any)
	assert.Equal(t, float64(7), inner["value"])
}

func Test_PostFormatter_warnLargeBucketCount(t *testing.T) {
	cfg := testConfig()
	cfg.Aggregations.MaxBucketsWarning = 2

	t.Run("warns past the threshold on a non-date terms aggregation", func(t *testing.T) {
		w := NewWarnings()
		f := newTestFormatter(t, cfg, w)
		plan := &AggregationPlan{Type: "aggreg", Field: "media.label.name"}
		f.warnLargeBucketCount(plan, 3)
		require.Len(t, w.List(), 1)
		assert.Contains(t, w.List()[0], "more than")
	})

	t.Run("never warns for a histogram", func(t *testing.T) {
		w := NewWarnings()
		f := newTestFormatter(t, cfg, w)
		plan := &AggregationPlan{Type: "histogram", Field: "date"}
		f.warnLargeBucketCount(plan, 10)
		assert.True(t, w.Empty())
	})

	t.Run("never warns for a date field terms aggregation", func(t *testing.T) {
		w := NewWarnings()
		f := newTestFormatter(t, cfg, w)
		plan := &AggregationPlan{Type: "aggreg", Field: "date"}
		f.warnLargeBucketCount(plan, 10)
		assert.True(t, w.Empty())
	})
}

func Test_PostFormatter_limitBuckets(t *testing.T) {
	cfg := testConfig()
	w := NewWarnings()
	f := newTestFormatter(t, cfg, w)

	plan := &AggregationPlan{Field: "media.label.name", Size: 2}
	buckets := []any{
		map[string]any{"key": "a"},
		map[string]any{"key": "b"},
		map[string]any{"key": "c"},
	}

	limited := f.limitBuckets(plan, buckets)
	assert.Len(t, limited, 2)
	require.Len(t, w.List(), 1)
	assert.Contains(t, w.List()[0], "more than")
}

func Test_PostFormatter_limitBuckets_noLimitWhenSizeUnset(t *testing.T) {
	cfg := testConfig()
	f := newTestFormatter(t, cfg, nil)

	plan := &AggregationPlan{Field: "date", Size: 0}
	buckets := []any{map[string]any{"key": "a"}, map[string]any{"key": "b"}}

	limited := f.limitBuckets(plan, buckets)
	assert.Len(t, limited, 2)
}
