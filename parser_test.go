package sel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Parse_simpleFilter(t *testing.T) {
	q, err := Parse("label = bag")
	require.NoError(t, err)
	f, ok := q.Filter.(*Filter)
	require.True(t, ok)
	assert.Equal(t, "label", f.Field)
	assert.Equal(t, Eq, f.Comparator)
	assert.Equal(t, "bag", f.Value.Raw)
}

func Test_Parse_andOrPrecedence(t *testing.T) {
	// "a and b or c and d" reads as (a and b) or (c and d): and binds
	// tighter than or.
	q, err := Parse("a = 1 and b = 2 or c = 3 and d = 4")
	require.NoError(t, err)
	outer, ok := q.Filter.(*Group)
	require.True(t, ok)
	assert.Equal(t, "or", outer.Operator)
	require.Len(t, outer.Items, 2)
	for _, item := range outer.Items {
		inner, ok := item.(*Group)
		require.True(t, ok)
		assert.Equal(t, "and", inner.Operator)
		assert.Len(t, inner.Items, 2)
	}
}

func Test_Parse_not(t *testing.T) {
	q, err := Parse("not label = person or label = indoor")
	require.NoError(t, err)
	outer, ok := q.Filter.(*Group)
	require.True(t, ok)
	assert.Equal(t, "or", outer.Operator)
	require.Len(t, outer.Items, 2)
	_, ok = outer.Items[0].(*Not)
	assert.True(t, ok)
	_, ok = outer.Items[1].(*Filter)
	assert.True(t, ok)
}

func Test_Parse_parenGrouping(t *testing.T) {
	q, err := Parse("(a = 1 or b = 2) and c = 3")
	require.NoError(t, err)
	top, ok := q.Filter.(*Group)
	require.True(t, ok)
	assert.Equal(t, "and", top.Operator)
	require.Len(t, top.Items, 2)
	_, ok = top.Items[0].(*Group)
	assert.True(t, ok)
}

func Test_Parse_where(t *testing.T) {
	q, err := Parse("color = blue where label = bag")
	require.NoError(t, err)
	f, ok := q.Filter.(*Filter)
	require.True(t, ok)
	assert.Equal(t, "color", f.Field)
	require.NotNil(t, f.Where)
	inner, ok := f.Where.(*Filter)
	require.True(t, ok)
	assert.Equal(t, "label", inner.Field)
}

func Test_Parse_contextWhere(t *testing.T) {
	q, err := Parse("media where (label = bag)")
	require.NoError(t, err)
	ctx, ok := q.Filter.(*Context)
	require.True(t, ok)
	assert.Equal(t, "where", ctx.Kind)
	assert.Equal(t, "media", ctx.Field)
}

func Test_Parse_in(t *testing.T) {
	q, err := Parse(`label in [bag, shoe]`)
	require.NoError(t, err)
	f, ok := q.Filter.(*Filter)
	require.True(t, ok)
	assert.Equal(t, In, f.Comparator)
	require.Len(t, f.Values, 2)
	assert.Equal(t, "bag", f.Values[0].Raw)
	assert.Equal(t, "shoe", f.Values[1].Raw)
}

func Test_Parse_notIn(t *testing.T) {
	t.Run("two-word not in", func(t *testing.T) {
		q, err := Parse(`label not in [bag]`)
		require.NoError(t, err)
		f := q.Filter.(*Filter)
		assert.Equal(t, NotIn, f.Comparator)
	})

	t.Run("one-word nin", func(t *testing.T) {
		q, err := Parse(`label nin [bag]`)
		require.NoError(t, err)
		f := q.Filter.(*Filter)
		assert.Equal(t, NotIn, f.Comparator)
	})
}

func Test_Parse_rangeFilter(t *testing.T) {
	t.Run("explicit range() form", func(t *testing.T) {
		q, err := Parse("age range(> 5, < 10)")
		require.NoError(t, err)
		f := q.Filter.(*Filter)
		assert.Equal(t, RangeCmp, f.Comparator)
		assert.Equal(t, Gt, f.RangeLow.Comparator)
		assert.Equal(t, "5", f.RangeLow.Value.Raw)
		assert.Equal(t, Lt, f.RangeHigh.Comparator)
		assert.Equal(t, "10", f.RangeHigh.Value.Raw)
	})

	t.Run("bounded-value shorthand form inverts the left comparator", func(t *testing.T) {
		q, err := Parse("5 < age < 10")
		require.NoError(t, err)
		f := q.Filter.(*Filter)
		assert.Equal(t, RangeCmp, f.Comparator)
		assert.Equal(t, "age", f.Field)
		assert.Equal(t, Gt, f.RangeLow.Comparator)
		assert.Equal(t, Lt, f.RangeHigh.Comparator)
	})

	t.Run("rejects comparators pointing the same direction", func(t *testing.T) {
		_, err := Parse("5 < age > 10")
		assert.Error(t, err)
	})
}

func Test_Parse_prefix(t *testing.T) {
	q, err := Parse(`label prefix ba`)
	require.NoError(t, err)
	f := q.Filter.(*Filter)
	assert.Equal(t, Prefix, f.Comparator)
	assert.Equal(t, "ba", f.Value.Raw)
}

func Test_Parse_bareQueryString(t *testing.T) {
	q, err := Parse(`"some text"`)
	require.NoError(t, err)
	qs, ok := q.Filter.(*QueryStringNode)
	require.True(t, ok)
	assert.Equal(t, "some text", qs.Text)
}

func Test_Parse_aggregation(t *testing.T) {
	t.Run("unnamed aggreg with a graph name", func(t *testing.T) {
		q, err := Parse("aggreg: label graph pie")
		require.NoError(t, err)
		require.Len(t, q.Aggregations, 1)
		agg := q.Aggregations[0]
		assert.Equal(t, "aggreg", agg.Type)
		assert.Equal(t, "label", agg.Field)
		assert.Equal(t, "", agg.Name)
		assert.True(t, agg.Graph)
	})

	t.Run("named histogram with interval and under", func(t *testing.T) {
		q, err := Parse("histogram myname: date interval d under media")
		require.NoError(t, err)
		require.Len(t, q.Aggregations, 1)
		agg := q.Aggregations[0]
		assert.Equal(t, "myname", agg.Name)
		assert.Equal(t, "date", agg.Field)
		assert.Equal(t, "d", agg.Interval)
		assert.Equal(t, "media", agg.Under)
	})

	t.Run("multiplied interval shortcut combines the digit and letter tokens", func(t *testing.T) {
		q, err := Parse("histogram: date interval 3d")
		require.NoError(t, err)
		agg := q.Aggregations[0]
		assert.Equal(t, "3d", agg.Interval)
	})

	t.Run("subaggreg nests a child aggregation", func(t *testing.T) {
		q, err := Parse("aggreg: label subaggreg inner(count: color)")
		require.NoError(t, err)
		agg := q.Aggregations[0]
		require.Len(t, agg.SubAggregations, 1)
		assert.Equal(t, "inner", agg.SubAggregations[0].Name)
		assert.Equal(t, "count", agg.SubAggregations[0].Type)
	})
}

func Test_Parse_sort(t *testing.T) {
	t.Run("field with default order and mode", func(t *testing.T) {
		q, err := Parse("sort: color")
		require.NoError(t, err)
		require.Len(t, q.Sorts, 1)
		assert.Equal(t, "desc", q.Sorts[0].Order)
		assert.Equal(t, "avg", q.Sorts[0].Mode)
	})

	t.Run("under and where", func(t *testing.T) {
		q, err := Parse("sort: color under label where (label = bag)")
		require.NoError(t, err)
		s := q.Sorts[0]
		assert.Equal(t, "label", s.Under)
		require.NotNil(t, s.Where)
	})

	t.Run("synthetic auto/null/random fields parse like any other field", func(t *testing.T) {
		q, err := Parse("sort: random seed 42")
		require.NoError(t, err)
		require.Len(t, q.Sorts, 1)
		assert.Equal(t, "random", q.Sorts[0].Field)
		require.NotNil(t, q.Sorts[0].Seed)
		assert.Equal(t, int64(42), *q.Sorts[0].Seed)
	})
}

func Test_Parse_fullQuery(t *testing.T) {
	q, err := Parse("label = bag aggreg: label sort: color")
	require.NoError(t, err)
	assert.NotNil(t, q.Filter)
	assert.Len(t, q.Aggregations, 1)
	assert.Len(t, q.Sorts, 1)
}

func Test_Parse_syntaxErrors(t *testing.T) {
	cases := []string{
		"label and",
		"(label = bag",
		"label in [bag",
		"5 < 10",
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.Error(t, err)
			var clientErr *ClientInputError
			assert.ErrorAs(t, err, &clientErr)
		})
	}
}

func Test_Parse_invalidFieldPathCharacters(t *testing.T) {
	_, err := Parse("lab#el = bag")
	assert.Error(t, err)
}
