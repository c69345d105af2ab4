package sel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseDate(t *testing.T) {
	cases := []struct {
		literal     string
		granularity string
	}{
		{"2018", "year"},
		{"2018-05", "month"},
		{"2018-05-09", "day"},
		{"2018-05-09 14", "hour"},
		{"2018-05-09 14:30", "minute"},
		{"2018-05-09 14:30:05", "second"},
	}
	for _, c := range cases {
		t.Run(c.literal, func(t *testing.T) {
			parsed, ok := parseDate(c.literal, time.UTC)
			require.True(t, ok)
			assert.Equal(t, c.granularity, parsed.granularity)
		})
	}

	t.Run("rejects a non-date literal", func(t *testing.T) {
		_, ok := parseDate("not-a-date", time.UTC)
		assert.False(t, ok)
	})
}

func Test_addGranularityUnit(t *testing.T) {
	base := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("year advances by a calendar year, not a fixed duration", func(t *testing.T) {
		next := addGranularityUnit(base, "year")
		assert.Equal(t, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("month advances across a leap boundary correctly", func(t *testing.T) {
		leapBase := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
		next := addGranularityUnit(leapBase, "month")
		assert.Equal(t, time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), next, "Go's AddDate rolls over, matching its calendar-arithmetic semantics")
	})

	t.Run("second advances by exactly one second", func(t *testing.T) {
		next := addGranularityUnit(base, "second")
		assert.Equal(t, base.Add(time.Second), next)
	})
}

func Test_formatElasticDate(t *testing.T) {
	tm := time.Date(2018, 5, 9, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "2018-05-09 14:30:05", formatElasticDate(tm))
}

func Test_shortcutToInterval(t *testing.T) {
	t.Run("expands single-letter shortcuts", func(t *testing.T) {
		g, err := shortcutToInterval("d")
		require.NoError(t, err)
		assert.Equal(t, "day", g)
	})

	t.Run("strips a leading multiplier", func(t *testing.T) {
		g, err := shortcutToInterval("3d")
		require.NoError(t, err)
		assert.Equal(t, "day", g)
	})

	t.Run("accepts a full granularity name", func(t *testing.T) {
		g, err := shortcutToInterval("month")
		require.NoError(t, err)
		assert.Equal(t, "month", g)
	})

	t.Run("rejects an unknown interval", func(t *testing.T) {
		_, err := shortcutToInterval("xyz")
		assert.Error(t, err)
	})
}

func Test_goLayoutFromInterval(t *testing.T) {
	layout, ok := goLayoutFromInterval("month")
	require.True(t, ok)
	assert.Equal(t, "2006-01", layout)

	_, ok = goLayoutFromInterval("unknown")
	assert.False(t, ok)
}

func Test_parseBucketKeyMillis(t *testing.T) {
	tm := parseBucketKeyMillis(1525876800000, time.UTC)
	assert.Equal(t, 2018, tm.Year())
}

func Test_parseHistogramInterval(t *testing.T) {
	n, err := parseHistogramInterval("10")
	require.NoError(t, err)
	assert.Equal(t, float64(10), n)

	_, err = parseHistogramInterval("abc")
	assert.Error(t, err)
}
