package sel

import (
	"strconv"
	"strings"
	"time"
)

// ElasticDateFormat is the multi-format pattern attached to every date field
// mapping the generator emits ranges against, accepting any granularity
// from a bare year down to second precision.
const ElasticDateFormat = "yyyy-MM-dd HH:mm:ss||yyyy-MM-dd HH:mm||yyyy-MM-dd HH||yyyy-MM-dd||yyyy-MM||yyyy"

// dateLayouts lists the Go time layouts tried, in order, against a literal
// value to both validate it is a date and infer its granularity. Order
// matters: the most specific layout must be tried first since a looser
// layout could also parse a prefix of a more specific value.
var dateLayouts = []struct {
	granularity string
	layout      string
}{
	{"second", "2006-01-02 15:04:05"},
	{"minute", "2006-01-02 15:04"},
	{"hour", "2006-01-02 15"},
	{"day", "2006-01-02"},
	{"month", "2006-01"},
	{"year", "2006"},
}

// intervalShortcuts maps the single/double-letter shorthand accepted in
// histogram "interval" parameters to the canonical granularity name.
var intervalShortcuts = map[string]string{
	"y": "year",
	"q": "quarter",
	"M": "month",
	"w": "week",
	"d": "day",
	"h": "hour",
	"m": "minute",
	"s": "second",
}

// intervalDateFormat maps a granularity name to the Elasticsearch date
// format string used to render a date_histogram bucket key as a string.
var intervalDateFormat = map[string]string{
	"year":    "yyyy",
	"quarter": "yyyy-MM",
	"month":   "yyyy-MM",
	"week":    "yyyy-MM-dd",
	"day":     "yyyy-MM-dd",
	"hour":    "yyyy-MM-dd HH",
	"minute":  "yyyy-MM-dd HH:mm",
	"second":  "yyyy-MM-dd HH:mm:ss",
}

// goLayoutForGranularity is intervalDateFormat translated to Go's reference
// layout, used by the post-formatter to render a bucket's millisecond key
// back into the same string shape the query used.
var goLayoutForGranularity = map[string]string{
	"year":    "2006",
	"quarter": "2006-01",
	"month":   "2006-01",
	"week":    "2006-01-02",
	"day":     "2006-01-02",
	"hour":    "2006-01-02 15",
	"minute":  "2006-01-02 15:04",
	"second":  "2006-01-02 15:04:05",
}

// parsedDate is a literal recognized as a date, along with the granularity
// that was inferred from how much of it was specified.
type parsedDate struct {
	t           time.Time
	granularity string
}

// parseDate tries every layout from most to least specific and reports the
// first one that consumes the whole literal, returning the granularity that
// matched. loc is used to interpret literals with no explicit offset.
func parseDate(literal string, loc *time.Location) (parsedDate, bool) {
	for _, candidate := range dateLayouts {
		if t, err := time.ParseInLocation(candidate.layout, literal, loc); err == nil {
			return parsedDate{t: t, granularity: candidate.granularity}, true
		}
	}
	return parsedDate{}, false
}

// isDateLiteral reports whether literal parses as one of the recognized
// date layouts, without needing the parsed value.
func isDateLiteral(literal string) bool {
	_, ok := parseDate(literal, time.UTC)
	return ok
}

// addGranularityUnit advances t by exactly one unit of the given
// granularity: a year literal's "+1" means +1 calendar year, a minute
// literal's "+1" means +1 minute, and so on - never a fixed duration, since
// calendar units are not fixed-length.
func addGranularityUnit(t time.Time, granularity string) time.Time {
	switch granularity {
	case "year":
		return t.AddDate(1, 0, 0)
	case "quarter":
		return t.AddDate(0, 3, 0)
	case "month":
		return t.AddDate(0, 1, 0)
	case "week":
		return t.AddDate(0, 0, 7)
	case "day":
		return t.AddDate(0, 0, 1)
	case "hour":
		return t.Add(time.Hour)
	case "minute":
		return t.Add(time.Minute)
	case "second":
		return t.Add(time.Second)
	default:
		return t
	}
}

// formatElasticDate renders t back into the "yyyy-MM-dd HH:mm:ss"-family
// string shape matching ElasticDateFormat, at second precision - the
// canonical "widest" representation the backend will always accept
// regardless of the literal's original granularity.
func formatElasticDate(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// shortcutToInterval expands an interval shorthand like "3d" or "d" to its
// canonical granularity name, stripping any leading multiplier digits.
// Returns an error if what remains after stripping digits is not a known
// shortcut letter.
func shortcutToInterval(interval string) (string, error) {
	i := 0
	for i < len(interval) && interval[i] >= '0' && interval[i] <= '9' {
		i++
	}
	letter := interval[i:]
	if name, ok := intervalShortcuts[letter]; ok {
		return name, nil
	}
	if _, ok := intervalDateFormat[strings.ToLower(letter)]; ok {
		return strings.ToLower(letter), nil
	}
	return "", newClientInputError("unknown date histogram interval %q", interval)
}

// goLayoutFromInterval maps a date_histogram granularity to the Go time
// layout used to render a bucket's key_as_string in the post-formatter.
func goLayoutFromInterval(granularity string) (string, bool) {
	layout, ok := goLayoutForGranularity[granularity]
	return layout, ok
}

// parseBucketKeyMillis converts an aggregation bucket's millisecond epoch
// key (as Elasticsearch returns it for date_histogram buckets) to a
// time.Time in loc.
func parseBucketKeyMillis(millis float64, loc *time.Location) time.Time {
	return time.UnixMilli(int64(millis)).In(loc)
}

// parseHistogramInterval parses a plain (non-date) histogram "interval"
// parameter, which must be an integer.
func parseHistogramInterval(raw string) (float64, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, newClientInputError("histogram interval %q must be an integer", raw)
	}
	return float64(n), nil
}
