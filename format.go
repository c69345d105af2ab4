package sel

import "time"

// PostFormatter implements 4.4: it walks a raw Elasticsearch aggregations
// response against the AggregationPlan the Generator produced, peeling the
// internal nested/filter/reverse_nested "sub" wrapping back off, trimming
// oversized bucket lists, and rendering date_histogram bucket keys as
// strings.
type PostFormatter struct {
	schema   *Schema
	config   Config
	warnings *Warnings
	loc      *time.Location
}

// NewPostFormatter builds a PostFormatter sharing warnings with the
// Generator that produced plan, so both ends of one compilation report
// through the same accumulator.
func NewPostFormatter(schema *Schema, config Config, warnings *Warnings) (*PostFormatter, error) {
	loc, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		return nil, newInternalError("loading time zone %q: %s", config.TimeZone, err)
	}
	return &PostFormatter{schema: schema, config: config, warnings: warnings, loc: loc}, nil
}

// FormatAggregations formats every aggregation named in plan out of raw,
// the decoded "aggregations" object of a search response.
func (f *PostFormatter) FormatAggregations(raw map[string]any, plan map[string]*AggregationPlan) map[string]any {
	if len(plan) == 0 {
		return nil
	}
	out := make(map[string]any, len(plan))
	for name, p := range plan {
		data, ok := raw[name].(map[string]any)
		if !ok {
			continue
		}
		out[name] = f.formatOne(unwrapAggregationResult(data), p)
	}
	return out
}

func (f *PostFormatter) formatOne(data map[string]any, p *AggregationPlan) map[string]any {
	result := map[string]any{
		"aggreg_type": p.Type,
		"field":       p.Field,
		"query_field": p.QueryField,
	}
	if p.Interval != "" {
		result["interval"] = p.Interval
	}
	if p.Graph {
		result["graph"] = true
	}

	buckets, isBucketed := data["buckets"].([]any)
	if !isBucketed {
		for k, v := range data {
			if k == "doc_count" {
				continue
			}
			result[k] = v
		}
		return result
	}

	f.warnLargeBucketCount(p, len(buckets))
	buckets = f.limitBuckets(p, buckets)

	formatted := make([]any, 0, len(buckets))
	for _, raw := range buckets {
		bucket, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		formatted = append(formatted, f.formatBucket(bucket, p))
	}
	result["buckets"] = formatted
	return result
}

func (f *PostFormatter) formatBucket(bucket map[string]any, p *AggregationPlan) map[string]any {
	out := make(map[string]any, len(bucket))
	for k, v := range bucket {
		out[k] = v
	}

	if p.Type == "histogram" && f.fieldType(p.Field) == TypeDate {
		if keyMillis, ok := bucket["key"].(float64); ok {
			interval := p.Interval
			if interval == "" {
				interval = f.config.Aggregations.DefaultDateInterval
			}
			if granularity, err := shortcutToInterval(interval); err == nil {
				if layout, ok := goLayoutFromInterval(granularity); ok {
					out["key_as_string"] = parseBucketKeyMillis(keyMillis, f.loc).Format(layout)
				}
			}
		}
	}

	for subName, subPlan := range p.Sub {
		subRaw, ok := bucket[subName]
		if !ok {
			continue
		}
		subData, ok := subRaw.(map[string]any)
		if !ok {
			continue
		}
		out[subName] = f.formatOne(unwrapAggregationResult(subData), subPlan)
	}

	return out
}

// warnLargeBucketCount emits the performance advisory for a large,
// ungrouped terms aggregation on a non-date field - date histograms are
// exempt since their bucket count is bounded by the time range, not by
// document cardinality.
func (f *PostFormatter) warnLargeBucketCount(p *AggregationPlan, count int) {
	if p.Type == "histogram" {
		return
	}
	if f.fieldType(p.Field) == TypeDate {
		return
	}
	if count > f.config.Aggregations.MaxBucketsWarning {
		f.warnings.Add("aggreg %q returned more than %d buckets", p.Field, f.config.Aggregations.MaxBucketsWarning)
	}
}

// limitBuckets truncates buckets to the aggregation's configured size,
// relying on the generator's "size+1" overflow trick: if the backend
// returned more buckets than were asked for, there were more matches than
// fit.
func (f *PostFormatter) limitBuckets(p *AggregationPlan, buckets []any) []any {
	if p.Size <= 0 || len(buckets) <= p.Size {
		return buckets
	}
	f.warnings.Add("aggreg %q has more than %d results", p.Field, p.Size)
	return buckets[:p.Size]
}

func (f *PostFormatter) fieldType(path string) string {
	entry := f.schema.fieldByPath(path)
	if entry == nil {
		return ""
	}
	return entry.field.Type
}
