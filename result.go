package sel

// CompileResult is what a Compiler hands back: a ready-to-send search body
// plus everything a caller needs to interpret the response it gets back -
// the aggregation plan for post-formatting and any advisories raised along
// the way. It deliberately holds no live backend connection; compiling a
// query never touches the network.
type CompileResult struct {
	Body            map[string]any
	AggregationPlan map[string]*AggregationPlan

	schema   *Schema
	config   Config
	warnings *Warnings
}

// Warnings returns the non-fatal advisories raised while compiling, such
// as a redundant nested context.
func (c *CompileResult) Warnings() []string {
	return c.warnings.List()
}

// Format decodes a raw Elasticsearch response body against this
// compilation's plan, producing the caller-facing Result. Formatting can
// raise further advisories (an oversized bucket list, for instance), which
// are merged into the same accumulator CompileResult.Warnings reports.
func (c *CompileResult) Format(raw map[string]any) (*Result, error) {
	formatter, err := NewPostFormatter(c.schema, c.config, c.warnings)
	if err != nil {
		return nil, err
	}

	result := &Result{Warnings: c.warnings.List()}

	if hits, ok := raw["hits"].(map[string]any); ok {
		if total, ok := hits["total"].(map[string]any); ok {
			if v, ok := total["value"].(float64); ok {
				result.TotalHitCount = int64(v)
			}
		}
		if rawHits, ok := hits["hits"].([]any); ok {
			result.Hits = make([]map[string]any, 0, len(rawHits))
			for _, h := range rawHits {
				if hit, ok := h.(map[string]any); ok {
					result.Hits = append(result.Hits, hit)
				}
			}
		}
	}

	if rawAggs, ok := raw["aggregations"].(map[string]any); ok {
		result.Aggregations = formatter.FormatAggregations(rawAggs, c.AggregationPlan)
	}

	result.Warnings = c.warnings.List()
	return result, nil
}

// Result is the fully post-formatted outcome of running a compiled query:
// hit documents alongside aggregation buckets rendered the way 4.4
// describes (unwrapped nested/filter/reverse_nested scaffolding, bucket
// counts trimmed to their requested size, date_histogram keys rendered as
// strings).
type Result struct {
	TotalHitCount int64
	Hits          []map[string]any
	Aggregations  map[string]any
	Warnings      []string
}
