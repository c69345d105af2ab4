package sel

import (
	"fmt"
	"strings"
)

// AggregationPlan mirrors the shape of one compiled aggregation tree for
// the post-formatter: the metadata it needs to interpret a response bucket
// without re-resolving the schema.
type AggregationPlan struct {
	Name       string
	Type       string
	Field      string // canonical resolved path
	QueryField string // the user's original path, for diagnostics
	Interval   string
	Size       int
	Graph      bool
	Sub        map[string]*AggregationPlan
}

var aggregationCanonical = map[string]string{
	"count":    "value_count",
	"distinct": "cardinality",
	"average":  "avg",
	"stats":    "extended_stats",
}

// GenerateAggregations compiles every top-level named aggregation,
// returning the Elasticsearch "aggregations" body alongside the plan the
// post-formatter needs.
func (g *Generator) GenerateAggregations(aggs []*Aggregation) (map[string]any, map[string]*AggregationPlan, error) {
	if len(aggs) == 0 {
		return nil, nil, nil
	}
	result := make(map[string]any, len(aggs))
	plan := make(map[string]*AggregationPlan, len(aggs))

	for i, agg := range aggs {
		name := agg.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", defaultAggregationType(agg.Type), i)
		}
		body, p, err := g.compileAggregation(agg, "", name, i)
		if err != nil {
			return nil, nil, err
		}
		result[name] = body
		plan[name] = p
	}
	return result, plan, nil
}

// compileAggregation implements 4.3.4: type defaulting, the metric/bucket
// dispatch, subaggreg recursion, and under/where nested-scope wrapping.
func (g *Generator) compileAggregation(agg *Aggregation, parentNested, name string, index int) (map[string]any, *AggregationPlan, error) {
	rf, err := g.resolver.Resolve(agg.Field, parentNested)
	if err != nil {
		return nil, nil, err
	}

	aggType := agg.Type
	if aggType == "" {
		aggType = "aggreg"
	}
	if aggType == "aggreg" && rf.Type == TypeDate {
		aggType = "histogram"
	}

	size := g.resolveAggregationSize(agg, aggType)

	body, err := g.compileAggregationBody(agg, rf, aggType, size)
	if err != nil {
		return nil, nil, err
	}

	plan := &AggregationPlan{
		Name:       name,
		Type:       aggType,
		Field:      rf.Path,
		QueryField: agg.Field,
		Interval:   agg.Interval,
		Size:       size,
		Graph:      agg.Graph,
	}

	if len(agg.SubAggregations) > 0 {
		subs := make(map[string]any, len(agg.SubAggregations))
		subPlan := make(map[string]*AggregationPlan, len(agg.SubAggregations))
		for i, sub := range agg.SubAggregations {
			subName := sub.Name
			if subName == "" {
				subName = fmt.Sprintf("%s_%d", defaultAggregationType(sub.Type), i)
			}
			subBody, subP, err := g.compileAggregation(sub, rf.Nested, subName, i)
			if err != nil {
				return nil, nil, err
			}
			subs[subName] = subBody
			subPlan[subName] = subP
		}
		body["aggs"] = subs
		plan.Sub = subPlan
	}

	body, err = g.wrapAggregationScope(agg, rf, parentNested, body)
	if err != nil {
		return nil, nil, err
	}

	return body, plan, nil
}

// defaultAggregationType returns t, or "aggreg" when t is empty.
func defaultAggregationType(t string) string {
	if t == "" {
		return "aggreg"
	}
	return t
}

func (g *Generator) resolveAggregationSize(agg *Aggregation, aggType string) int {
	if agg.Size != nil {
		return *agg.Size
	}
	if aggType == "histogram" {
		return 0
	}
	return g.config.Aggregations.DefaultSize
}

func (g *Generator) compileAggregationBody(agg *Aggregation, rf *ResolvedField, aggType string, size int) (map[string]any, error) {
	switch aggType {
	case "aggreg":
		effectiveSize := size
		if size > 0 {
			effectiveSize = size + 1 // F uses the extra bucket to detect overflow.
		}
		return map[string]any{"terms": map[string]any{"field": rf.Path, "size": effectiveSize}}, nil

	case "count", "distinct", "min", "max", "sum", "average", "stats":
		if aggType != "count" && aggType != "distinct" && !isNumericType(rf.Type) {
			return nil, newClientInputError("%q: %q requires a numeric field", rf.Path, aggType)
		}
		metric := map[string]any{"field": rf.Path}
		if aggType == "distinct" {
			metric["precision_threshold"] = g.config.Aggregations.CardinalityPrecisionThreshold
		}
		canon := aggType
		if mapped, ok := aggregationCanonical[aggType]; ok {
			canon = mapped
		}
		return map[string]any{canon: metric}, nil

	case "histogram":
		return g.compileHistogram(agg, rf, size)

	default:
		return nil, newClientInputError("unknown aggregation type %q", aggType)
	}
}

func (g *Generator) compileHistogram(agg *Aggregation, rf *ResolvedField, size int) (map[string]any, error) {
	if rf.Type == TypeDate {
		interval := agg.Interval
		if interval == "" {
			interval = g.config.Aggregations.DefaultDateInterval
		}
		return map[string]any{"date_histogram": map[string]any{
			"field":    rf.Path,
			"interval": interval,
			"format":   "yyyy-MM-dd",
		}}, nil
	}

	if agg.Interval == "" {
		return nil, newClientInputError("%q: histogram requires an interval", rf.Path)
	}
	n, err := parseHistogramInterval(agg.Interval)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"field": rf.Path, "interval": n}
	if size > 0 {
		body["min_doc_count"] = 0
	}
	return map[string]any{"histogram": body}, nil
}

// wrapAggregationScope implements 4.3.4 steps 6-7: the field's own nested
// wrap, the where-filter wrap inside that scope, and the under-driven
// escape (reverse_nested) or descent (nested) relative to an ancestor
// aggregation's scope.
func (g *Generator) wrapAggregationScope(agg *Aggregation, rf *ResolvedField, parentNested string, body map[string]any) (map[string]any, error) {
	fieldScope := selfOrNestedScope(rf)

	if agg.Where != nil {
		whereScope := fieldScope
		if agg.Under != "" {
			urf, err := g.resolver.Resolve(agg.Under, parentNested)
			if err != nil {
				return nil, err
			}
			whereScope = selfOrNestedScope(urf)
		}
		whereQuery, err := g.compile(agg.Where, whereScope)
		if err != nil {
			return nil, err
		}
		body = wrapFilter(whereQuery)(body)
	}

	if fieldScope != "" && fieldScope != parentNested {
		body = wrapNested(fieldScope)(body)
	}

	if agg.Under == "" {
		return body, nil
	}

	urf, err := g.resolver.Resolve(agg.Under, parentNested)
	if err != nil {
		return nil, err
	}
	targetScope := selfOrNestedScope(urf)
	if targetScope == fieldScope {
		return body, nil
	}
	if !isNestedAncestor(targetScope, fieldScope) {
		return nil, newClientInputError("%q: 'under' %q is not an ancestor nested scope of the aggregation field", agg.Field, agg.Under)
	}
	return wrapReverseNested(targetScope)(body), nil
}

// selfOrNestedScope returns a field's own path when it is itself a nested
// type, otherwise its ancestor nested context - the scope an aggregation
// on that field actually buckets within.
func selfOrNestedScope(rf *ResolvedField) string {
	if rf.Type == TypeNested {
		return rf.Path
	}
	return rf.Nested
}

// isNestedAncestor reports whether ancestor is "" (the root, an ancestor
// of everything) or a strict prefix-or-equal of path.
func isNestedAncestor(ancestor, path string) bool {
	if ancestor == "" {
		return true
	}
	return path == ancestor || strings.HasPrefix(path, ancestor+".")
}
