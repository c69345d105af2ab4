package sel

import "strings"

var validSortModes = map[string]bool{"min": true, "max": true, "sum": true, "avg": true, "median": true}

// sortPlan is what GenerateSorts hands back to the caller: the compiled
// sort body plus the random-score directive, since "sort: random" doesn't
// emit a sort clause at all - it wraps the whole query instead.
type sortPlan struct {
	Entries    []any
	UseRandom  bool
	RandomSeed *int64
}

// GenerateSorts implements 4.3.5: synthetic sort fields (auto/null/random)
// are consumed rather than emitted, auto-sort synthesis fills in when no
// explicit sort remains, it is enabled, and no random sort was requested,
// and every remaining sort compiles
// to a field/order/mode/nested_path/nested_filter entry.
func (g *Generator) GenerateSorts(query *Query) (*sortPlan, error) {
	autoSort := g.config.AutoSort
	plan := &sortPlan{}
	var explicit []*Sort

	for _, s := range query.Sorts {
		switch strings.ToLower(s.Field) {
		case "auto":
			autoSort = true
			continue
		case "null":
			autoSort = false
			continue
		case "random":
			plan.UseRandom = true
			plan.RandomSeed = s.Seed
			continue
		}
		explicit = append(explicit, s)
	}

	if len(explicit) == 0 && autoSort && !plan.UseRandom {
		filter := query.Filter
		if g.effectiveFilter != nil {
			filter = g.effectiveFilter
		}
		explicit = g.autoSortSynthesize(filter)
	}

	for _, s := range explicit {
		entry, err := g.compileSortEntry(s)
		if err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, entry)
	}

	return plan, nil
}

func (g *Generator) compileSortEntry(s *Sort) (map[string]any, error) {
	rf, err := g.resolver.ResolveForSort(s.Field, "")
	if err != nil {
		return nil, err
	}

	nestedPath := rf.Nested
	if s.Under != "" {
		urf, err := g.resolver.Resolve(s.Under, "")
		if err != nil {
			return nil, err
		}
		nestedPath = selfOrNestedScope(urf)
	}

	order := s.Order
	if order == "" {
		order = "desc"
	}
	mode := s.Mode
	if mode == "" {
		mode = "avg"
	}
	if !validSortModes[mode] {
		return nil, newClientInputError("sort %q: invalid mode %q", s.Field, mode)
	}

	sortField := map[string]any{"order": order, "mode": mode}

	if nestedPath != "" {
		whereQuery := map[string]any(matchAll())
		if s.Where != nil {
			q, err := g.compile(s.Where, nestedPath)
			if err != nil {
				return nil, err
			}
			whereQuery = q
		}
		sortField["nested_path"] = nestedPath
		sortField["nested_filter"] = whereQuery
	}

	return map[string]any{rf.Path: sortField}, nil
}

// ApplyRandomScore wraps query in the function_score/random_score
// construct "sort: random" asks for. seed is nil when the query didn't
// specify one, leaving the backend to pick its own.
func ApplyRandomScore(query map[string]any, seed *int64) map[string]any {
	randomScore := map[string]any{}
	if seed != nil {
		randomScore["seed"] = *seed
	}
	return map[string]any{
		"function_score": map[string]any{
			"query":        query,
			"random_score": randomScore,
		},
	}
}

// autoSortSynthesize implements the auto-sort bullet of 4.3.5: flatten the
// top-level filters (never descending into "where"), and for the first
// three whose field resolves, synthesize a descending sort scoped to the
// innermost where-chained field that still carries a value.
func (g *Generator) autoSortSynthesize(filter Node) []*Sort {
	var sorts []*Sort
	for _, item := range flattenTopLevel(filter) {
		f, ok := item.(*Filter)
		if !ok {
			continue
		}

		leaf := f
		for leaf.Where != nil {
			next, ok := leaf.Where.(*Filter)
			if !ok || !filterHasValue(next) {
				break
			}
			leaf = next
		}

		if _, err := g.resolver.ResolveForSort(leaf.Field, ""); err != nil {
			continue
		}

		sorts = append(sorts, &Sort{
			Field: leaf.Field,
			Order: "desc",
			Mode:  "avg",
			Where: f,
			Auto:  true,
		})
		if len(sorts) >= 3 {
			break
		}
	}
	return sorts
}

func filterHasValue(f *Filter) bool {
	return f.Value != nil || len(f.Values) > 0 || f.RangeLow != nil
}

// flattenTopLevel collects every Filter/Context/QueryStringNode reachable
// through Group/Not structure without descending into a Filter's own
// "where", which deliberately stays out of scope for auto-sort.
func flattenTopLevel(node Node) []Node {
	switch n := node.(type) {
	case nil:
		return nil
	case *Group:
		var out []Node
		for _, item := range n.Items {
			out = append(out, flattenTopLevel(item)...)
		}
		return out
	case *Not:
		return flattenTopLevel(n.Inner)
	default:
		return []Node{n}
	}
}
