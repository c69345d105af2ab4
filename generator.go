package sel

import (
	"strconv"
	"strings"
	"time"
)

// Generator walks a parsed (or structurally-built) Query against a
// Resolver and emits the backend JSON tree: the bool/term/range/nested
// composition Elasticsearch expects. One Generator is scoped to exactly
// one compilation - it owns the Warnings accumulator for that compilation
// and the Resolver's per-compilation cache.
type Generator struct {
	resolver *Resolver
	config   Config
	warnings *Warnings
	loc      *time.Location

	// effectiveFilter is query.Filter after GenerateQuery has injected the
	// default not-deleted filter (if any) - GenerateSorts reads this
	// instead of the caller's original query.Filter so auto-sort can
	// synthesize a sort off the injected filter too (e.g. "deleted desc").
	effectiveFilter Node
}

// NewGenerator builds a Generator. loc is resolved from config.TimeZone on
// every call; an unknown zone is an *InternalError.
func NewGenerator(resolver *Resolver, config Config) (*Generator, error) {
	loc, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		return nil, newInternalError("loading time zone %q: %s", config.TimeZone, err)
	}
	return &Generator{resolver: resolver, config: config, warnings: NewWarnings(), loc: loc}, nil
}

// Warnings returns the accumulator this Generator has been filling.
func (g *Generator) Warnings() *Warnings {
	return g.warnings
}

// GenerateQuery compiles query's filter tree to a single Elasticsearch
// query JSON tree, applying the configured default not-deleted filter
// first if it applies.
func (g *Generator) GenerateQuery(query *Query) (map[string]any, error) {
	filter := query.Filter
	if g.config.DefaultExcludeDeletedDocuments && !queryMentionsField(filter, g.config.DeletedFieldPath) {
		if _, err := g.resolver.Resolve(g.config.DeletedFieldPath, ""); err == nil {
			notDeleted := &Filter{Field: g.config.DeletedFieldPath, Comparator: Ne, Value: &Value{Raw: "true"}}
			if filter == nil {
				filter = notDeleted
			} else {
				filter = &Group{Operator: "and", Items: []Node{filter, notDeleted}}
			}
		}
	}
	g.effectiveFilter = filter
	return g.compile(filter, "")
}

// queryMentionsField reports whether any Filter in node's tree (not
// descending into "where" sub-queries) references fieldPath.
func queryMentionsField(node Node, fieldPath string) bool {
	switch n := node.(type) {
	case nil:
		return false
	case *Filter:
		return n.Field == fieldPath
	case *Not:
		return queryMentionsField(n.Inner, fieldPath)
	case *Group:
		for _, item := range n.Items {
			if queryMentionsField(item, fieldPath) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// compile produces a final, ready-to-use query for node: Group children
// are routed to must/must_not/should; anything else is finalized through
// compileItem and wrapped in must_not if it turned out negative at its own
// top level. A nil node compiles to match_all.
func (g *Generator) compile(node Node, nestedCtx string) (map[string]any, error) {
	if node == nil {
		return matchAll(), nil
	}
	if grp, ok := node.(*Group); ok {
		return g.compileGroup(grp, nestedCtx)
	}
	q, negative, err := g.compileItem(node, nestedCtx)
	if err != nil {
		return nil, err
	}
	if negative {
		return wrapMustNot(q), nil
	}
	return q, nil
}

func matchAll() map[string]any {
	return map[string]any{"match_all": map[string]any{}}
}

func wrapMustNot(q map[string]any) map[string]any {
	return map[string]any{"bool": map[string]any{"must_not": []any{q}}}
}

// compileItem returns node's query in positive sense plus whether an
// enclosing Group/compile should treat it as negative (routed to
// must_not/should-wrapped-in-must_not instead of must/should).
func (g *Generator) compileItem(node Node, nestedCtx string) (map[string]any, bool, error) {
	switch n := node.(type) {
	case *Filter:
		return g.compileFilter(n, nestedCtx)
	case *Not:
		q, negative, err := g.compileItem(n.Inner, nestedCtx)
		if err != nil {
			return nil, false, err
		}
		return q, !negative, nil
	case *Group:
		q, err := g.compileGroup(n, nestedCtx)
		return q, false, err
	case *QueryStringNode:
		q, err := g.compileQueryString(n)
		return q, false, err
	case *Context:
		q, err := g.compileContext(n, nestedCtx)
		return q, false, err
	default:
		return nil, false, newInternalError("unknown query node type %T", node)
	}
}

// compileGroup implements 4.3.2's Group translation: "and" routes positive
// children to must and negative children to must_not; "or" routes positive
// children to should and wraps negative children individually in must_not
// before adding them to should.
func (g *Generator) compileGroup(grp *Group, nestedCtx string) (map[string]any, error) {
	if len(grp.Items) == 0 {
		return matchAll(), nil
	}
	if len(grp.Items) == 1 {
		return g.compile(grp.Items[0], nestedCtx)
	}

	acc := &boolAccumulator{}
	for _, item := range grp.Items {
		q, negative, err := g.compileItem(item, nestedCtx)
		if err != nil {
			return nil, err
		}
		switch {
		case grp.Operator == "or" && negative:
			acc.Boost(wrapMustNot(q))
		case grp.Operator == "or":
			acc.Boost(q)
		case negative:
			acc.Without(q)
		default:
			acc.With(q)
		}
	}
	return acc.Build(), nil
}

// compileQueryString implements the bare quoted-string filter shortcut: a
// query_string query against the configured default field path.
func (g *Generator) compileQueryString(n *QueryStringNode) (map[string]any, error) {
	return map[string]any{
		"query_string": map[string]any{
			"query":  n.Text,
			"fields": []any{g.config.DefaultQueryStringFieldPath},
		},
	}, nil
}

// compileContext implements 4.3.3: Context roots a sub-query at a nested
// field, rejecting non-nested fields and warning when the wrapper turns
// out to be redundant with the enclosing scope.
func (g *Generator) compileContext(ctx *Context, nestedCtx string) (map[string]any, error) {
	rf, err := g.resolver.Resolve(ctx.Field, nestedCtx)
	if err != nil {
		return nil, err
	}
	// rf may have been promoted past the nested branch itself down to a
	// leaf subfield (e.g. media.label -> media.label.name); selfOrNestedScope
	// recovers the original nested path via the Nested field that survives
	// promotion, rather than requiring rf.Type == TypeNested directly.
	target := selfOrNestedScope(rf)
	if target == "" {
		return nil, newClientInputError("context on %q requires a nested field", ctx.Field)
	}

	if nestedCtx == target {
		g.warnings.Add("context on %q is unnecessary: already within that nested scope", ctx.Field)
		return g.compile(ctx.Inner, target)
	}

	inner, err := g.compile(ctx.Inner, target)
	if err != nil {
		return nil, err
	}
	return map[string]any{"nested": map[string]any{"path": target, "query": inner}}, nil
}

// compileFilter implements 4.3.1's filter translation: pseudo-functions,
// comparator dispatch (with date-granularity arithmetic), negative-sense
// tracking, and where/nested wrapping.
func (g *Generator) compileFilter(f *Filter, nestedCtx string) (map[string]any, bool, error) {
	rf, err := g.resolver.Resolve(f.Field, nestedCtx)
	if err != nil {
		return nil, false, err
	}

	var inner map[string]any
	negative := negativeComparators[f.Comparator]

	if rf.Function != "" {
		inner, negative, err = g.compileFunctionFilter(f, rf)
	} else {
		inner, err = g.compileScalarFilter(f, rf)
	}
	if err != nil {
		return nil, false, err
	}

	combined, effectiveNested, err := g.applyWhere(f.Where, f.Field, rf, inner, nestedCtx)
	if err != nil {
		return nil, false, err
	}
	if effectiveNested != "" && effectiveNested != nestedCtx {
		combined = map[string]any{"nested": map[string]any{"path": effectiveNested, "query": combined}}
	}
	return combined, negative, nil
}

// applyWhere folds a Filter/RangeFilter's optional trailing "where"
// sub-query into inner, and decides the nested scope the combined query
// should end up wrapped in.
func (g *Generator) applyWhere(where Node, field string, rf *ResolvedField, inner map[string]any, nestedCtx string) (map[string]any, string, error) {
	effectiveNested := rf.Nested
	if effectiveNested == "" {
		if nestedCtx != "" {
			if where != nil {
				g.warnings.Add("'where' on %q is not necessary: field has no nested context of its own", field)
			}
			effectiveNested = nestedCtx
		} else if where != nil {
			return nil, "", newClientInputError("'where' on %q requires a nested field", field)
		}
	}

	if where == nil {
		return inner, effectiveNested, nil
	}

	whereQuery, err := g.compile(where, effectiveNested)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"bool": map[string]any{"must": []any{inner, whereQuery}}}, effectiveNested, nil
}

// compileFunctionFilter implements the exists/missing pseudo-functions:
// comparator must be = or !=, and the value's boolean sense, the function
// itself (missing inverts exists), and the comparator's own sign all
// combine into one final negative flag.
func (g *Generator) compileFunctionFilter(f *Filter, rf *ResolvedField) (map[string]any, bool, error) {
	if f.Comparator != Eq && f.Comparator != Ne {
		return nil, false, newClientInputError("%q only accepts = or != as a comparator", rf.Function)
	}
	valueTrue := true
	if f.Value != nil {
		v, ok := toBoolean(f.Value.Raw)
		if !ok {
			return nil, false, newClientInputError("%q expects a boolean value, got %q", rf.Function, f.Value.Raw)
		}
		valueTrue = v
	}

	negative := f.Comparator == Ne
	if !valueTrue {
		negative = !negative
	}
	if rf.Function == funcMissing {
		negative = !negative
	}

	return map[string]any{"exists": map[string]any{"field": rf.Path}}, negative, nil
}

// compileScalarFilter dispatches a non-pseudo-function Filter by comparator
// and the resolved field's type.
func (g *Generator) compileScalarFilter(f *Filter, rf *ResolvedField) (map[string]any, error) {
	switch positiveComparator(f.Comparator) {
	case Eq:
		return g.compileEquality(f.Value, rf)
	case Match:
		return g.compileMatch(f.Value, rf)
	case In:
		return g.compileTerms(f.Values, rf)
	case Prefix:
		return g.compilePrefix(f.Value, rf)
	case RangeCmp:
		return g.compileRange(f.RangeLow, f.RangeHigh, rf)
	case Gt, Gte, Lt, Lte:
		return g.compileComparison(f.Comparator, f.Value, rf)
	default:
		return nil, newInternalError("unhandled comparator %q", f.Comparator)
	}
}

// positiveComparator strips a negative comparator down to the positive
// form the dispatch switch understands; the generator tracks negation
// separately via negativeComparators, not by branching twice on it here.
func positiveComparator(c Comparator) Comparator {
	switch c {
	case Ne:
		return Eq
	case NotMatch:
		return Match
	case NotIn:
		return In
	case NotPrefix:
		return Prefix
	case NotRange:
		return RangeCmp
	default:
		return c
	}
}

func (g *Generator) compileEquality(value *Value, rf *ResolvedField) (map[string]any, error) {
	if value == nil {
		return nil, newClientInputError("%q requires a value", rf.Path)
	}
	if rf.Type == TypeDate {
		return g.compileDateEquality(value.Raw, rf)
	}
	term, err := g.coerceValue(value.Raw, rf)
	if err != nil {
		return nil, err
	}
	return map[string]any{"term": map[string]any{rf.Path: term}}, nil
}

func (g *Generator) compileMatch(value *Value, rf *ResolvedField) (map[string]any, error) {
	if value == nil {
		return nil, newClientInputError("%q requires a value", rf.Path)
	}
	if !isStringType(rf.Type) {
		return nil, newClientInputError("%q: '~' only applies to string fields", rf.Path)
	}
	return map[string]any{"query_string": map[string]any{"query": value.Raw, "fields": []any{rf.Path}}}, nil
}

func (g *Generator) compileTerms(values []*Value, rf *ResolvedField) (map[string]any, error) {
	if len(values) == 0 {
		return nil, newClientInputError("%q: 'in' requires at least one value", rf.Path)
	}
	terms := make([]any, 0, len(values))
	for _, v := range values {
		t, err := g.coerceValue(v.Raw, rf)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return map[string]any{"terms": map[string]any{rf.Path: terms}}, nil
}

func (g *Generator) compilePrefix(value *Value, rf *ResolvedField) (map[string]any, error) {
	if value == nil {
		return nil, newClientInputError("%q requires a value", rf.Path)
	}
	if !isStringType(rf.Type) {
		return nil, newClientInputError("%q: 'prefix' only applies to string fields", rf.Path)
	}
	return map[string]any{"prefix": map[string]any{rf.Path: value.Raw}}, nil
}

func (g *Generator) compileComparison(cmp Comparator, value *Value, rf *ResolvedField) (map[string]any, error) {
	if value == nil {
		return nil, newClientInputError("%q requires a value", rf.Path)
	}
	if !isNumericType(rf.Type) && rf.Type != TypeDate {
		return nil, newClientInputError("%q: %q only applies to numeric or date fields", rf.Path, cmp)
	}
	if rf.Type == TypeDate {
		return g.compileDateComparison(cmp, value.Raw, rf)
	}
	n, err := strconv.ParseFloat(value.Raw, 64)
	if err != nil {
		return nil, newClientInputError("%q: %q is not numeric", rf.Path, value.Raw)
	}
	return map[string]any{"range": map[string]any{rf.Path: map[string]any{elasticRangeKey(cmp): n}}}, nil
}

func elasticRangeKey(cmp Comparator) string {
	switch cmp {
	case Gt:
		return "gt"
	case Gte:
		return "gte"
	case Lt:
		return "lt"
	case Lte:
		return "lte"
	}
	return "eq"
}

// compileDateEquality implements 4.3.1.4's "=" row: a closed-open interval
// spanning exactly the parsed literal's granularity.
func (g *Generator) compileDateEquality(raw string, rf *ResolvedField) (map[string]any, error) {
	parsed, ok := parseDate(raw, g.loc)
	if !ok {
		return nil, newClientInputError("%q: %q is not a valid date", rf.Path, raw)
	}
	next := addGranularityUnit(parsed.t, parsed.granularity)
	return g.dateRangeQuery(rf.Path, map[string]any{
		"gte": formatElasticDate(parsed.t),
		"lt":  formatElasticDate(next),
	}), nil
}

// compileDateComparison implements 4.3.1.4's remaining rows: >, >=, <, <=.
func (g *Generator) compileDateComparison(cmp Comparator, raw string, rf *ResolvedField) (map[string]any, error) {
	parsed, ok := parseDate(raw, g.loc)
	if !ok {
		return nil, newClientInputError("%q: %q is not a valid date", rf.Path, raw)
	}
	bounds := map[string]any{}
	switch cmp {
	case Gt:
		bounds["gte"] = formatElasticDate(addGranularityUnit(parsed.t, parsed.granularity))
	case Gte:
		bounds["gte"] = formatElasticDate(parsed.t)
	case Lte:
		bounds["lt"] = formatElasticDate(addGranularityUnit(parsed.t, parsed.granularity))
	case Lt:
		bounds["lt"] = formatElasticDate(parsed.t)
	default:
		return nil, newInternalError("unhandled date comparator %q", cmp)
	}
	return g.dateRangeQuery(rf.Path, bounds), nil
}

func (g *Generator) dateRangeQuery(path string, bounds map[string]any) map[string]any {
	bounds["format"] = ElasticDateFormat
	bounds["time_zone"] = g.config.TimeZone
	return map[string]any{"range": map[string]any{path: bounds}}
}

// compileRange implements the explicit two-bound `range(cmp v, cmp v)`
// filter. On a date field, each bound goes through the same granularity
// "+1" expansion a single-sided date comparator gets (compileDateComparison)
// - the caller supplying both edges doesn't change what each one means on
// its own, and the two expanded bounds never overlap since low and high
// are bounds of the same range.
func (g *Generator) compileRange(low, high *rangeBound, rf *ResolvedField) (map[string]any, error) {
	if low == nil || high == nil {
		return nil, newClientInputError("%q: 'range' requires two bounds", rf.Path)
	}
	if !isNumericType(rf.Type) && rf.Type != TypeDate {
		return nil, newClientInputError("%q: 'range' only applies to numeric or date fields", rf.Path)
	}

	if rf.Type == TypeDate {
		bounds := map[string]any{}
		for _, b := range []*rangeBound{low, high} {
			parsed, ok := parseDate(b.Value.Raw, g.loc)
			if !ok {
				return nil, newClientInputError("%q: %q is not a valid date", rf.Path, b.Value.Raw)
			}
			switch b.Comparator {
			case Gt:
				bounds["gte"] = formatElasticDate(addGranularityUnit(parsed.t, parsed.granularity))
			case Gte:
				bounds["gte"] = formatElasticDate(parsed.t)
			case Lte:
				bounds["lt"] = formatElasticDate(addGranularityUnit(parsed.t, parsed.granularity))
			case Lt:
				bounds["lt"] = formatElasticDate(parsed.t)
			default:
				return nil, newInternalError("unhandled range date comparator %q", b.Comparator)
			}
		}
		return g.dateRangeQuery(rf.Path, bounds), nil
	}

	bounds := map[string]any{}
	for _, b := range []*rangeBound{low, high} {
		n, err := strconv.ParseFloat(b.Value.Raw, 64)
		if err != nil {
			return nil, newClientInputError("%q: %q is not numeric", rf.Path, b.Value.Raw)
		}
		bounds[elasticRangeKey(b.Comparator)] = n
	}
	return map[string]any{"range": map[string]any{rf.Path: bounds}}, nil
}

// coerceValue applies boolean/numeric coercion to a literal before
// building a term: boolean fields accept true/false/1/0 case-insensitively,
// numeric fields must parse, everything else passes through as a string.
func (g *Generator) coerceValue(raw string, rf *ResolvedField) (any, error) {
	switch {
	case rf.Type == TypeBoolean:
		b, ok := toBoolean(raw)
		if !ok {
			return nil, newClientInputError("%q: %q is not a valid boolean", rf.Path, raw)
		}
		return b, nil
	case isNumericType(rf.Type):
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, newClientInputError("%q: %q is not numeric", rf.Path, raw)
		}
		return n, nil
	default:
		return raw, nil
	}
}

func toBoolean(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func isNumericType(t string) bool {
	switch t {
	case TypeInteger, TypeLong, TypeFloat, TypeDouble:
		return true
	}
	return false
}

func isStringType(t string) bool {
	switch t {
	case TypeString, TypeText, TypeKeyword, "":
		return true
	}
	return false
}
