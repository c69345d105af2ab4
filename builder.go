package sel

// boolAccumulator assembles the must/must_not/should clauses of a single
// Elasticsearch bool query as plain JSON trees: accumulate clauses under
// With/Without/Boost, then render the whole thing once with Build. Kept
// deliberately minimal - the generator, not this type, decides what
// queries to push.
type boolAccumulator struct {
	must    []map[string]any
	mustNot []map[string]any
	should  []map[string]any
}

// With adds a required clause (bool.must).
func (b *boolAccumulator) With(query map[string]any) {
	b.must = append(b.must, query)
}

// Without adds an excluding clause (bool.must_not).
func (b *boolAccumulator) Without(query map[string]any) {
	b.mustNot = append(b.mustNot, query)
}

// Boost adds an optional, score-boosting clause (bool.should).
func (b *boolAccumulator) Boost(query map[string]any) {
	b.should = append(b.should, query)
}

// Empty reports whether no clause was ever added.
func (b *boolAccumulator) Empty() bool {
	return len(b.must) == 0 && len(b.mustNot) == 0 && len(b.should) == 0
}

// Build renders the accumulator to an Elasticsearch query JSON tree:
// match_all when empty, the lone clause unwrapped when it is the only
// clause and sits in must, otherwise a full bool query.
func (b *boolAccumulator) Build() map[string]any {
	if b.Empty() {
		return map[string]any{"match_all": map[string]any{}}
	}

	if len(b.must) == 1 && len(b.mustNot) == 0 && len(b.should) == 0 {
		return b.must[0]
	}

	bq := map[string]any{}
	if len(b.must) > 0 {
		bq["must"] = toAnySlice(b.must)
	}
	if len(b.mustNot) > 0 {
		bq["must_not"] = toAnySlice(b.mustNot)
	}
	if len(b.should) > 0 {
		bq["should"] = toAnySlice(b.should)
	}
	return map[string]any{"bool": bq}
}

func toAnySlice(clauses []map[string]any) []any {
	out := make([]any, len(clauses))
	for i, c := range clauses {
		out[i] = c
	}
	return out
}
