package sel

import (
	"sort"
	"strings"
)

const (
	funcExists  = "exists"
	funcMissing = "missing"
)

// ResolvedField is what the resolver hands back to the generator for every
// field path it resolves: the canonical path, its shortest unambiguous
// spelling, its leaf type, the nearest nested boundary it lives under, and
// which pseudo-function (if any) the caller attached to the path.
type ResolvedField struct {
	Path      string
	ShortPath string
	Type      string
	// Nested is the dotted path of the nearest ancestor (or self, if this
	// field's own type is nested) whose type is "nested". Empty when the
	// field is not under any nested boundary.
	Nested string
	// Function is "exists", "missing", or "" when the path carried none.
	Function string
}

// IsNested reports whether this field lives under a nested context at all.
func (r *ResolvedField) IsNested() bool {
	return r.Nested != ""
}

// Resolver resolves dotted SEL field paths against a fixed Schema,
// memoizing each distinct path for the lifetime of one compilation so a
// query that references the same field many times (two filters on the
// same path, say) only pays the schema walk once. Filter and sort
// resolutions are cached separately, since they promote branch fields
// differently.
type Resolver struct {
	schema *Schema
	config Config
	cache  map[string]*ResolvedField
}

// NewResolver builds a Resolver bound to schema and config. A single
// Resolver is not safe for concurrent use - callers running compilations
// concurrently should build one Resolver per compilation (schema and
// config are cheap to share; only the cache is mutable).
func NewResolver(schema *Schema, config Config) *Resolver {
	return &Resolver{schema: schema, config: config, cache: make(map[string]*ResolvedField)}
}

// Resolve validates and resolves a dotted field path against nestedCtx,
// the nested scope the reference occurs within (empty for root scope),
// peeling off a trailing ".exists" or ".missing" pseudo-function first. It
// returns a *ClientInputError when the path is malformed and a
// *SchemaResolutionError when it is not found or ambiguous. A branch field
// promotes to its DefaultObjectSubfield child.
func (r *Resolver) Resolve(path, nestedCtx string) (*ResolvedField, error) {
	return r.resolve("f:"+nestedCtx+"\x00"+path, path, nestedCtx, r.objectSubfields())
}

// ResolveForSort resolves path the way a `sort(...)` clause does: a branch
// field promotes to the first of DefaultObjectSortField's comma-separated
// candidates that exists on it, instead of DefaultObjectSubfield. This
// applies to every sort field, explicit or auto-synthesized, matching
// format_sorts/auto_sort_generator both building their field info off
// DefaultObjectSortField rather than the filter-resolution default.
func (r *Resolver) ResolveForSort(path, nestedCtx string) (*ResolvedField, error) {
	return r.resolve("s:"+nestedCtx+"\x00"+path, path, nestedCtx, r.objectSortSubfields())
}

func (r *Resolver) objectSubfields() []string {
	return strings.Split(r.config.DefaultObjectSubfield, ",")
}

func (r *Resolver) objectSortSubfields() []string {
	return strings.Split(r.config.DefaultObjectSortField, ",")
}

func (r *Resolver) resolve(cacheKey, path, nestedCtx string, subProperties []string) (*ResolvedField, error) {
	if cached, ok := r.cache[cacheKey]; ok {
		return cached, nil
	}

	segments, function, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	entry, err := r.find(segments, path, nestedCtx)
	if err != nil {
		return nil, err
	}

	entry, _ = promote(entry, subProperties)

	resolved := &ResolvedField{
		Path:      entry.path(),
		ShortPath: r.schema.shortPath(entry.segments),
		Type:      entry.field.Type,
		Nested:    currentNested(entry),
		Function:  function,
	}

	r.cache[cacheKey] = resolved
	return resolved, nil
}

// currentNested returns the nested scope a filter on this exact field
// operates in: the field's own path if it is itself nested, otherwise its
// nearest strict-ancestor nested path.
func currentNested(entry *fieldEntry) string {
	if entry.field.Type == TypeNested {
		return entry.path()
	}
	return entry.nested
}

// splitPath validates a dotted path and peels off a trailing pseudo-function
// segment ("exists"/"missing"), matching field_to_fraction's validation
// rules: no empty path, no "..", no lone ".", no trailing ".". A leading
// "." is rejected as malformed too, so absolute paths written with a
// leading dot are not accepted.
func splitPath(path string) ([]string, string, error) {
	if path == "" {
		return nil, "", newClientInputError("empty field path")
	}
	if strings.Contains(path, "..") || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
		return nil, "", newClientInputError("malformed field path %q", path)
	}

	segments := strings.Split(path, ".")
	function := ""
	if len(segments) > 1 {
		last := strings.ToLower(segments[len(segments)-1])
		if last == funcExists || last == funcMissing {
			function = last
			segments = segments[:len(segments)-1]
		}
	}
	if len(segments) == 0 {
		return nil, "", newClientInputError("malformed field path %q", path)
	}
	return segments, function, nil
}

// find locates the schema entry referenced by segments, trying an exact
// absolute match first and falling back to a unique-suffix match the way
// schema_finder does, so "name" alone can resolve to "media.label.name"
// when no other field ends in "name". Candidates are then filtered to
// those whose nested context is compatible with nestedCtx (4.1 step 4):
// valid if equal to nestedCtx or a descendant of it. Among the survivors,
// only the longest (most specific) nested context wins; a tie there is a
// genuine ambiguity, not just a shared suffix.
func (r *Resolver) find(segments []string, original, nestedCtx string) (*fieldEntry, error) {
	if exact := r.schema.fieldByPath(strings.Join(segments, ".")); exact != nil {
		if !isNestedAncestor(nestedCtx, currentNested(exact)) {
			return nil, newNotFoundError(
				"field "+original+" not found under the current nested scope",
				r.suggest(original),
			)
		}
		return exact, nil
	}

	matches := scopedMatches(r.schema.suffixMatches(segments), nestedCtx)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, newNotFoundError(
			"field "+original+" not found in schema",
			r.suggest(original),
		)
	default:
		matches = longestNestedMatches(matches)
		if len(matches) == 1 {
			return matches[0], nil
		}
		return nil, newAmbiguousError(
			"field "+original+" is ambiguous, matches: "+joinPaths(matches, 6),
			r.suggest(original),
		)
	}
}

// scopedMatches keeps only the candidates valid under nestedCtx: those
// whose own nested context (currentNested) equals nestedCtx or descends
// from it.
func scopedMatches(entries []*fieldEntry, nestedCtx string) []*fieldEntry {
	var out []*fieldEntry
	for _, e := range entries {
		if isNestedAncestor(nestedCtx, currentNested(e)) {
			out = append(out, e)
		}
	}
	return out
}

// longestNestedMatches narrows entries down to the most specific nested
// contexts - the "longest-matching" candidate 4.1 step 4 requires when
// more than one survives scope filtering. A candidate is dropped only when
// another candidate's nested context descends from its own; candidates in
// unrelated nested branches all survive and stay ambiguous.
func longestNestedMatches(entries []*fieldEntry) []*fieldEntry {
	var out []*fieldEntry
	for _, e := range entries {
		deeper := false
		for _, other := range entries {
			if currentNested(other) != currentNested(e) && isNestedAncestor(currentNested(e), currentNested(other)) {
				deeper = true
				break
			}
		}
		if !deeper {
			out = append(out, e)
		}
	}
	return out
}

// promote auto-promotes a branch field (object/nested with no leaf value of
// its own) to the first of candidates that names one of its direct
// properties, e.g. "media.label" promotes to "media.label.name" when "name"
// is the first candidate present. Promotion is a single level: the newly
// selected sub-property is returned as-is even if it is itself a branch,
// matching __query_field_object trying each candidate once per field and
// breaking on the first match rather than descending further.
func promote(entry *fieldEntry, candidates []string) (*fieldEntry, bool) {
	if !entry.field.isBranch() {
		return entry, false
	}
	for _, candidate := range candidates {
		sub, ok := entry.field.Properties[candidate]
		if !ok {
			continue
		}
		path := append(append([]string{}, entry.segments...), candidate)
		nested := entry.nested
		if entry.field.Type == TypeNested {
			nested = entry.path()
		}
		return &fieldEntry{segments: path, field: sub, nested: nested}, true
	}
	return entry, false
}

func joinPaths(entries []*fieldEntry, limit int) string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.path())
	}
	sort.Strings(paths)
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return strings.Join(paths, ", ")
}

// suggest returns up to 3 fuzzy matches for a field path that failed to
// resolve, scored by sequenceRatio against every indexed field path, ranked
// descending, filtered to score >= 0.6 and excluding internal ("_"-prefixed)
// fields.
func (r *Resolver) suggest(path string) []Suggestion {
	var candidates []Suggestion
	for _, e := range r.schema.index {
		if strings.HasPrefix(e.field.Name, "_") {
			continue
		}
		score := bestSuffixRatio(path, e.segments)
		if score >= 0.6 {
			candidates = append(candidates, Suggestion{Path: e.path(), Score: score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Path < candidates[j].Path
	})
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	return candidates
}

// bestSuffixRatio scores a target path against a field's full path and
// against each of its suffixes (so "name" scores well against
// "media.label.name", not just against the full dotted path), returning
// the best ratio found.
func bestSuffixRatio(target string, segments []string) float64 {
	best := sequenceRatio(target, strings.Join(segments, "."))
	for i := 1; i < len(segments); i++ {
		suffix := strings.Join(segments[i:], ".")
		if ratio := sequenceRatio(target, suffix); ratio > best {
			best = ratio
		}
	}
	return best
}

// sequenceRatio approximates difflib's SequenceMatcher.ratio(): twice the
// length of the longest common subsequence divided by the combined length
// of both strings. It is not bit-for-bit identical to difflib's
// matching-blocks algorithm, but it is the same similarity notion and
// converges to the same 0..1 scale.
func sequenceRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	m := longestCommonSubsequence(a, b)
	return 2 * float64(m) / float64(len(a)+len(b))
}

func longestCommonSubsequence(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
