package sel

// Node is the marker interface implemented by every filter-tree IR type:
// Filter, QueryStringNode, Context, Not, and Group. The parser builds a
// tree of these from SEL text; the generator walks the same tree when it
// was built directly via the structured input path instead.
type Node interface {
	isNode()
}

// Comparator is a SEL filter comparator token. The negative comparators
// (Ne, NotMatch, NotIn, NotPrefix, NotRange) invert their positive
// counterpart: the leaf compiles to the positive query marked negative, and
// the enclosing Group routes it to an Elasticsearch "must_not" (a lone
// negative item is wrapped in its own bool must_not).
type Comparator string

const (
	Eq         Comparator = "="
	Ne         Comparator = "!="
	Match      Comparator = "~"
	NotMatch   Comparator = "!~"
	Gt         Comparator = ">"
	Gte        Comparator = ">="
	Lt         Comparator = "<"
	Lte        Comparator = "<="
	In         Comparator = "in"
	NotIn      Comparator = "nin"
	Prefix     Comparator = "prefix"
	NotPrefix  Comparator = "nprefix"
	RangeCmp   Comparator = "range"
	NotRange   Comparator = "nrange"
)

// negativeComparators lists every comparator whose filter must additionally
// flip the parity of an enclosing Not toggle.
var negativeComparators = map[Comparator]bool{
	Ne: true, NotMatch: true, NotIn: true, NotPrefix: true, NotRange: true,
}

// Value is a single scalar literal from SEL text, kept as its raw text; the
// generator interprets it against the target field's type when compiling.
type Value struct {
	Raw string
}

// Filter is a single field comparison: `field comparator value[s]`.
// Exactly one of Value, Values, or RangeLow/RangeHigh is populated,
// depending on Comparator.
type Filter struct {
	Field      string
	Comparator Comparator
	Value      *Value   // Eq, Ne, Gt, Gte, Lt, Lte, Match, NotMatch, Prefix, NotPrefix
	Values     []*Value // In, NotIn
	RangeLow   *rangeBound
	RangeHigh  *rangeBound // RangeCmp, NotRange

	// Where is an optional nested sub-query scoped to this filter's own
	// field, e.g. `color = blue where label = bag`.
	Where Node
}

func (*Filter) isNode() {}

// rangeBound is one side of a `range (cmp value, cmp value)` filter.
type rangeBound struct {
	Comparator Comparator // one of Gt, Gte, Lt, Lte
	Value      *Value
}

// QueryStringNode is a bare quoted-string filter, compiled to a
// query_string query against DefaultQueryStringFieldPath (or Field, if the
// query gave one explicitly via `field ~ "..."`, which the parser folds
// into a Filter with comparator Match instead - this node only represents
// the fieldless shortcut form).
type QueryStringNode struct {
	Text string
}

func (*QueryStringNode) isNode() {}

// Context wraps an inner node with a nested-scope directive: the inner node
// is scoped to documents of the field path's nested object. The parser
// only produces Kind "where", and the generator scopes the inner node the
// same way whatever Kind holds.
type Context struct {
	Kind  string // "where"
	Field string // the field path the nested scope is taken from
	Inner Node
}

func (*Context) isNode() {}

// Not inverts its inner node. Consecutive Not wrappers collapse at
// generation time (even count cancels, odd count inverts once).
type Not struct {
	Inner Node
}

func (*Not) isNode() {}

// Group is a boolean combination of items joined by "and" or "or".
type Group struct {
	Operator string // "and" or "or"
	Items    []Node
}

func (*Group) isNode() {}

// Aggregation is one `aggreg(...)` clause, optionally nested under
// SubAggregations for multi-level bucketing.
type Aggregation struct {
	// Name is the key this aggregation is emitted under in the response.
	// When the query gave none, the generator synthesizes "<type>_<index>".
	Name            string
	Type            string // aggreg, histogram, count, distinct, min, max, sum, average, stats
	Field           string
	Size            *int
	Interval        string // histogram/date_histogram only
	Under           string // nested scope path the aggregation runs under
	Where           Node   // nested scope filter, like Context.Kind "where"
	Graph           bool   // a graph parameter was given; the graph name itself is not kept
	SubAggregations []*Aggregation
}

// Sort is one `sort(...)` clause. Seed is set only for the synthetic
// "random" sort field.
type Sort struct {
	Field string
	Order string // "asc" or "desc"
	Mode  string // "min", "max", "avg", "sum", "median", ""
	Under string
	Where Node
	Seed  *int64

	// Auto marks a sort this package synthesized itself through auto-sort,
	// not one the caller wrote.
	Auto bool
}

// Query is the fully parsed representation of one SEL compilation unit:
// the boolean filter tree, zero or more aggregations, and zero or more sort
// clauses, plus the passthrough envelope (From/Size/extended keys) that
// rides alongside it but never participates in filtering.
type Query struct {
	Filter       Node
	Aggregations []*Aggregation
	Sorts        []*Sort
	Meta         Meta
	Extended     Extended
}
