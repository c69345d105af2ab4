package sel

import (
	"strconv"
	"strings"
)

var aggTypeKeywords = map[string]bool{
	"aggreg": true, "histogram": true, "count": true, "distinct": true,
	"min": true, "max": true, "sum": true, "average": true, "stats": true,
}

var numCmpOps = map[string]bool{">=": true, ">": true, "<=": true, "<": true}

// Parse turns SEL surface syntax into a *Query. It never partially applies
// a grammar alternative: once a production commits past its first token it
// either completes or returns a ClientInputError describing exactly where
// and what went wrong, per the position-tracking diagnostic every
// production below threads through.
func Parse(src string) (*Query, error) {
	p, err := newParserState(src)
	if err != nil {
		return nil, err
	}
	return p.parseQuery()
}

type parserState struct {
	src    string
	runes  []rune
	tokens []token
	i      int
}

func newParserState(src string) (*parserState, error) {
	lex := newLexer(src)
	var tokens []token
	for {
		t, err := lex.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
		if t.kind == tokEOF {
			break
		}
	}
	return &parserState{src: src, runes: []rune(src), tokens: tokens}, nil
}

func (p *parserState) cur() token {
	return p.tokens[p.i]
}

func (p *parserState) peek(n int) token {
	idx := p.i + n
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *parserState) advance() token {
	t := p.tokens[p.i]
	if p.i < len(p.tokens)-1 {
		p.i++
	}
	return t
}

func (p *parserState) mark() int { return p.i }
func (p *parserState) reset(m int) { p.i = m }

func isWord(t token, kw string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, kw)
}

func (p *parserState) errorf(expected string) error {
	failure := p.cur()
	var lastConsumed string
	if p.i > 0 {
		lastConsumed = p.tokens[p.i-1].describe()
	} else {
		lastConsumed = "(start of input)"
	}
	snippet := p.remaining(failure.pos)
	return newClientInputError(
		"syntax error at line %d, column %d: expected %s; last consumed token was %s; remaining input: %q",
		failure.line, failure.col, expected, lastConsumed, snippet,
	)
}

func (p *parserState) remaining(pos int) string {
	end := pos + 40
	if end > len(p.runes) {
		end = len(p.runes)
	}
	if pos > len(p.runes) {
		return ""
	}
	return string(p.runes[pos:end])
}

// parseQuery implements: Query := [Group] {Aggregation} {Sort}
func (p *parserState) parseQuery() (*Query, error) {
	q := &Query{}

	if !p.atAggregationStart() && !p.atSortStart() && p.cur().kind != tokEOF {
		filter, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		q.Filter = filter
	}

	for p.atAggregationStart() {
		agg, err := p.parseAggregation()
		if err != nil {
			return nil, err
		}
		q.Aggregations = append(q.Aggregations, agg)
	}

	for p.atSortStart() {
		s, err := p.parseSort()
		if err != nil {
			return nil, err
		}
		q.Sorts = append(q.Sorts, s)
	}

	if p.cur().kind != tokEOF {
		return nil, p.errorf("an aggregation, a sort, or end of input")
	}

	return q, nil
}

func (p *parserState) atAggregationStart() bool {
	t := p.cur()
	return t.kind == tokWord && aggTypeKeywords[strings.ToLower(t.text)]
}

func (p *parserState) atSortStart() bool {
	return isWord(p.cur(), "sort")
}

// parseGroup implements: Group := Element {("and"|"or") Element}, applying
// "and" binds tighter than "or" precedence by partitioning the flat item
// list at each "or" into conjunctive runs, then combining those
// disjunctively.
func (p *parserState) parseGroup() (Node, error) {
	first, err := p.parseElement()
	if err != nil {
		return nil, err
	}
	items := []Node{first}
	var ops []string

	for isWord(p.cur(), "and") || isWord(p.cur(), "or") {
		op := strings.ToLower(p.advance().text)
		ops = append(ops, op)
		next, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}

	return buildPrecedenceGroup(items, ops), nil
}

func buildPrecedenceGroup(items []Node, ops []string) Node {
	var orGroups [][]Node
	current := []Node{items[0]}
	for i, op := range ops {
		if op == "or" {
			orGroups = append(orGroups, current)
			current = []Node{items[i+1]}
		} else {
			current = append(current, items[i+1])
		}
	}
	orGroups = append(orGroups, current)

	orItems := make([]Node, 0, len(orGroups))
	for _, grp := range orGroups {
		orItems = append(orItems, collapseGroup("and", grp))
	}
	return collapseGroup("or", orItems)
}

func collapseGroup(operator string, items []Node) Node {
	if len(items) == 1 {
		return items[0]
	}
	return &Group{Operator: operator, Items: items}
}

// parseElement implements:
// Element := "(" Group ")" | "not" Element | Filter | RangeFilter | Context | QueryString
func (p *parserState) parseElement() (Node, error) {
	switch {
	case p.cur().kind == tokLParen:
		p.advance()
		inner, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, p.errorf("\")\"")
		}
		p.advance()
		return inner, nil

	case isWord(p.cur(), "not"):
		p.advance()
		inner, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		return &Not{Inner: inner}, nil

	case p.cur().kind == tokString:
		if p.looksLikeRangeFilter() {
			return p.parseRangeFilter()
		}
		text := p.advance().text
		return &QueryStringNode{Text: text}, nil

	case p.cur().kind == tokNumber:
		if p.looksLikeRangeFilter() {
			return p.parseRangeFilter()
		}
		return nil, p.errorf("a field path, \"not\", \"(\", or a quoted query string")

	case p.cur().kind == tokWord:
		if p.looksLikeRangeFilter() {
			return p.parseRangeFilter()
		}
		return p.parseFieldPathElement()

	default:
		return nil, p.errorf("a filter, a context, \"not\", \"(\", or a quoted query string")
	}
}

// looksLikeRangeFilter performs the one bounded lookahead the grammar
// requires: RangeFilter and Filter both start with a bare token, so we peek
// ahead for the "NumCmp FieldPath NumCmp" shape that only RangeFilter has
// before committing to either production.
func (p *parserState) looksLikeRangeFilter() bool {
	t1 := p.peek(1)
	if t1.kind != tokOp || !numCmpOps[t1.text] {
		return false
	}
	t2 := p.peek(2)
	if t2.kind != tokWord {
		return false
	}
	t3 := p.peek(3)
	return t3.kind == tokOp && numCmpOps[t3.text]
}

// parseRangeFilter implements:
// RangeFilter := Value NumCmp FieldPath NumCmp Value ["where" Element]
// It requires the two comparators to point the same way as written, so
// that once the first is inverted one is a lower and the other an upper
// bound (i.e. "5 < age < 10" reads as age > 5 and age < 10).
func (p *parserState) parseRangeFilter() (Node, error) {
	low := p.parseValue()

	op1 := p.cur()
	if op1.kind != tokOp || !numCmpOps[op1.text] {
		return nil, p.errorf("a numeric comparator (>, >=, <, <=)")
	}
	p.advance()

	if p.cur().kind != tokWord {
		return nil, p.errorf("a field path")
	}
	field := p.advance().text

	op2 := p.cur()
	if op2.kind != tokOp || !numCmpOps[op2.text] {
		return nil, p.errorf("a numeric comparator (>, >=, <, <=)")
	}
	p.advance()

	high := p.parseValue()

	lowComparator, err := invertedComparator(op1.text)
	if err != nil {
		return nil, err
	}
	highComparator := Comparator(op2.text)
	if err := requireOpposingDirection(lowComparator, highComparator); err != nil {
		return nil, err
	}

	filter := &Filter{
		Field:      field,
		Comparator: RangeCmp,
		RangeLow:   &rangeBound{Comparator: lowComparator, Value: low},
		RangeHigh:  &rangeBound{Comparator: highComparator, Value: high},
	}
	return p.parseOptionalWhere(filter)
}

// invertedComparator flips a NumCmp operator the way writing the bound on
// the left of the field does: "5 < age" means age is greater than 5.
func invertedComparator(op string) (Comparator, error) {
	switch op {
	case ">":
		return Lt, nil
	case ">=":
		return Lte, nil
	case "<":
		return Gt, nil
	case "<=":
		return Gte, nil
	}
	return "", newClientInputError("unknown range comparator %q", op)
}

func requireOpposingDirection(low, high Comparator) error {
	lowIsUpper := low == Lt || low == Lte
	highIsUpper := high == Lt || high == Lte
	if lowIsUpper == highIsUpper {
		return newClientInputError("range filter comparators must point in opposing directions")
	}
	return nil
}

// parseFieldPathElement disambiguates Context from Filter once a FieldPath
// has been consumed: Context always requires "where" immediately followed
// by "(", otherwise the field begins an ordinary Filter.
func (p *parserState) parseFieldPathElement() (Node, error) {
	field, err := p.parseFieldPath()
	if err != nil {
		return nil, err
	}

	if isWord(p.cur(), "where") && p.peek(1).kind == tokLParen {
		p.advance() // where
		p.advance() // (
		inner, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, p.errorf("\")\"")
		}
		p.advance()
		return &Context{Kind: "where", Field: field, Inner: inner}, nil
	}

	return p.parseFilterTail(field)
}

func (p *parserState) parseFieldPath() (string, error) {
	if p.cur().kind != tokWord {
		return "", p.errorf("a field path")
	}
	text := p.advance().text
	for _, r := range text {
		if r == '#' || r == '@' || r == '/' || r == '*' {
			return "", newClientInputError("invalid character %q in field path %q", r, text)
		}
	}
	return text, nil
}

// parseFilterTail implements the comparator alternatives of Filter, having
// already consumed its FieldPath, plus its optional trailing "where".
func (p *parserState) parseFilterTail(field string) (Node, error) {
	comparator, negativeTwoWord := p.consumeNegativeKeyword()

	var filter *Filter
	switch {
	case p.cur().kind == tokOp:
		op := p.advance().text
		value := p.parseValue()
		filter = &Filter{Field: field, Comparator: Comparator(op), Value: value}

	case isWord(p.cur(), "in") || comparator == "in":
		p.advance2If(comparator == "", "in")
		values, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		cmp := In
		if negativeTwoWord || comparator == "nin" {
			cmp = NotIn
		}
		filter = &Filter{Field: field, Comparator: cmp, Values: values}

	case isWord(p.cur(), "nin"):
		p.advance()
		values, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		filter = &Filter{Field: field, Comparator: NotIn, Values: values}

	case isWord(p.cur(), "range") || comparator == "range":
		p.advance2If(comparator == "", "range")
		low, high, err := p.parseRangeParen()
		if err != nil {
			return nil, err
		}
		cmp := RangeCmp
		if negativeTwoWord || comparator == "nrange" {
			cmp = NotRange
		}
		filter = &Filter{Field: field, Comparator: cmp, RangeLow: low, RangeHigh: high}

	case isWord(p.cur(), "nrange"):
		p.advance()
		low, high, err := p.parseRangeParen()
		if err != nil {
			return nil, err
		}
		filter = &Filter{Field: field, Comparator: NotRange, RangeLow: low, RangeHigh: high}

	case isWord(p.cur(), "prefix") || comparator == "prefix":
		p.advance2If(comparator == "", "prefix")
		value := p.parseValue()
		cmp := Prefix
		if negativeTwoWord || comparator == "nprefix" {
			cmp = NotPrefix
		}
		filter = &Filter{Field: field, Comparator: cmp, Value: value}

	case isWord(p.cur(), "nprefix"):
		p.advance()
		value := p.parseValue()
		filter = &Filter{Field: field, Comparator: NotPrefix, Value: value}

	default:
		return nil, p.errorf("a comparator, \"in\", \"range\", or \"prefix\"")
	}

	return p.parseOptionalWhere(filter)
}

// consumeNegativeKeyword peels a leading "not" when it is immediately
// followed by "in", "range", or "prefix" - the two-word negated comparator
// spellings - returning which keyword followed so the caller can finish
// consuming it. Returns ("", false) when no such pair is present.
func (p *parserState) consumeNegativeKeyword() (string, bool) {
	if !isWord(p.cur(), "not") {
		return "", false
	}
	next := p.peek(1)
	if next.kind != tokWord {
		return "", false
	}
	switch strings.ToLower(next.text) {
	case "in", "range", "prefix":
		p.advance() // not
		p.advance() // in|range|prefix
		return strings.ToLower(next.text), true
	}
	return "", false
}

// advance2If consumes the current token when cond is true and its text
// matches kw - used after consumeNegativeKeyword already decided whether
// the single-word keyword still needs consuming.
func (p *parserState) advance2If(cond bool, kw string) {
	if cond && isWord(p.cur(), kw) {
		p.advance()
	}
}

func (p *parserState) parseOptionalWhere(filter *Filter) (Node, error) {
	if isWord(p.cur(), "where") {
		p.advance()
		inner, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		filter.Where = inner
	}
	return filter, nil
}

func (p *parserState) parseValueList() ([]*Value, error) {
	if p.cur().kind != tokLBracket {
		return nil, p.errorf("\"[\"")
	}
	p.advance()
	var values []*Value
	values = append(values, p.parseValue())
	for p.cur().kind == tokComma {
		p.advance()
		values = append(values, p.parseValue())
	}
	if p.cur().kind != tokRBracket {
		return nil, p.errorf("\",\" or \"]\"")
	}
	p.advance()
	return values, nil
}

func (p *parserState) parseRangeParen() (*rangeBound, *rangeBound, error) {
	if p.cur().kind != tokLParen {
		return nil, nil, p.errorf("\"(\"")
	}
	p.advance()

	low, err := p.parseNumCmpValue()
	if err != nil {
		return nil, nil, err
	}
	if p.cur().kind != tokComma {
		return nil, nil, p.errorf("\",\"")
	}
	p.advance()

	high, err := p.parseNumCmpValue()
	if err != nil {
		return nil, nil, err
	}
	if p.cur().kind != tokRParen {
		return nil, nil, p.errorf("\")\"")
	}
	p.advance()

	return low, high, nil
}

func (p *parserState) parseNumCmpValue() (*rangeBound, error) {
	if p.cur().kind != tokOp || !numCmpOps[p.cur().text] {
		return nil, p.errorf("a numeric comparator (>, >=, <, <=)")
	}
	op := p.advance().text
	value := p.parseValue()
	return &rangeBound{Comparator: Comparator(op), Value: value}, nil
}

// parseValue implements Value := quoted string | bare word/number run. It
// never fails: by the time it is called the caller has already confirmed
// the current token is a plausible value (string, word, or number).
func (p *parserState) parseValue() *Value {
	t := p.advance()
	return &Value{Raw: t.text}
}

// parseIntervalValue implements the Value production for an interval
// shortcut, which may be a bare granularity letter ("d") or a multiplier
// glued directly to one ("3d"). The lexer always splits a leading digit
// run from a following letter run into two tokens, so a multiplied
// shortcut arrives as an adjacent tokNumber/tokWord pair; recombine them
// when nothing separates the two in the source.
func (p *parserState) parseIntervalValue() *Value {
	t := p.advance()
	if t.kind == tokNumber && p.cur().kind == tokWord && p.cur().pos == t.pos+len(t.text) {
		word := p.advance()
		return &Value{Raw: t.text + word.text}
	}
	return &Value{Raw: t.text}
}

// parseAggregation implements:
// Aggregation := AggType [Name] ":" FieldPath {AggParam}
func (p *parserState) parseAggregation() (*Aggregation, error) {
	if p.cur().kind != tokWord || !aggTypeKeywords[strings.ToLower(p.cur().text)] {
		return nil, p.errorf("an aggregation type")
	}
	aggType := strings.ToLower(p.advance().text)

	var name string
	if p.cur().kind == tokWord && p.peek(1).kind == tokColon {
		name = p.advance().text
	}

	if p.cur().kind != tokColon {
		return nil, p.errorf("\":\"")
	}
	p.advance()

	field, err := p.parseFieldPath()
	if err != nil {
		return nil, err
	}

	agg := &Aggregation{Name: name, Type: aggType, Field: field}

	for {
		switch {
		case isWord(p.cur(), "subaggreg"):
			p.advance()
			if p.cur().kind != tokWord {
				return nil, p.errorf("a sub-aggregation name")
			}
			subName := p.advance().text
			if p.cur().kind != tokLParen {
				return nil, p.errorf("\"(\"")
			}
			p.advance()
			sub, err := p.parseAggregation()
			if err != nil {
				return nil, err
			}
			sub.Name = subName
			if p.cur().kind != tokRParen {
				return nil, p.errorf("\")\"")
			}
			p.advance()
			agg.SubAggregations = append(agg.SubAggregations, sub)

		case isWord(p.cur(), "interval"):
			p.advance()
			agg.Interval = p.parseIntervalValue().Raw

		case isWord(p.cur(), "size"):
			p.advance()
			if p.cur().kind != tokNumber {
				return nil, p.errorf("an integer")
			}
			n, err := strconv.Atoi(p.advance().text)
			if err != nil {
				return nil, newClientInputError("invalid size: %s", err)
			}
			agg.Size = &n

		case isWord(p.cur(), "under"):
			p.advance()
			field, err := p.parseFieldPath()
			if err != nil {
				return nil, err
			}
			agg.Under = field

		case isWord(p.cur(), "where"):
			p.advance()
			inner, err := p.parseElement()
			if err != nil {
				return nil, err
			}
			agg.Where = inner

		case isWord(p.cur(), "graph"):
			p.advance()
			if p.cur().kind != tokWord {
				return nil, p.errorf("a graph name")
			}
			p.advance()
			agg.Graph = true

		default:
			return agg, nil
		}
	}
}

// parseSort implements: Sort := "sort" ":" FieldPath [Order] {SortParam}
func (p *parserState) parseSort() (*Sort, error) {
	if !isWord(p.cur(), "sort") {
		return nil, p.errorf("\"sort\"")
	}
	p.advance()
	if p.cur().kind != tokColon {
		return nil, p.errorf("\":\"")
	}
	p.advance()

	field, err := p.parseFieldPath()
	if err != nil {
		return nil, err
	}
	s := &Sort{Field: field, Order: "desc", Mode: "avg"}

	if isWord(p.cur(), "asc") {
		p.advance()
		s.Order = "asc"
	} else if isWord(p.cur(), "desc") {
		p.advance()
		s.Order = "desc"
	}

	for {
		switch {
		case isWord(p.cur(), "seed"):
			p.advance()
			if p.cur().kind != tokNumber {
				return nil, p.errorf("an integer")
			}
			n, err := strconv.ParseInt(p.advance().text, 10, 64)
			if err != nil {
				return nil, newClientInputError("invalid seed: %s", err)
			}
			s.Seed = &n

		case isWord(p.cur(), "mode"):
			p.advance()
			if p.cur().kind != tokWord {
				return nil, p.errorf("a sort mode")
			}
			s.Mode = strings.ToLower(p.advance().text)

		case isWord(p.cur(), "under"):
			p.advance()
			field, err := p.parseFieldPath()
			if err != nil {
				return nil, err
			}
			s.Under = field

		case isWord(p.cur(), "where"):
			p.advance()
			inner, err := p.parseElement()
			if err != nil {
				return nil, err
			}
			s.Where = inner

		default:
			return s, nil
		}
	}
}
