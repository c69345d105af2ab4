package sel

import "strings"

// Field types recognized by the schema. Any other string (e.g. "ip") is
// accepted as a leaf scalar type, but it is not treated as a string type:
// the string-only comparators (~, prefix) are not available on it.
const (
	TypeObject  = "object"
	TypeNested  = "nested"
	TypeString  = "string"
	TypeText    = "text"
	TypeKeyword = "keyword"
	TypeInteger = "integer"
	TypeLong    = "long"
	TypeFloat   = "float"
	TypeDouble  = "double"
	TypeBoolean = "boolean"
	TypeDate    = "date"
)

// SchemaField describes one node of a typed index schema: either a leaf
// scalar (Type set, Properties nil) or a branch (object or nested) that
// carries sub-fields.
type SchemaField struct {
	Name       string
	Type       string
	Properties map[string]*SchemaField
}

func (f *SchemaField) isBranch() bool {
	return len(f.Properties) > 0
}

// Schema is a typed index schema: a tree of SchemaField nodes rooted at the
// document's top-level properties. It is immutable once built and safe for
// concurrent use by many Resolvers.
type Schema struct {
	Root *SchemaField

	index []*fieldEntry // flattened, depth-first, built once in NewSchema
}

type fieldEntry struct {
	segments []string
	field    *SchemaField
	nested   string // nearest strict-ancestor nested path, "" if none
}

func (e *fieldEntry) path() string {
	return strings.Join(e.segments, ".")
}

// NewSchema builds a Schema from a raw description shaped like an
// Elasticsearch mapping's "properties" block: every node is a map with an
// optional "type" string and an optional "properties" map of the same
// shape. A node with "properties" but no explicit "type" is treated as
// TypeObject, matching how Elasticsearch itself defaults bare object nodes.
func NewSchema(raw map[string]any) (*Schema, error) {
	root := &SchemaField{Name: "", Type: TypeObject, Properties: make(map[string]*SchemaField)}
	if err := buildSchemaFields(root.Properties, raw); err != nil {
		return nil, err
	}
	s := &Schema{Root: root}
	s.index = make([]*fieldEntry, 0, 64)
	s.walk(root, nil, "")
	return s, nil
}

func buildSchemaFields(into map[string]*SchemaField, raw map[string]any) error {
	for name, v := range raw {
		node, ok := v.(map[string]any)
		if !ok {
			return newInternalError("schema field %q: expected an object description", name)
		}
		field := &SchemaField{Name: name}
		if t, ok := node["type"].(string); ok {
			field.Type = t
		}
		if propsRaw, ok := node["properties"].(map[string]any); ok {
			field.Properties = make(map[string]*SchemaField, len(propsRaw))
			if err := buildSchemaFields(field.Properties, propsRaw); err != nil {
				return err
			}
			if field.Type == "" {
				field.Type = TypeObject
			}
		}
		into[name] = field
	}
	return nil
}

func (s *Schema) walk(node *SchemaField, segments []string, nested string) {
	for name, child := range node.Properties {
		path := append(append([]string{}, segments...), name)
		childNested := nested
		entry := &fieldEntry{segments: path, field: child, nested: childNested}
		s.index = append(s.index, entry)
		if child.Type == TypeNested {
			childNested = entry.path()
		}
		if child.isBranch() {
			s.walk(child, path, childNested)
		}
	}
}

// fieldByPath returns the index entry matching the exact dotted path, if any.
func (s *Schema) fieldByPath(path string) *fieldEntry {
	for _, e := range s.index {
		if e.path() == path {
			return e
		}
	}
	return nil
}

// suffixMatches returns every field whose path ends with the given
// dot-separated suffix segments, matched whole-segment (never a partial
// word within a segment).
func (s *Schema) suffixMatches(suffix []string) []*fieldEntry {
	var out []*fieldEntry
	for _, e := range s.index {
		if hasSuffix(e.segments, suffix) {
			out = append(out, e)
		}
	}
	return out
}

func hasSuffix(segments, suffix []string) bool {
	if len(suffix) > len(segments) {
		return false
	}
	offset := len(segments) - len(suffix)
	for i, seg := range suffix {
		if segments[offset+i] != seg {
			return false
		}
	}
	return true
}

// shortPath computes the shortest suffix of segments that no other indexed
// field shares, growing from the rightmost segment outward. Falls back to
// the full path when every suffix is ambiguous (should not happen for a
// well-formed schema, since the full path is always unique).
func (s *Schema) shortPath(segments []string) string {
	for size := 1; size <= len(segments); size++ {
		suffix := segments[len(segments)-size:]
		matches := s.suffixMatches(suffix)
		if len(matches) <= 1 {
			return strings.Join(suffix, ".")
		}
	}
	return strings.Join(segments, ".")
}
