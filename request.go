package sel

// Meta carries the pagination controls that ride alongside a query body
// without participating in filtering: `from`/`size`. Both are pointers so
// "not specified" is distinguishable from "explicitly zero".
type Meta struct {
	From *int
	Size *int
}

// apply copies the set fields onto an Elasticsearch request body: a key is
// written only when its pointer is non-nil.
func (m Meta) apply(body map[string]any) {
	if m.From != nil {
		body["from"] = *m.From
	}
	if m.Size != nil {
		body["size"] = *m.Size
	}
}

// extendedQueryKeys lists the top-level Elasticsearch search body keys a
// caller may pass through verbatim via Extended, without SEL having any
// opinion on their shape: source filtering, stored and script fields,
// highlighting, rescoring, index boosts, and explain/profile toggles are
// the backend's concern, not the query language's.
var extendedQueryKeys = map[string]bool{
	"_source":          true,
	"fields":           true,
	"stored_fields":    true,
	"script_fields":    true,
	"fielddata_fields": true,
	"highlight":        true,
	"rescore":          true,
	"indices_boost":    true,
	"explain":          true,
	"profile":          true,
	"track_scores":     true,
	"min_score":        true,
	"version":          true,
}

// Extended is an allow-listed passthrough bag of additional Elasticsearch
// search body keys. Keys outside extendedQueryKeys are dropped rather than
// rejected, so a caller forwarding a whole request body unfiltered can't
// accidentally smuggle a "query" or "aggs" override past the compiler.
type Extended map[string]any

// apply copies every allow-listed, present key from e onto body.
func (e Extended) apply(body map[string]any) {
	for key, value := range e {
		if value == nil || !extendedQueryKeys[key] {
			continue
		}
		body[key] = value
	}
}
