package sel

import "github.com/caarlos0/env/v6"

// Config carries every tunable the compiler needs beyond the schema itself.
// DefaultConfig returns the baseline values; LoadConfig overlays
// environment variables on top of that baseline the way the rest of this
// codebase's operators expect - struct tags, not a bespoke INI/env reader.
type Config struct {
	// TimeZone is applied when a bare date/time literal carries no explicit
	// offset. Accepts any value time.LoadLocation understands.
	TimeZone string `env:"SEL_TIME_ZONE" envDefault:"UTC"`

	// DefaultObjectSubfield is a comma-separated, priority-ordered list of
	// child property names tried when a query references a branch field
	// (object or nested with no leaf value of its own) outside of a sort -
	// a filter, a context, an aggregation. The first candidate that exists
	// on the branch wins, e.g. "label" promotes to "label.name" when "name"
	// is the first candidate present.
	DefaultObjectSubfield string `env:"SEL_DEFAULT_OBJECT_SUBFIELD" envDefault:"name"`

	// DefaultObjectSortField is the same kind of priority-ordered candidate
	// list as DefaultObjectSubfield, but used only when promoting a branch
	// field referenced by a sort clause (explicit or auto-synthesized) -
	// sorting naturally prefers a scored or ranked child over the same
	// display field a filter would pick.
	DefaultObjectSortField string `env:"SEL_DEFAULT_OBJECT_SORT_FIELD" envDefault:"score,name"`

	// DefaultQueryStringFieldPath is the field searched by a bare quoted
	// query-string filter with no explicit field path.
	DefaultQueryStringFieldPath string `env:"SEL_DEFAULT_QUERY_STRING_FIELD" envDefault:"_all"`

	// AutoSort enables sort synthesis from the top-level filters when a
	// query specifies no explicit sort.
	AutoSort bool `env:"SEL_AUTO_SORT" envDefault:"true"`

	// DefaultExcludeDeletedDocuments, when set, makes the generator inject
	// a `deleted != true` filter unless the query already constrains the
	// deleted field itself.
	DefaultExcludeDeletedDocuments bool `env:"SEL_EXCLUDE_DELETED" envDefault:"false"`

	// DeletedFieldPath names the boolean field DefaultExcludeDeletedDocuments
	// checks.
	DeletedFieldPath string `env:"SEL_DELETED_FIELD" envDefault:"deleted"`

	Aggregations AggregationConfig
}

// AggregationConfig groups the defaults applied when an aggregation clause
// omits a parameter the backend requires.
type AggregationConfig struct {
	// DefaultSize bounds terms ("aggreg") aggregation buckets when a query
	// does not specify "size"; histograms default to size 0 instead.
	DefaultSize int `env:"SEL_AGGREGATION_DEFAULT_SIZE" envDefault:"10"`

	// DefaultDateInterval is used for a date_histogram aggregation whose
	// query omits "interval".
	DefaultDateInterval string `env:"SEL_AGGREGATION_DEFAULT_DATE_INTERVAL" envDefault:"day"`

	// CardinalityPrecisionThreshold is passed to "distinct" (cardinality)
	// aggregations to bound their memory use.
	CardinalityPrecisionThreshold int `env:"SEL_AGGREGATION_CARDINALITY_PRECISION" envDefault:"40000"`

	// MaxBucketsWarning is the bucket count above which the post-formatter
	// warns about a potentially expensive ungrouped terms aggregation.
	MaxBucketsWarning int `env:"SEL_AGGREGATION_MAX_BUCKETS_WARNING" envDefault:"10000"`
}

// DefaultConfig returns the baseline configuration with no environment
// overlay applied.
func DefaultConfig() Config {
	return Config{
		TimeZone:                    "UTC",
		DefaultObjectSubfield:       "name",
		DefaultObjectSortField:      "score,name",
		DefaultQueryStringFieldPath: "_all",
		AutoSort:                    true,
		DeletedFieldPath:            "deleted",
		Aggregations: AggregationConfig{
			DefaultSize:                   10,
			DefaultDateInterval:           "day",
			CardinalityPrecisionThreshold: 40000,
			MaxBucketsWarning:             10000,
		},
	}
}

// LoadConfig starts from DefaultConfig and overlays any SEL_* environment
// variables that are set, using struct tags instead of a bespoke parser.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, newInternalError("loading configuration: %s", err)
	}
	return cfg, nil
}
