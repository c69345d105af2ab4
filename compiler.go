package sel

import (
	"context"

	"github.com/rs/zerolog"
)

// Compiler is the package's single entry point: it owns a schema and a
// configuration, and turns SEL text (or an already-parsed Query) into the
// JSON body a document-search backend expects, plus the bookkeeping a
// caller needs to post-format the response later. One Compiler is safe
// for concurrent use across many compilations - every mutable piece of
// state (the resolver's cache, the warnings accumulator) is built fresh
// per call.
type Compiler struct {
	schema *Schema
	config Config
	log    zerolog.Logger
}

// CompilerOption configures optional Compiler behavior.
type CompilerOption func(*Compiler)

// WithLogger attaches a logger a Compiler uses to trace each compilation
// at debug level. The zero value logs nothing.
func WithLogger(log zerolog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.log = log
	}
}

// NewCompiler builds a Compiler bound to schema and config.
func NewCompiler(schema *Schema, config Config, opts ...CompilerOption) *Compiler {
	c := &Compiler{schema: schema, config: config, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileText parses src as SEL surface syntax and compiles it. ctx is
// checked once, by CompileQuery before generation starts - compilation
// itself is synchronous and does not support mid-flight cancellation.
func (c *Compiler) CompileText(ctx context.Context, src string) (*CompileResult, error) {
	c.log.Debug().Str("query", src).Msg("compiling query")
	query, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return c.CompileQuery(ctx, query)
}

// CompileQuery compiles an already-built Query, the structured-input path
// that accepts the same IR built directly instead of through surface text.
func (c *Compiler) CompileQuery(ctx context.Context, query *Query) (*CompileResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	resolver := NewResolver(c.schema, c.config)
	generator, err := NewGenerator(resolver, c.config)
	if err != nil {
		return nil, err
	}

	esQuery, err := generator.GenerateQuery(query)
	if err != nil {
		return nil, err
	}

	aggregations, plan, err := generator.GenerateAggregations(query.Aggregations)
	if err != nil {
		return nil, err
	}

	sorts, err := generator.GenerateSorts(query)
	if err != nil {
		return nil, err
	}
	if sorts.UseRandom {
		esQuery = ApplyRandomScore(esQuery, sorts.RandomSeed)
	}

	body := map[string]any{"query": esQuery}
	if len(aggregations) > 0 {
		body["aggregations"] = aggregations
	}
	if len(sorts.Entries) > 0 {
		body["sort"] = sorts.Entries
	}
	query.Meta.apply(body)
	query.Extended.apply(body)

	c.log.Debug().
		Interface("resolved_aggregations", plan).
		Interface("body", body).
		Msg("query compiled")

	return &CompileResult{
		Body:            body,
		AggregationPlan: plan,
		schema:          c.schema,
		config:          c.config,
		warnings:        generator.Warnings(),
	}, nil
}
