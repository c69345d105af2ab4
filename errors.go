package sel

import "fmt"

// ClientInputError is returned for invalid SEL syntax, invalid values,
// disallowed comparators, malformed where/range/under usage, or any other
// mistake a caller can fix by changing their query. It is never retryable.
type ClientInputError struct {
	Message string
}

func (e *ClientInputError) Error() string {
	return e.Message
}

func newClientInputError(format string, args ...any) error {
	return &ClientInputError{Message: fmt.Sprintf(format, args...)}
}

// Suggestion is a fuzzy-matched field path offered when a SchemaResolutionError
// fires because a field could not be found or was ambiguous.
type Suggestion struct {
	Path  string
	Score float64
}

// SchemaResolutionError fires when a field path does not resolve against the
// schema (not found) or resolves to more than one field (ambiguous).
type SchemaResolutionError struct {
	Message     string
	Ambiguous   bool
	Suggestions []Suggestion
}

func (e *SchemaResolutionError) Error() string {
	return e.Message
}

func newNotFoundError(message string, suggestions []Suggestion) error {
	return &SchemaResolutionError{Message: message, Suggestions: suggestions}
}

func newAmbiguousError(message string, suggestions []Suggestion) error {
	return &SchemaResolutionError{Message: message, Ambiguous: true, Suggestions: suggestions}
}

// InternalError marks an invariant violation unreachable via valid client
// input - a schema that was never validated, a resolver contract broken by
// a bug in the generator, and so on.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return e.Message
}

func newInternalError(format string, args ...any) error {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}
