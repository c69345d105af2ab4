package sel

import "fmt"

// Warnings accumulates non-fatal advisories raised while compiling a query:
// redundant where/under nesting, large ungrouped aggregation buckets, and
// similar conditions that should reach the caller without aborting
// compilation. Entries are deduplicated on Add, in insertion order.
type Warnings struct {
	messages []string
	seen     map[string]struct{}
}

// NewWarnings returns an empty accumulator.
func NewWarnings() *Warnings {
	return &Warnings{seen: make(map[string]struct{})}
}

// Add records a warning message, ignoring exact duplicates.
func (w *Warnings) Add(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if _, ok := w.seen[msg]; ok {
		return
	}
	w.seen[msg] = struct{}{}
	w.messages = append(w.messages, msg)
}

// List returns the accumulated warnings in the order they were first added.
func (w *Warnings) List() []string {
	if len(w.messages) == 0 {
		return nil
	}
	out := make([]string, len(w.messages))
	copy(out, w.messages)
	return out
}

// Empty reports whether no warning has been recorded.
func (w *Warnings) Empty() bool {
	return len(w.messages) == 0
}
