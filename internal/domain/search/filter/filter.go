package filter

import "time"

// Filters is the metadata predicate applied to post-processed results.
// A result survives only if it passes every supplied predicate (logical AND).
type Filters struct {
	category      string
	tags          []string
	createdAfter  *time.Time
	createdBefore *time.Time
}

// New creates a filter set. Zero values mean "predicate not supplied".
func New(category string, tags []string, createdAfter, createdBefore *time.Time) Filters {
	return Filters{
		category:      category,
		tags:          tags,
		createdAfter:  createdAfter,
		createdBefore: createdBefore,
	}
}

// Category returns the exact-match category predicate ("" when unset).
func (f Filters) Category() string { return f.category }

// Tags returns the tag set for non-empty-intersection matching.
func (f Filters) Tags() []string { return f.tags }

// CreatedAfter returns the lower timestamp bound (nil when unset).
func (f Filters) CreatedAfter() *time.Time { return f.createdAfter }

// CreatedBefore returns the upper timestamp bound (nil when unset).
func (f Filters) CreatedBefore() *time.Time { return f.createdBefore }

// IsEmpty reports whether no predicate is supplied.
func (f Filters) IsEmpty() bool {
	return f.category == "" && len(f.tags) == 0 && f.createdAfter == nil && f.createdBefore == nil
}
