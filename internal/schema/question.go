// Package schema defines the canonical question record shared by the sheet
// parser, the reconciliation store and every consumer of the effective list.
package schema

import (
	"fmt"
	"strings"
)

// Well-known status values. The set is open: any string read from the sheet
// is accepted and compared case-insensitively.
const (
	StatusPending    = "Pending"
	StatusSolved     = "Solved"
	StatusInProgress = "In Progress"
)

// PlaceholderLink is used when a question has no URL.
const PlaceholderLink = "#"

// Question is one row of the practice sheet.
//
// Name is the natural key: the sheet has no id column, so two rows sharing a
// name are indistinguishable to the override layer.
type Question struct {
	Name     string `json:"name" yaml:"name"`
	Platform string `json:"platform" yaml:"platform"`
	Link     string `json:"link" yaml:"link"`
	Topic    string `json:"topic" yaml:"topic"`
	Status   string `json:"status" yaml:"status"`
	Pinned   bool   `json:"pinned" yaml:"pinned"`
}

// Validate checks the fields required to insert a question.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(q.Name) > 500 {
		return fmt.Errorf("name must be 500 characters or less (got %d)", len(q.Name))
	}
	return nil
}

// SetDefaults fills the optional fields the sheet leaves blank.
func (q *Question) SetDefaults() {
	if q.Status == "" {
		q.Status = StatusPending
	}
	if q.Link == "" {
		q.Link = PlaceholderLink
	}
}

// HasContent reports whether any of name, platform or link is non-blank.
// Rows without content are trailing export noise.
func (q Question) HasContent() bool {
	return strings.TrimSpace(q.Name) != "" ||
		strings.TrimSpace(q.Platform) != "" ||
		strings.TrimSpace(q.Link) != ""
}

// IsSolved reports whether the status is "solved", ignoring case.
func (q Question) IsSolved() bool {
	return strings.EqualFold(q.Status, StatusSolved)
}

// IsPending reports whether the status is "pending", ignoring case.
func (q Question) IsPending() bool {
	return strings.EqualFold(q.Status, StatusPending)
}

// Filter selects questions by effective status.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterSolved  Filter = "solved"
	FilterPending Filter = "pending"
)

// ParseFilter converts user input to a Filter. Empty input means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "solved":
		return FilterSolved, nil
	case "pending":
		return FilterPending, nil
	default:
		return "", fmt.Errorf("invalid filter %q: must be all, solved, or pending", s)
	}
}

// Match reports whether q passes the filter.
func (f Filter) Match(q Question) bool {
	switch f {
	case FilterSolved:
		return q.IsSolved()
	case FilterPending:
		return q.IsPending()
	default:
		return true
	}
}
