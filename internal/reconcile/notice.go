package reconcile

import (
	"time"

	"github.com/dsadash/dsadash/internal/schema"
)

// NoticeKind classifies store events.
type NoticeKind string

const (
	NoticeRefreshed     NoticeKind = "refreshed"
	NoticeRefreshFailed NoticeKind = "refresh_failed"
	NoticeCommitted     NoticeKind = "committed"
	NoticeRolledBack    NoticeKind = "rolled_back"
	NoticeAdded         NoticeKind = "added"
	NoticeHighlight     NoticeKind = "highlight"
)

// Notice is delivered to the subscriber after the store state changed.
type Notice struct {
	Kind     NoticeKind       `json:"kind"`
	Name     string           `json:"name,omitempty"`
	Field    Field            `json:"field,omitempty"`
	Message  string           `json:"message,omitempty"`
	Count    int              `json:"count,omitempty"`
	Question *schema.Question `json:"question,omitempty"`
	Time     time.Time        `json:"time"`
}
