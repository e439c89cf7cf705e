package mutate

import (
	"fmt"

	"github.com/dsadash/dsadash/internal/schema"
)

// Action names understood by the mutation endpoint.
type Action string

const (
	ActionAddQuestion  Action = "addQuestion"
	ActionUpdateStatus Action = "updateStatus"
	ActionUpdatePinned Action = "updatePinned"
)

// Payload is one mutation request. Fields are merged into the JSON envelope
// next to "action".
type Payload interface {
	Action() Action
	Fields() map[string]any
	// Subject is the question name the mutation targets.
	Subject() string
	// Value renders the written value for messages and the journal.
	Value() string
}

// StatusUpdate sets the status column of a question.
type StatusUpdate struct {
	QuestionName string
	Status       string
}

func (u StatusUpdate) Action() Action  { return ActionUpdateStatus }
func (u StatusUpdate) Subject() string { return u.QuestionName }
func (u StatusUpdate) Value() string   { return u.Status }

func (u StatusUpdate) Fields() map[string]any {
	return map[string]any{"questionName": u.QuestionName, "status": u.Status}
}

// PinnedUpdate sets the pinned column of a question.
type PinnedUpdate struct {
	QuestionName string
	Pinned       bool
}

func (u PinnedUpdate) Action() Action  { return ActionUpdatePinned }
func (u PinnedUpdate) Subject() string { return u.QuestionName }
func (u PinnedUpdate) Value() string   { return sheetBool(u.Pinned) }

func (u PinnedUpdate) Fields() map[string]any {
	return map[string]any{"questionName": u.QuestionName, "pinned": u.Pinned}
}

// NewQuestion appends a question row.
type NewQuestion struct {
	Question schema.Question
}

func (n NewQuestion) Action() Action  { return ActionAddQuestion }
func (n NewQuestion) Subject() string { return n.Question.Name }
func (n NewQuestion) Value() string   { return n.Question.Link }

func (n NewQuestion) Fields() map[string]any {
	q := n.Question
	return map[string]any{
		"name":     q.Name,
		"platform": q.Platform,
		"link":     q.Link,
		"topic":    q.Topic,
		"status":   q.Status,
		"pinned":   q.Pinned,
	}
}

func sheetBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// successMessage is used when the endpoint succeeds without a message.
func successMessage(p Payload) string {
	switch p.Action() {
	case ActionUpdateStatus:
		return fmt.Sprintf("Question %q status updated to %s", p.Subject(), p.Value())
	case ActionUpdatePinned:
		return fmt.Sprintf("Question %q pinned status updated to %s", p.Subject(), p.Value())
	default:
		return fmt.Sprintf("Question %q added successfully", p.Subject())
	}
}

func localMessage(p Payload) string {
	switch p.Action() {
	case ActionUpdateStatus:
		return fmt.Sprintf("Question %q status updated locally to %s", p.Subject(), p.Value())
	case ActionUpdatePinned:
		return fmt.Sprintf("Question %q pinned status updated locally to %s", p.Subject(), p.Value())
	default:
		return fmt.Sprintf("Question %q added locally", p.Subject())
	}
}

// column returns the sheet column letter an update writes to.
func column(a Action) string {
	switch a {
	case ActionUpdateStatus:
		return "E"
	case ActionUpdatePinned:
		return "F"
	default:
		return ""
	}
}
