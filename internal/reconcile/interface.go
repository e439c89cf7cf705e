// Package reconcile owns the canonical question list fetched from the sheet
// and the local overrides layered over it.
//
// The remote sheet is the source of truth for the list; local edits to
// status and pinned are applied optimistically, sent to the mutation
// endpoint, and then either committed or rolled back depending on the
// outcome. Overrides and the last snapshot are written through to disk so
// one-shot CLI commands see the same state as a running dashboard.
package reconcile

import (
	"context"

	"github.com/dsadash/dsadash/internal/localdb"
	"github.com/dsadash/dsadash/internal/mutate"
	"github.com/dsadash/dsadash/internal/schema"
)

// Fetcher retrieves the canonical list for a document.
//
// Implemented by *sheet.Fetcher.
type Fetcher interface {
	// FetchQuestions downloads and parses the document.
	//
	// Returns *sheet.FetchError when every export URL failed and
	// sheet.ErrNoData when the export has no rows beyond the header.
	FetchQuestions(ctx context.Context, documentID string) ([]schema.Question, error)
}

// Dispatcher sends one mutation to the remote endpoint.
//
// Implemented by *mutate.Dispatcher.
type Dispatcher interface {
	// Dispatch never fails outward; the remote leg is described by
	// Result.Outcome.
	Dispatch(ctx context.Context, p mutate.Payload) mutate.Result

	// Configured reports whether an endpoint is set.
	Configured() bool
}

// OverrideStore persists local status and pinned edits.
//
// Implemented by *localdb.DB. Write failures are logged by the store and
// never undo the in-memory change.
type OverrideStore interface {
	LoadOverrides(ctx context.Context) (localdb.Overrides, error)
	SetStatusOverride(ctx context.Context, name, status string) error
	ClearStatusOverride(ctx context.Context, name string) error
	SetPinnedOverride(ctx context.Context, name string, pinned bool) error
	ClearPinnedOverride(ctx context.Context, name string) error
}

// SnapshotStore persists the last fetched list.
//
// Implemented by *localdb.DB. LoadSnapshot returns localdb.ErrNoSnapshot
// before the first save.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap localdb.Snapshot) error
	LoadSnapshot(ctx context.Context) (localdb.Snapshot, error)
}
