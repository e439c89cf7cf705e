package localdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dsadash/dsadash/internal/schema"
)

// ErrNoSnapshot is returned by LoadSnapshot before the first successful fetch.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Snapshot is the stored canonical list.
type Snapshot struct {
	DocumentID string
	FetchedAt  time.Time
	Questions  []schema.Question
}

// SaveSnapshot replaces the stored list in one transaction.
func (db *DB) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot"); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO snapshot (position, name, platform, link, topic, status, pinned)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for i, q := range snap.Questions {
		if _, err := stmt.ExecContext(ctx, i, q.Name, q.Platform, q.Link, q.Topic, q.Status, boolToInt(q.Pinned)); err != nil {
			return fmt.Errorf("failed to store question %q: %w", q.Name, err)
		}
	}

	fetchedAt := snap.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = db.now()
	}
	_, err = tx.ExecContext(ctx, `
	INSERT INTO snapshot_meta (id, document_id, fetched_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		document_id = excluded.document_id,
		fetched_at = excluded.fetched_at
	`, snap.DocumentID, formatTime(fetchedAt))
	if err != nil {
		return fmt.Errorf("failed to store snapshot metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored list in sheet order, or ErrNoSnapshot.
func (db *DB) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var (
		snap      Snapshot
		fetchedAt string
	)
	err := db.conn.QueryRowContext(ctx,
		"SELECT document_id, fetched_at FROM snapshot_meta WHERE id = 1",
	).Scan(&snap.DocumentID, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	if snap.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return Snapshot{}, err
	}

	rows, err := db.conn.QueryContext(ctx, `
	SELECT name, platform, link, topic, status, pinned
	FROM snapshot ORDER BY position
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	snap.Questions = []schema.Question{}
	for rows.Next() {
		var (
			q      schema.Question
			pinned int
		)
		if err := rows.Scan(&q.Name, &q.Platform, &q.Link, &q.Topic, &q.Status, &pinned); err != nil {
			return Snapshot{}, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Pinned = pinned != 0
		snap.Questions = append(snap.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("failed to iterate snapshot: %w", err)
	}

	return snap, nil
}

// Overrides holds the local edits keyed by question name.
type Overrides struct {
	Status map[string]string
	Pinned map[string]bool
}

// LoadOverrides returns every stored override.
func (db *DB) LoadOverrides(ctx context.Context) (Overrides, error) {
	o := Overrides{Status: map[string]string{}, Pinned: map[string]bool{}}

	rows, err := db.conn.QueryContext(ctx, "SELECT name, status FROM status_overrides")
	if err != nil {
		return o, fmt.Errorf("failed to query status overrides: %w", err)
	}
	for rows.Next() {
		var name, status string
		if err := rows.Scan(&name, &status); err != nil {
			rows.Close()
			return o, fmt.Errorf("failed to scan status override: %w", err)
		}
		o.Status[name] = status
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return o, fmt.Errorf("failed to iterate status overrides: %w", err)
	}

	rows, err = db.conn.QueryContext(ctx, "SELECT name, pinned FROM pinned_overrides")
	if err != nil {
		return o, fmt.Errorf("failed to query pinned overrides: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name   string
			pinned int
		)
		if err := rows.Scan(&name, &pinned); err != nil {
			return o, fmt.Errorf("failed to scan pinned override: %w", err)
		}
		o.Pinned[name] = pinned != 0
	}
	if err := rows.Err(); err != nil {
		return o, fmt.Errorf("failed to iterate pinned overrides: %w", err)
	}

	return o, nil
}

// SetStatusOverride stores or replaces the status override for name.
func (db *DB) SetStatusOverride(ctx context.Context, name, status string) error {
	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO status_overrides (name, status, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		status = excluded.status,
		updated_at = excluded.updated_at
	`, name, status, formatTime(db.now()))
	if err != nil {
		return fmt.Errorf("failed to store status override for %q: %w", name, err)
	}
	return nil
}

// ClearStatusOverride removes the status override for name. Idempotent.
func (db *DB) ClearStatusOverride(ctx context.Context, name string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM status_overrides WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to clear status override for %q: %w", name, err)
	}
	return nil
}

// SetPinnedOverride stores or replaces the pinned override for name.
func (db *DB) SetPinnedOverride(ctx context.Context, name string, pinned bool) error {
	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO pinned_overrides (name, pinned, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		pinned = excluded.pinned,
		updated_at = excluded.updated_at
	`, name, boolToInt(pinned), formatTime(db.now()))
	if err != nil {
		return fmt.Errorf("failed to store pinned override for %q: %w", name, err)
	}
	return nil
}

// ClearPinnedOverride removes the pinned override for name. Idempotent.
func (db *DB) ClearPinnedOverride(ctx context.Context, name string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM pinned_overrides WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to clear pinned override for %q: %w", name, err)
	}
	return nil
}

// AppendMutation journals one dispatch. A missing ID is generated.
func (db *DB) AppendMutation(ctx context.Context, m schema.Mutation) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = db.now()
	}

	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO mutation_log (id, action, name, value, method, outcome, message, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Action, m.Name, m.Value, m.Method, m.Outcome, m.Message, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to journal mutation: %w", err)
	}
	return nil
}

// ListMutations returns journal entries created at or after since, newest
// first. A zero since returns everything; limit <= 0 means no limit.
func (db *DB) ListMutations(ctx context.Context, since time.Time, limit int) ([]schema.Mutation, error) {
	query := `
	SELECT id, action, name, value, method, outcome, message, created_at
	FROM mutation_log
	WHERE created_at >= ?
	ORDER BY created_at DESC, id
	`
	args := []any{formatTime(since)}
	if since.IsZero() {
		args[0] = ""
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutation log: %w", err)
	}
	defer rows.Close()

	var out []schema.Mutation
	for rows.Next() {
		var (
			m         schema.Mutation
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.Action, &m.Name, &m.Value, &m.Method, &m.Outcome, &m.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mutation log: %w", err)
	}
	return out, nil
}
