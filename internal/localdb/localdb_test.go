package localdb

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/dsadash/dsadash/internal/schema"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_CreatesTables(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"snapshot", "snapshot_meta", "status_overrides", "pinned_overrides", "settings", "mutation_log"} {
		var count int
		err := db.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}

	if err := db.InitSchema(); err != nil {
		t.Errorf("second InitSchema() failed: %v", err)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.LoadSnapshot(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("LoadSnapshot() on empty db = %v, want ErrNoSnapshot", err)
	}

	want := Snapshot{
		DocumentID: "doc1",
		FetchedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Questions: []schema.Question{
			{Name: "B", Platform: "LeetCode", Link: "#", Topic: "Graphs", Status: "Pending", Pinned: true},
			{Name: "A", Platform: "Other", Link: "#", Topic: "Arrays", Status: "Solved"},
		},
	}
	if err := db.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	got, err := db.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot() failed: %v", err)
	}
	if got.DocumentID != want.DocumentID || !got.FetchedAt.Equal(want.FetchedAt) {
		t.Errorf("metadata = %q %v, want %q %v", got.DocumentID, got.FetchedAt, want.DocumentID, want.FetchedAt)
	}
	if !reflect.DeepEqual(got.Questions, want.Questions) {
		t.Errorf("questions = %+v, want %+v", got.Questions, want.Questions)
	}

	// A second save replaces the list.
	want.Questions = want.Questions[:1]
	if err := db.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	got, _ = db.LoadSnapshot(ctx)
	if len(got.Questions) != 1 {
		t.Errorf("got %d questions after replace, want 1", len(got.Questions))
	}
}

func TestOverrides(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.SetStatusOverride(ctx, "A", "Solved"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetStatusOverride(ctx, "A", "Pending"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetPinnedOverride(ctx, "B", true); err != nil {
		t.Fatal(err)
	}
	if err := db.SetPinnedOverride(ctx, "C", false); err != nil {
		t.Fatal(err)
	}

	o, err := db.LoadOverrides(ctx)
	if err != nil {
		t.Fatalf("LoadOverrides() failed: %v", err)
	}
	if o.Status["A"] != "Pending" || len(o.Status) != 1 {
		t.Errorf("status overrides = %v", o.Status)
	}
	if pinned, ok := o.Pinned["C"]; !ok || pinned {
		t.Errorf("pinned override for C = %v, %v; want explicit false", pinned, ok)
	}

	if err := db.ClearStatusOverride(ctx, "A"); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearPinnedOverride(ctx, "B"); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearPinnedOverride(ctx, "missing"); err != nil {
		t.Errorf("clearing a missing override should succeed: %v", err)
	}

	o, _ = db.LoadOverrides(ctx)
	if len(o.Status) != 0 || len(o.Pinned) != 1 {
		t.Errorf("overrides after clear = %+v", o)
	}
}

func TestSettings_Expiry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return now }

	if err := db.SetSetting(ctx, SettingSheetURL, "https://docs.google.com/spreadsheets/d/abc/edit", SettingTTL); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSetting(ctx, "forever", "x", 0); err != nil {
		t.Fatal(err)
	}

	if v, ok, err := db.Setting(ctx, SettingSheetURL); err != nil || !ok || v == "" {
		t.Fatalf("Setting() = %q, %v, %v", v, ok, err)
	}

	now = now.Add(SettingTTL)
	if _, ok, err := db.Setting(ctx, SettingSheetURL); err != nil || ok {
		t.Errorf("expired setting should be absent, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := db.Setting(ctx, "forever"); !ok {
		t.Error("setting without ttl should never expire")
	}
	if _, ok, _ := db.Setting(ctx, "unknown"); ok {
		t.Error("unknown setting should be absent")
	}
}

func TestMutationLog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"A", "B", "C"} {
		err := db.AppendMutation(ctx, schema.Mutation{
			Action:    "updateStatus",
			Name:      name,
			Value:     "Solved",
			Method:    "local",
			Outcome:   "remote_skipped",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("AppendMutation() failed: %v", err)
		}
	}

	all, err := db.ListMutations(ctx, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListMutations() failed: %v", err)
	}
	if len(all) != 3 || all[0].Name != "C" || all[2].Name != "A" {
		t.Fatalf("ListMutations() order = %+v, want newest first", all)
	}
	if all[0].ID == "" {
		t.Error("AppendMutation should assign an id")
	}

	recent, _ := db.ListMutations(ctx, base.Add(90*time.Minute), 0)
	if len(recent) != 1 || recent[0].Name != "C" {
		t.Errorf("ListMutations(since) = %+v", recent)
	}

	limited, _ := db.ListMutations(ctx, time.Time{}, 2)
	if len(limited) != 2 {
		t.Errorf("ListMutations(limit 2) returned %d", len(limited))
	}
}
