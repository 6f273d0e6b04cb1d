// internal/state/db_test.go
package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/colebrumley/regexlab/internal/session"
)

func TestOpen_CreatesDB(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test-state.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	for _, table := range []string{"slots", "preview_history", "schema_version"} {
		var name string
		err := db.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("%s table not created: %v", table, err)
		}
	}
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "state.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestLoad_AbsentSlotReturnsDefaults(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	st, err := db.Load(DefaultSlotKey)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(st, session.DefaultState()) {
		t.Errorf("Load() = %+v, want defaults", st)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	st := session.State{
		Regex:       `<(\w+)>`,
		Flags:       "g",
		Replacement: `[{{match}}] "$1"`,
		Depth:       1,
		Sources:     []string{"<a>", "b & c", ""},
	}
	if err := db.Save("slot", st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := db.Load("slot")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, st) {
		t.Errorf("Load() = %+v, want %+v", got, st)
	}

	st.Sources = append(st.Sources, "more")
	if err := db.Save("slot", st); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	got, _ = db.Load("slot")
	if len(got.Sources) != 4 {
		t.Errorf("overwrite failed: %v", got.Sources)
	}
}

func TestLoad_MalformedRecord(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := db.SaveRaw("slot", "{broken"); err != nil {
		t.Fatal(err)
	}
	st, err := db.Load("slot")
	if err == nil {
		t.Error("expected decode error")
	}
	if !reflect.DeepEqual(st, session.DefaultState()) {
		t.Error("malformed record should load defaults")
	}
}

func TestLoad_PartialRecord(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := db.SaveRaw("slot", `{"regex":"x","sources":["only"]}`); err != nil {
		t.Fatal(err)
	}
	st, err := db.Load("slot")
	if err != nil {
		t.Fatal(err)
	}
	if st.Regex != "x" || !reflect.DeepEqual(st.Sources, []string{"only"}) {
		t.Errorf("present fields lost: %+v", st)
	}
	if st.Flags != session.DefaultState().Flags {
		t.Errorf("missing flags should default, got %q", st.Flags)
	}
}

func TestClearAndReset(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	st := session.DefaultState()
	st.Regex = "custom"
	db.Save("slot", st)
	db.Save("other", st)

	if err := db.Clear("slot"); err != nil {
		t.Fatal(err)
	}
	got, _ := db.Load("slot")
	if got.Regex != session.DefaultState().Regex {
		t.Error("Clear() did not remove the slot")
	}
	other, _ := db.Load("other")
	if other.Regex != "custom" {
		t.Error("Clear() touched another slot")
	}

	reset, err := db.Reset("other")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(reset, session.DefaultState()) {
		t.Error("Reset() should return defaults")
	}
	other, _ = db.Load("other")
	if other.Regex == "custom" {
		t.Error("Reset() did not remove the slot")
	}
}

func TestRecordPreviewAndHistory(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	now := time.Now()
	records := []PreviewRecord{
		{SlotKey: "a", Regex: "x", Flags: "g", Status: "valid", Sources: 2, Processed: 2, Matches: 3, RecordedAt: now.Add(-3 * time.Second)},
		{SlotKey: "a", Regex: "(", Flags: "g", Status: "invalid", Error: "unterminated", RecordedAt: now.Add(-2 * time.Second)},
		{SlotKey: "b", Regex: "y", Flags: "", Status: "valid", Tags: "script", RecordedAt: now.Add(-1 * time.Second)},
	}
	for _, r := range records {
		if id, err := db.RecordPreview(r); err != nil || id == 0 {
			t.Fatalf("RecordPreview() = %d, %v", id, err)
		}
	}

	got, err := db.GetHistory("a", "", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("GetHistory(a) returned %d records, want 2", len(got))
	}
	if got[0].Status != "invalid" || got[0].Error != "unterminated" {
		t.Errorf("newest record first expected, got %+v", got[0])
	}

	invalid, _ := db.GetHistory("", "invalid", 100)
	if len(invalid) != 1 {
		t.Errorf("GetHistory(invalid) returned %d, want 1", len(invalid))
	}

	limited, _ := db.GetHistory("", "", 1)
	if len(limited) != 1 || limited[0].Tags != "script" {
		t.Errorf("GetHistory(limit 1) = %+v", limited)
	}
}

func TestCleanup(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	now := time.Now()
	db.RecordPreview(PreviewRecord{SlotKey: "s", Regex: "old", Status: "valid", RecordedAt: now.Add(-100 * 24 * time.Hour)})
	db.RecordPreview(PreviewRecord{SlotKey: "s", Regex: "new", Status: "valid", RecordedAt: now.Add(-24 * time.Hour)})

	deleted, err := db.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Cleanup() deleted %d records, want 1", deleted)
	}
	remaining, _ := db.GetHistory("s", "", 10)
	if len(remaining) != 1 || remaining[0].Regex != "new" {
		t.Errorf("unexpected remaining records: %+v", remaining)
	}
}

func TestNewPreviewRecord(t *testing.T) {
	st := session.DefaultState()
	st.Replacement = "<script></script>"
	res := session.New(st, session.Options{}).Result()

	rec := NewPreviewRecord("slot", res)
	if rec.Status != "valid" || rec.Sources != 5 || rec.Processed != 3 {
		t.Errorf("NewPreviewRecord() = %+v", rec)
	}
	if rec.Matches != 3 {
		t.Errorf("Matches = %d, want 3", rec.Matches)
	}
	if rec.Tags != "script" {
		t.Errorf("Tags = %q, want script", rec.Tags)
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test-state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return db
}
