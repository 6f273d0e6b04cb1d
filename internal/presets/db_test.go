// internal/presets/db_test.go
package presets

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/colebrumley/regexlab/internal/session"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "presets.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "presets.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpenDBCreatesFTSTable(t *testing.T) {
	db := openTestDB(t)

	var tableName string
	err := db.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='presets_fts'").Scan(&tableName)
	if err != nil {
		t.Errorf("presets_fts table not created: %v", err)
	}
}

func TestSaveAndGet(t *testing.T) {
	db := openTestDB(t)

	st := session.State{Regex: `(\d+)-(\d+)`, Flags: "g", Replacement: "$2-$1", Depth: 0, Sources: []string{"1-2"}}
	id, err := db.Save("swap numbers", "swap dash-separated pairs", st)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if id <= 0 {
		t.Errorf("expected positive ID, got %d", id)
	}

	byID, err := db.Get(strconv.FormatInt(id, 10))
	if err != nil {
		t.Fatalf("Get(id) error = %v", err)
	}
	if byID.Name != "swap numbers" || byID.State.Regex != st.Regex || byID.State.Replacement != st.Replacement {
		t.Errorf("unexpected preset: %+v", byID)
	}

	byName, err := db.Get("swap numbers")
	if err != nil {
		t.Fatalf("Get(name) error = %v", err)
	}
	if byName.ID != id {
		t.Errorf("Get(name) ID = %d, want %d", byName.ID, id)
	}
}

func TestSaveReplacesByName(t *testing.T) {
	db := openTestDB(t)

	first, err := db.Save("p", "", session.State{Regex: "a", Flags: "g", Sources: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.Save("p", "updated", session.State{Regex: "b", Flags: "g", Sources: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("resave changed ID: %d -> %d", first, second)
	}

	all, err := db.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].State.Regex != "b" || all[0].Description != "updated" {
		t.Errorf("List() = %+v", all)
	}
}

func TestSaveRequiresName(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Save("  ", "", session.DefaultState()); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestSearch(t *testing.T) {
	db := openTestDB(t)

	db.Save("email finder", "match email addresses", session.State{Regex: `\w+@\w+`, Flags: "g", Sources: []string{}})
	db.Save("planet", "highlight world", session.State{Regex: `\bworld\b`, Flags: "gi", Sources: []string{}})

	results, err := db.Search("email")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Name != "email finder" {
		t.Errorf("Search(email) = %+v", results)
	}

	results, err = db.Search("world")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Name != "planet" {
		t.Errorf("Search(world) = %+v", results)
	}
}

func TestSearchQuotesPunctuation(t *testing.T) {
	db := openTestDB(t)
	db.Save("planet", "", session.State{Regex: `\bworld\b`, Flags: "gi", Sources: []string{}})

	if _, err := db.Search(`\b(world`); err != nil {
		t.Errorf("Search() with regex punctuation error = %v", err)
	}
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)

	id, err := db.Save("gone", "", session.DefaultState())
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.Get("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	results, err := db.Search("gone")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("FTS index still returns deleted preset: %+v", results)
	}
}

func TestGetNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Get("99"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}
