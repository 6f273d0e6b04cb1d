// internal/presets/db.go
package presets

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colebrumley/regexlab/internal/session"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a preset is not found
var ErrNotFound = errors.New("preset not found")

// Preset is a named, saved editable record
type Preset struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	State       session.State `json:"state"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// DB wraps the SQLite database connection
type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS presets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    description TEXT,
    regex TEXT NOT NULL,
    replacement TEXT NOT NULL,
    record TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE VIRTUAL TABLE IF NOT EXISTS presets_fts USING fts5(
    name,
    description,
    regex,
    replacement,
    content='presets',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS presets_ai AFTER INSERT ON presets BEGIN
    INSERT INTO presets_fts(rowid, name, description, regex, replacement)
    VALUES (new.id, new.name, new.description, new.regex, new.replacement);
END;

CREATE TRIGGER IF NOT EXISTS presets_ad AFTER DELETE ON presets BEGIN
    INSERT INTO presets_fts(presets_fts, rowid, name, description, regex, replacement)
    VALUES ('delete', old.id, old.name, old.description, old.regex, old.replacement);
END;

CREATE TRIGGER IF NOT EXISTS presets_au AFTER UPDATE ON presets BEGIN
    INSERT INTO presets_fts(presets_fts, rowid, name, description, regex, replacement)
    VALUES ('delete', old.id, old.name, old.description, old.regex, old.replacement);
    INSERT INTO presets_fts(rowid, name, description, regex, replacement)
    VALUES (new.id, new.name, new.description, new.regex, new.replacement);
END;
`

// Open opens or creates a preset database at the given path
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Save stores st under name, replacing an existing preset of the same name,
// and returns its ID
func (d *DB) Save(name, description string, st session.State) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("preset name is required")
	}
	record, err := session.EncodeState(st)
	if err != nil {
		return 0, fmt.Errorf("encoding preset: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT INTO presets (name, description, regex, replacement, record)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			regex = excluded.regex,
			replacement = excluded.replacement,
			record = excluded.record,
			updated_at = CURRENT_TIMESTAMP`,
		name, description, st.Regex, st.Replacement, string(record),
	)
	if err != nil {
		return 0, fmt.Errorf("saving preset: %w", err)
	}

	var id int64
	if err := d.db.QueryRow("SELECT id FROM presets WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("reading preset id: %w", err)
	}
	return id, nil
}

// Search finds presets using full-text search over name, description,
// pattern and replacement
func (d *DB) Search(query string) ([]Preset, error) {
	rows, err := d.db.Query(`
		SELECT p.id, p.name, p.description, p.record, p.created_at, p.updated_at
		FROM presets p
		JOIN presets_fts fts ON p.id = fts.rowid
		WHERE presets_fts MATCH ?
		ORDER BY rank
	`, ftsQuery(query))
	if err != nil {
		return nil, fmt.Errorf("querying presets: %w", err)
	}
	return scanPresets(rows)
}

// List returns every preset ordered by name
func (d *DB) List() ([]Preset, error) {
	rows, err := d.db.Query(`
		SELECT id, name, description, record, created_at, updated_at
		FROM presets ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	return scanPresets(rows)
}

// Get returns a preset by ID or name
func (d *DB) Get(ref string) (*Preset, error) {
	rows, err := d.db.Query(`
		SELECT id, name, description, record, created_at, updated_at
		FROM presets WHERE CAST(id AS TEXT) = ? OR name = ? LIMIT 1
	`, ref, ref)
	if err != nil {
		return nil, fmt.Errorf("querying preset: %w", err)
	}
	presets, err := scanPresets(rows)
	if err != nil {
		return nil, err
	}
	if len(presets) == 0 {
		return nil, ErrNotFound
	}
	return &presets[0], nil
}

// Delete removes a preset by ID
func (d *DB) Delete(id int64) error {
	result, err := d.db.Exec("DELETE FROM presets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting preset: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPresets(rows *sql.Rows) ([]Preset, error) {
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		var p Preset
		var desc sql.NullString
		var record string
		if err := rows.Scan(&p.ID, &p.Name, &desc, &record, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning preset: %w", err)
		}
		p.Description = desc.String
		st, err := session.DecodeState([]byte(record))
		if err != nil {
			return nil, fmt.Errorf("decoding preset %s: %w", p.Name, err)
		}
		p.State = st
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// ftsQuery quotes each term so regex punctuation in a query is searched
// literally instead of being parsed as FTS5 syntax
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
