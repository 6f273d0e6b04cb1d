// internal/state/db.go
package state

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

// DefaultSlotKey names the slot used when none is configured.
const DefaultSlotKey = "regexToolState"

// PreviewRecord is one recompute in the preview history.
type PreviewRecord struct {
	ID         int64     `json:"id"`
	SlotKey    string    `json:"slot"`
	Regex      string    `json:"regex"`
	Flags      string    `json:"flags"`
	Status     string    `json:"status"` // valid, invalid
	Error      string    `json:"error,omitempty"`
	Sources    int       `json:"sources"`
	Processed  int       `json:"processed"`
	Matches    int       `json:"matches"`
	Tags       string    `json:"tags,omitempty"` // comma separated
	RecordedAt time.Time `json:"recorded_at"`
}

// DB wraps the SQLite database holding the state slots and preview history.
type DB struct {
	db *sql.DB
}

const stateSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS slots (
    key TEXT PRIMARY KEY,
    record TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS preview_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slot_key TEXT NOT NULL,
    regex TEXT NOT NULL,
    flags TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    sources INTEGER NOT NULL DEFAULT 0,
    processed INTEGER NOT NULL DEFAULT 0,
    matches INTEGER NOT NULL DEFAULT 0,
    tags TEXT,
    recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_preview_history_slot ON preview_history(slot_key);
CREATE INDEX IF NOT EXISTS idx_preview_history_status ON preview_history(status);
CREATE INDEX IF NOT EXISTS idx_preview_history_recorded ON preview_history(recorded_at);
`

// Open opens or creates a state database at the given path.
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

	if _, err := db.Exec(stateSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if count == 0 {
		db.Exec("INSERT INTO schema_version (version) VALUES (1)")
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Load reads the record in slot key. An absent slot yields the defaults
// with a nil error. A malformed record also yields the defaults, together
// with the decode error so the caller can log it.
func (d *DB) Load(key string) (session.State, error) {
	var record string
	err := d.db.QueryRow("SELECT record FROM slots WHERE key = ?", key).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return session.DefaultState(), nil
	}
	if err != nil {
		return session.DefaultState(), fmt.Errorf("reading slot %s: %w", key, err)
	}

	st, err := session.DecodeState([]byte(record))
	if err != nil {
		return st, fmt.Errorf("decoding slot %s: %w", key, err)
	}
	return st, nil
}

// Save writes st into slot key, replacing any previous record.
func (d *DB) Save(key string, st session.State) error {
	data, err := session.EncodeState(st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	_, err = d.db.Exec(`
		INSERT INTO slots (key, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		key, string(data), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", key, err)
	}
	return nil
}

// SaveRaw stores an arbitrary record string in a slot. Used to import
// records produced elsewhere.
func (d *DB) SaveRaw(key, record string) error {
	_, err := d.db.Exec(`
		INSERT INTO slots (key, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		key, record, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", key, err)
	}
	return nil
}

// Clear deletes slot key. The next Load returns the defaults.
func (d *DB) Clear(key string) error {
	if _, err := d.db.Exec("DELETE FROM slots WHERE key = ?", key); err != nil {
		return fmt.Errorf("clearing slot %s: %w", key, err)
	}
	return nil
}

// Reset clears slot key and returns the defaults the caller should reload.
func (d *DB) Reset(key string) (session.State, error) {
	if err := d.Clear(key); err != nil {
		return session.State{}, err
	}
	return session.DefaultState(), nil
}

// RecordPreview stores a preview history record and returns its ID.
func (d *DB) RecordPreview(rec PreviewRecord) (int64, error) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	result, err := d.db.Exec(`
		INSERT INTO preview_history
		(slot_key, regex, flags, status, error, sources, processed, matches, tags, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SlotKey, rec.Regex, rec.Flags, rec.Status, rec.Error,
		rec.Sources, rec.Processed, rec.Matches, rec.Tags, rec.RecordedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("recording preview: %w", err)
	}
	return result.LastInsertId()
}

// GetHistory retrieves preview history filtered by slot and/or status.
func (d *DB) GetHistory(slotKey, status string, limit int) ([]PreviewRecord, error) {
	query := "SELECT id, slot_key, regex, flags, status, error, sources, processed, matches, tags, recorded_at FROM preview_history WHERE 1=1"
	var args []any

	if slotKey != "" {
		query += " AND slot_key = ?"
		args = append(args, slotKey)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY recorded_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []PreviewRecord
	for rows.Next() {
		var r PreviewRecord
		var errStr, tags sql.NullString
		if err := rows.Scan(&r.ID, &r.SlotKey, &r.Regex, &r.Flags, &r.Status,
			&errStr, &r.Sources, &r.Processed, &r.Matches, &tags, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Error = errStr.String
		r.Tags = tags.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Cleanup removes preview records older than the given number of days.
func (d *DB) Cleanup(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result, err := d.db.Exec(
		"DELETE FROM preview_history WHERE recorded_at < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cleaning up history: %w", err)
	}
	return result.RowsAffected()
}

// NewPreviewRecord summarizes a recompute result for the history table.
func NewPreviewRecord(slotKey string, res session.Result) PreviewRecord {
	rec := PreviewRecord{
		SlotKey: slotKey,
		Regex:   res.State.Regex,
		Flags:   res.State.Flags,
		Status:  string(res.Status),
		Error:   res.Error,
		Sources: len(res.State.Sources),
		Tags:    strings.Join(res.Tags, ","),
	}
	if res.Views != nil {
		rec.Processed = res.Views.Processed
		for _, n := range res.Views.MatchCounts {
			rec.Matches += n
		}
	}
	return rec
}
