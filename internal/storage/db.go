package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"oferta/internal"
	"oferta/internal/schema"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	ddl := `
CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  domain TEXT NOT NULL,
  position INTEGER NOT NULL,
  payload TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(domain, position)
);

CREATE TABLE IF NOT EXISTS inbox (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  domain TEXT NOT NULL,
  source TEXT NOT NULL,
  inboxId INTEGER,
  filtered INTEGER NOT NULL DEFAULT 0,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  unmatchedJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(inboxId) REFERENCES inbox(id)
);
CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(ddl)
	return err
}

// LoadDataset reads the stored records of s.Domain in insertion order.
func (d *DB) LoadDataset(s *schema.Schema) (schema.Dataset, error) {
	rows, err := d.conn.Query(`SELECT position, payload FROM records WHERE domain = ? ORDER BY position ASC`, s.Domain)
	if err != nil {
		return schema.Dataset{}, err
	}
	defer rows.Close()

	out := schema.Dataset{Schema: s}
	for rows.Next() {
		var position int
		var payload string
		if err := rows.Scan(&position, &payload); err != nil {
			return schema.Dataset{}, err
		}
		rec, err := s.DecodeRecord([]byte(payload))
		if err != nil {
			return schema.Dataset{}, fmt.Errorf("%s record %d: %w", s.Domain, position, err)
		}
		out.Records = append(out.Records, rec)
	}
	return out, rows.Err()
}

// AppendRecords stores records at positions start, start+1, ...
func (d *DB) AppendRecords(domain string, start int, records []schema.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertRecords(tx, domain, start, records); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) ReplaceDataset(ds schema.Dataset) error {
	if ds.Schema == nil {
		return errors.New("replace dataset: nil schema")
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM records WHERE domain = ?`, ds.Schema.Domain); err != nil {
		return err
	}
	if err := insertRecords(tx, ds.Schema.Domain, 0, ds.Records); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRecords(tx *sql.Tx, domain string, start int, records []schema.Record) error {
	stmt, err := tx.Prepare(`INSERT INTO records (domain, position, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(domain, start+i, string(payload)); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) ClearDataset(domain string) error {
	_, err := d.conn.Exec(`DELETE FROM records WHERE domain = ?`, domain)
	return err
}

func (d *DB) CountRecords(domain string) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM records WHERE domain = ?`, domain).Scan(&n)
	return n, err
}

func (d *DB) UpsertInbox(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.InboxRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO inbox (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.InboxRow{}, err
	}

	row, err := d.GetInboxByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.InboxRow{}, err
	}
	if row == nil {
		return internal.InboxRow{}, errors.New("failed to upsert inbox message")
	}
	return *row, nil
}

func (d *DB) GetInboxByProviderMessageID(provider, messageID string) (*internal.InboxRow, error) {
	var row internal.InboxRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM inbox WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustInboxByProviderMessageID(provider, messageID string) (internal.InboxRow, error) {
	row, err := d.GetInboxByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.InboxRow{}, err
	}
	if row == nil {
		return internal.InboxRow{}, fmt.Errorf("message not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListInboxByStatus(status string, limit int) ([]internal.InboxRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM inbox WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.InboxRow
	for rows.Next() {
		var row internal.InboxRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateInboxStatus(inboxID int, status string) error {
	_, err := d.conn.Exec(`UPDATE inbox SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, inboxID)
	return err
}

// InsertRun records one import. inboxID is 0 for imports that did not
// come from mail.
func (d *DB) InsertRun(report internal.ImportReport, inboxID int, timings map[string]float64) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(report.Merge)
	unmatched := report.Unmatched
	if unmatched == nil {
		unmatched = []string{}
	}
	unmatchedJSON, _ := json.Marshal(unmatched)

	var inbox any
	if inboxID > 0 {
		inbox = inboxID
	}
	_, err := d.conn.Exec(`
INSERT INTO runs (traceId, domain, source, inboxId, filtered, timingsJson, countsJson, unmatchedJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, report.TraceID, string(report.Domain), report.Source, inbox, report.Filtered, string(timingsJSON), string(countsJSON), string(unmatchedJSON))
	return err
}

// ListRuns returns the latest runs first; an empty domain lists all.
func (d *DB) ListRuns(domain string, limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, domain, source, filtered, countsJson, unmatchedJson, createdAt
FROM runs WHERE (? = '' OR domain = ?) ORDER BY id DESC LIMIT ?
`, domain, domain, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var countsJSON, unmatchedJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &row.Domain, &row.Source, &row.Filtered, &countsJSON, &unmatchedJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		_ = json.Unmarshal([]byte(unmatchedJSON), &row.Unmatched)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
