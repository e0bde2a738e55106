// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records per-item pipeline outcomes for the current run in
// an in-memory SQLite database. Nothing is written to disk and nothing
// survives the process; the ledger exists to answer "what happened to each
// file" at the end of a batch and to export that as a report.
package ledger

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"
)

// Status classifies the final outcome of one candidate file.
type Status string

const (
	StatusRejected  Status = "rejected"
	StatusAccepted  Status = "accepted"
	StatusConverted Status = "converted"
	StatusFailed    Status = "failed"
)

// Entry is one recorded outcome.
type Entry struct {
	// Name is the candidate file's display name.
	Name string `yaml:"name"`

	// Status is the file's final outcome.
	Status Status `yaml:"status"`

	// OutputName is the derived output name, set for converted files.
	OutputName string `yaml:"output_name,omitempty"`

	// Size is the candidate size in bytes (accepted) or the encoded
	// output size (converted).
	Size int64 `yaml:"size,omitempty"`

	// Detail carries the rejection reason or failure cause.
	Detail string `yaml:"detail,omitempty"`

	// RecordedAt is when the outcome was recorded, UTC.
	RecordedAt time.Time `yaml:"recorded_at"`
}

// Summary aggregates a run's outcomes.
type Summary struct {
	Rejected  int `yaml:"rejected"`
	Accepted  int `yaml:"accepted"`
	Converted int `yaml:"converted"`
	Failed    int `yaml:"failed"`
}

// Ledger is the session-scoped outcome store.
type Ledger struct {
	db *sql.DB
}

// Open creates an in-memory ledger. The connection pool is pinned to a
// single connection because every :memory: connection is its own database.
func Open() (*Ledger, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE outcomes (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		output_name TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRejected marks a file as rejected by validation.
func (l *Ledger) RecordRejected(name, reason string) {
	l.insert(Entry{Name: name, Status: StatusRejected, Detail: reason})
}

// RecordAccepted marks a file as admitted into the batch.
func (l *Ledger) RecordAccepted(name string, size int64) {
	l.insert(Entry{Name: name, Status: StatusAccepted, Size: size})
}

// RecordConverted marks a file as successfully converted.
func (l *Ledger) RecordConverted(name, outputName string, size int) {
	l.insert(Entry{Name: name, Status: StatusConverted, OutputName: outputName, Size: int64(size)})
}

// RecordFailed marks a file whose conversion failed.
func (l *Ledger) RecordFailed(name string, err error) {
	l.insert(Entry{Name: name, Status: StatusFailed, Detail: err.Error()})
}

func (l *Ledger) insert(e Entry) {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	// Recording is advisory; a failed insert must never fail the pipeline.
	l.db.Exec(
		`INSERT INTO outcomes (name, status, output_name, size, detail, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Name, string(e.Status), e.OutputName, e.Size, e.Detail, ts,
	)
}

// Entries returns every recorded outcome in insertion order.
func (l *Ledger) Entries() ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT name, status, output_name, size, detail, recorded_at
		 FROM outcomes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status, ts string
		if err := rows.Scan(&e.Name, &status, &e.OutputName, &e.Size, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		e.Status = Status(status)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summarize counts outcomes per status.
func (l *Ledger) Summarize() (Summary, error) {
	rows, err := l.db.Query(`SELECT status, count(*) FROM outcomes GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing outcomes: %w", err)
	}
	defer rows.Close()

	var s Summary
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Summary{}, fmt.Errorf("scanning summary row: %w", err)
		}
		switch Status(status) {
		case StatusRejected:
			s.Rejected = n
		case StatusAccepted:
			s.Accepted = n
		case StatusConverted:
			s.Converted = n
		case StatusFailed:
			s.Failed = n
		}
	}
	return s, rows.Err()
}

// report is the YAML document shape written by WriteReport.
type report struct {
	Summary Summary `yaml:"summary"`
	Items   []Entry `yaml:"items"`
}

// WriteReport exports the run's outcomes as YAML.
func (l *Ledger) WriteReport(w io.Writer) error {
	entries, err := l.Entries()
	if err != nil {
		return err
	}
	summary, err := l.Summarize()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(report{Summary: summary, Items: entries})
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
