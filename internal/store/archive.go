// Package store persists finished session reports. The in-memory session
// state dies with the process; the archive is what survives restarts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/baitline/baitline/internal/report"
)

// Archive is the SQLite-backed report log.
type Archive struct {
	db *sql.DB
}

// Open creates or opens the archive at dbPath. Pass ":memory:" for an
// ephemeral archive.
func Open(dbPath string) (*Archive, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
		// WAL keeps report writes from blocking the stats reads.
		dsn = dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping archive: %w", err)
	}

	a := &Archive{db: db}
	if err := a.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize archive schema: %w", err)
	}
	return a, nil
}

func (a *Archive) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS reports (
		session_id TEXT PRIMARY KEY,
		scam_detected INTEGER NOT NULL,
		scam_type TEXT NOT NULL,
		message_count INTEGER NOT NULL,
		intel_items INTEGER NOT NULL,
		payload_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	`
	if _, err := a.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save writes one report. A session reported twice keeps the latest copy.
func (a *Archive) Save(ctx context.Context, p report.Payload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	intelItems := len(p.ExtractedIntelligence.BankAccounts) +
		len(p.ExtractedIntelligence.UPIIDs) +
		len(p.ExtractedIntelligence.PhishingLinks) +
		len(p.ExtractedIntelligence.PhoneNumbers) +
		len(p.ExtractedIntelligence.SuspiciousKeywords)

	query := `
	INSERT INTO reports (session_id, scam_detected, scam_type, message_count, intel_items, payload_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		scam_detected = excluded.scam_detected,
		scam_type = excluded.scam_type,
		message_count = excluded.message_count,
		intel_items = excluded.intel_items,
		payload_json = excluded.payload_json`

	detected := 0
	if p.ScamDetected {
		detected = 1
	}
	_, err = a.db.ExecContext(ctx, query,
		p.SessionID, detected, p.ScamType, p.TotalMessagesExchanged,
		intelItems, string(payload), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// Get retrieves one archived report, or nil when absent.
func (a *Archive) Get(ctx context.Context, sessionID string) (*report.Payload, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT payload_json FROM reports WHERE session_id = ?`, sessionID)

	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan report row: %w", err)
	}

	var p report.Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode archived report: %w", err)
	}
	return &p, nil
}

// Recent returns up to limit reports, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]report.Payload, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT payload_json FROM reports ORDER BY created_at DESC, session_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent reports: %w", err)
	}
	defer rows.Close()

	var out []report.Payload
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		var p report.Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode archived report: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

// Stats summarizes the archive for the stats endpoint.
type Stats struct {
	TotalSessions   int `json:"totalSessions"`
	ScamsDetected   int `json:"scamsDetected"`
	IntelItemsTotal int `json:"intelItemsTotal"`
}

func (a *Archive) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	row := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(scam_detected), 0),
		       COALESCE(SUM(intel_items), 0)
		FROM reports`)
	if err := row.Scan(&s.TotalSessions, &s.ScamsDetected, &s.IntelItemsTotal); err != nil {
		return Stats{}, fmt.Errorf("scan stats: %w", err)
	}
	return s, nil
}

func (a *Archive) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}
