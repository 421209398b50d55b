// Package store is the system of record for calls, analyses and the sync
// checkpoint. SQLite via the pure-Go modernc driver: the dashboard's real
// database is external, but the engine only ever talks through this
// interface.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"servicing-insights-go/internal/types"
)

const createCallsTableSQL = `
CREATE TABLE IF NOT EXISTS calls (
	call_id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL DEFAULT '',
	agent_name TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL DEFAULT '',
	duration_secs INTEGER NOT NULL DEFAULT 0,
	transcript TEXT NOT NULL,
	ticket_title TEXT NOT NULL DEFAULT '',
	ticket_body TEXT NOT NULL DEFAULT '',
	heuristic_json TEXT NOT NULL DEFAULT '',
	imported_at TEXT NOT NULL
)`

const createAnalysesTableSQL = `
CREATE TABLE IF NOT EXISTS analyses (
	call_id TEXT PRIMARY KEY,
	analysis_json TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	analyzed_at TEXT NOT NULL
)`

const createCheckpointTableSQL = `
CREATE TABLE IF NOT EXISTS sync_checkpoint (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	processed_count INTEGER NOT NULL,
	last_processed_id TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
)`

var createIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_calls_started_at ON calls(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_calls_agent_id ON calls(agent_id)`,
}

const upsertCallSQL = `
INSERT INTO calls (
	call_id, agent_id, agent_name, started_at, ended_at, duration_secs,
	transcript, ticket_title, ticket_body, heuristic_json, imported_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(call_id) DO UPDATE SET
	agent_id = excluded.agent_id,
	agent_name = excluded.agent_name,
	started_at = excluded.started_at,
	ended_at = excluded.ended_at,
	duration_secs = excluded.duration_secs,
	transcript = excluded.transcript,
	ticket_title = excluded.ticket_title,
	ticket_body = excluded.ticket_body,
	heuristic_json = excluded.heuristic_json,
	imported_at = excluded.imported_at`

const saveAnalysisSQL = `
INSERT INTO analyses (call_id, analysis_json, model, analyzed_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(call_id) DO UPDATE SET
	analysis_json = excluded.analysis_json,
	model = excluded.model,
	analyzed_at = excluded.analyzed_at`

// Checkpoint writes go through MAX() so a resumed run can never move the
// processed count backwards.
const saveCheckpointSQL = `
INSERT INTO sync_checkpoint (id, processed_count, last_processed_id, updated_at)
VALUES (1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	processed_count = MAX(sync_checkpoint.processed_count, excluded.processed_count),
	last_processed_id = excluded.last_processed_id,
	updated_at = excluded.updated_at`

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	for _, stmt := range []string{createCallsTableSQL, createAnalysesTableSQL, createCheckpointTableSQL} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	for _, stmt := range createIndexesSQL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// UpsertCall imports one record keyed by its external call ID. Re-import
// of a known ID updates in place, never duplicates. The heuristic
// analysis travels with the record so dashboards have rule-based results
// even before LLM analysis runs.
func (s *Store) UpsertCall(ctx context.Context, rec types.RawCallRecord, heuristic types.TranscriptAnalysisResult) error {
	heuristicJSON, err := json.Marshal(heuristic)
	if err != nil {
		return fmt.Errorf("marshal heuristic analysis: %w", err)
	}
	endedAt := ""
	if !rec.EndedAt.IsZero() {
		endedAt = rec.EndedAt.UTC().Format(time.RFC3339)
	}
	_, err = s.db.ExecContext(ctx, upsertCallSQL,
		rec.CallID,
		rec.AgentID,
		rec.AgentName,
		rec.StartedAt.UTC().Format(time.RFC3339),
		endedAt,
		rec.DurationSecs,
		rec.Transcript,
		rec.TicketTitle,
		rec.TicketBody,
		string(heuristicJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert call %s: %w", rec.CallID, err)
	}
	return nil
}

// FindMostRecentStart returns the latest known record start date, or
// ok=false when the store is empty.
func (s *Store) FindMostRecentStart(ctx context.Context) (time.Time, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(started_at) FROM calls`).Scan(&raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query most recent start: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, raw.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse most recent start %q: %w", raw.String, err)
	}
	return t, true, nil
}

// FindUnanalyzed filters the given IDs down to records with no LLM
// analysis row yet, preserving input order.
func (s *Store) FindUnanalyzed(ctx context.Context, ids []string) ([]types.RawCallRecord, error) {
	var out []types.RawCallRecord
	for _, id := range ids {
		rec, analyzed, err := s.loadCallIfUnanalyzed(ctx, id)
		if err != nil {
			return nil, err
		}
		if analyzed {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) loadCallIfUnanalyzed(ctx context.Context, id string) (types.RawCallRecord, bool, error) {
	const q = `
SELECT c.call_id, c.agent_id, c.agent_name, c.started_at, c.ended_at,
	c.duration_secs, c.transcript, c.ticket_title, c.ticket_body,
	a.call_id IS NOT NULL
FROM calls c
LEFT JOIN analyses a ON a.call_id = c.call_id
WHERE c.call_id = ?`

	var rec types.RawCallRecord
	var startedAt, endedAt string
	var analyzed bool
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&rec.CallID, &rec.AgentID, &rec.AgentName, &startedAt, &endedAt,
		&rec.DurationSecs, &rec.Transcript, &rec.TicketTitle, &rec.TicketBody,
		&analyzed,
	)
	if err == sql.ErrNoRows {
		// Unknown IDs are simply not candidates.
		return types.RawCallRecord{}, true, nil
	}
	if err != nil {
		return types.RawCallRecord{}, false, fmt.Errorf("load call %s: %w", id, err)
	}
	if rec.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return types.RawCallRecord{}, false, fmt.Errorf("parse started_at for %s: %w", id, err)
	}
	if endedAt != "" {
		if rec.EndedAt, err = time.Parse(time.RFC3339, endedAt); err != nil {
			return types.RawCallRecord{}, false, fmt.Errorf("parse ended_at for %s: %w", id, err)
		}
	}
	return rec, analyzed, nil
}

// SaveAnalysis persists the LLM analysis for one call.
func (s *Store) SaveAnalysis(ctx context.Context, callID string, analysis types.LLMAnalysis, model string) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = s.db.ExecContext(ctx, saveAnalysisSQL,
		callID, string(raw), model, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save analysis %s: %w", callID, err)
	}
	return nil
}

// LoadAnalysis returns the stored LLM analysis for a call, ok=false when
// none exists.
func (s *Store) LoadAnalysis(ctx context.Context, callID string) (types.LLMAnalysis, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT analysis_json FROM analyses WHERE call_id = ?`, callID).Scan(&raw)
	if err == sql.ErrNoRows {
		return types.LLMAnalysis{}, false, nil
	}
	if err != nil {
		return types.LLMAnalysis{}, false, fmt.Errorf("load analysis %s: %w", callID, err)
	}
	var out types.LLMAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return types.LLMAnalysis{}, false, fmt.Errorf("unmarshal analysis %s: %w", callID, err)
	}
	return out, true, nil
}

// FindCallsMissingAnalysis lists stored calls in [start, end] that have
// no LLM analysis yet, oldest first. Used by the backfill tool.
func (s *Store) FindCallsMissingAnalysis(ctx context.Context, start, end time.Time) ([]types.RawCallRecord, error) {
	const q = `
SELECT c.call_id, c.agent_id, c.agent_name, c.started_at, c.ended_at,
	c.duration_secs, c.transcript, c.ticket_title, c.ticket_body
FROM calls c
LEFT JOIN analyses a ON a.call_id = c.call_id
WHERE a.call_id IS NULL AND c.started_at >= ? AND c.started_at <= ?
ORDER BY c.started_at ASC`

	rows, err := s.db.QueryContext(ctx, q,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query calls missing analysis: %w", err)
	}
	defer rows.Close()

	var out []types.RawCallRecord
	for rows.Next() {
		var rec types.RawCallRecord
		var startedAt, endedAt string
		if err := rows.Scan(
			&rec.CallID, &rec.AgentID, &rec.AgentName, &startedAt, &endedAt,
			&rec.DurationSecs, &rec.Transcript, &rec.TicketTitle, &rec.TicketBody,
		); err != nil {
			return nil, fmt.Errorf("scan call row: %w", err)
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if endedAt != "" {
			if rec.EndedAt, err = time.Parse(time.RFC3339, endedAt); err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call rows: %w", err)
	}
	return out, nil
}

// LoadCheckpoint reads the persisted progress marker; ok=false when no
// run has checkpointed yet.
func (s *Store) LoadCheckpoint(ctx context.Context) (types.Checkpoint, bool, error) {
	var cp types.Checkpoint
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT processed_count, last_processed_id, updated_at FROM sync_checkpoint WHERE id = 1`).
		Scan(&cp.ProcessedCount, &cp.LastProcessedID, &updatedAt)
	if err == sql.ErrNoRows {
		return types.Checkpoint{}, false, nil
	}
	if err != nil {
		return types.Checkpoint{}, false, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp.Timestamp, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return types.Checkpoint{}, false, fmt.Errorf("parse checkpoint timestamp: %w", err)
	}
	return cp, true, nil
}

// SaveCheckpoint atomically replaces the single checkpoint row. A reader
// can never observe a half-written checkpoint: the write is one statement
// and SQLite rows are never partially visible.
func (s *Store) SaveCheckpoint(ctx context.Context, cp types.Checkpoint) error {
	ts := cp.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, saveCheckpointSQL,
		cp.ProcessedCount, cp.LastProcessedID, ts.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// CountCalls is a cheap sanity probe used by the entrypoints.
func (s *Store) CountCalls(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return n, nil
}
