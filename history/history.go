// Package history records connection attempts in a per-user SQLite
// database, so past sessions can be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vpndial/common"
	"vpndial/vpn"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts(
	id TEXT PRIMARY KEY,
	profile_id INTEGER NOT NULL,
	profile_name TEXT NOT NULL,
	address TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	connected_at INTEGER,
	ended_at INTEGER,
	outcome TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_attempts_started ON attempts(started_at);`

// Outcomes recorded for finished attempts. An attempt without an
// outcome is still in flight (or the process died mid-attempt).
const (
	OutcomeDisconnected = "disconnected"
	OutcomeFailed       = "failed"
)

// Entry is one recorded connection attempt.
type Entry struct {
	AttemptID   string
	ProfileID   int64
	ProfileName string
	Address     string
	StartedAt   time.Time
	ConnectedAt time.Time // zero when the dial never succeeded
	EndedAt     time.Time // zero while the attempt is open
	Outcome     string
	Detail      string
}

// Recorder consumes orchestrator state events and persists them.
// Recording is event-driven and best-effort: a write failure is logged
// and the session carries on, because losing a history row must never
// interfere with the connection itself.
type Recorder struct {
	db *sql.DB
}

// DefaultPath returns the per-user history database location, creating
// the data directory if needed.
func DefaultPath() (string, error) {
	dataDir, err := common.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, common.HistoryFileName), nil
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Recorder, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, common.WrapError(err, "cannot open history database")
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, common.WrapError(err, "cannot reach history database")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "cannot initialize history schema")
	}

	return &Recorder{db: db}, nil
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// Follow consumes events until the channel is closed. Run it on its
// own goroutine with a channel from Orchestrator.Subscribe.
func (r *Recorder) Follow(events <-chan vpn.StateEvent) {
	for ev := range events {
		r.HandleEvent(ev)
	}
}

// HandleEvent records one orchestrator transition. Dialing opens the
// attempt row; Connected stamps the dial success; Failed and Idle close
// the attempt with their outcome. Rows are keyed by the attempt ID all
// events of one connect cycle share.
func (r *Recorder) HandleEvent(ev vpn.StateEvent) {
	if ev.AttemptID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var err error
	switch ev.State {
	case vpn.StateDialing:
		if ev.Profile == nil {
			return
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO attempts(id, profile_id, profile_name, address, started_at) VALUES(?,?,?,?,?)`,
			ev.AttemptID, ev.Profile.ID, ev.Profile.Label(), ev.Profile.Address, ev.Time.Unix())
	case vpn.StateConnected:
		_, err = r.db.ExecContext(ctx,
			`UPDATE attempts SET connected_at=? WHERE id=?`,
			ev.Time.Unix(), ev.AttemptID)
	case vpn.StateFailed:
		_, err = r.db.ExecContext(ctx,
			`UPDATE attempts SET ended_at=?, outcome=?, detail=? WHERE id=? AND ended_at IS NULL`,
			ev.Time.Unix(), OutcomeFailed, ev.Message, ev.AttemptID)
	case vpn.StateIdle:
		_, err = r.db.ExecContext(ctx,
			`UPDATE attempts SET ended_at=?, outcome=? WHERE id=? AND ended_at IS NULL`,
			ev.Time.Unix(), OutcomeDisconnected, ev.AttemptID)
	}
	if err != nil {
		common.LogWarn("History: cannot record %s for attempt %s: %v", ev.State, ev.AttemptID, err)
	}
}

// Recent returns the newest n attempts, most recent first.
func (r *Recorder) Recent(n int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, profile_id, profile_name, address, started_at, connected_at, ended_at, outcome, detail
		 FROM attempts ORDER BY started_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, common.WrapError(err, "cannot query history")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started int64
		var connected, ended sql.NullInt64
		if err := rows.Scan(&e.AttemptID, &e.ProfileID, &e.ProfileName, &e.Address,
			&started, &connected, &ended, &e.Outcome, &e.Detail); err != nil {
			return nil, common.WrapError(err, "cannot scan history row")
		}
		e.StartedAt = time.Unix(started, 0)
		if connected.Valid {
			e.ConnectedAt = time.Unix(connected.Int64, 0)
		}
		if ended.Valid {
			e.EndedAt = time.Unix(ended.Int64, 0)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
