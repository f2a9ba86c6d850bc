package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mlserve/retrain-engine/internal/perf"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS retrain_state (
	id                       INTEGER PRIMARY KEY CHECK (id = 1),
	last_dataset_fingerprint TEXT NOT NULL DEFAULT '',
	last_retrain_at          TEXT,
	reference_score          REAL,
	auto_retrain_enabled     INTEGER,
	pending_reason           TEXT,
	pending_requested_at     TEXT,
	retrain_count            INTEGER NOT NULL DEFAULT 0,
	last_check_at            TEXT
);

CREATE TABLE IF NOT EXISTS performance_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	score       REAL NOT NULL,
	recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS retrain_attempts (
	attempt_id  TEXT PRIMARY KEY,
	reason      TEXT NOT NULL,
	decision    TEXT NOT NULL,
	success     INTEGER NOT NULL,
	score       REAL,
	error       TEXT,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL
);
`

// #endregion schema

// #region store-struct

// Store persists RetrainState in SQLite. All mutations are transactional, so
// a concurrent Load never observes a partially written state.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewStore opens a SQLite database, runs migrations, and guarantees the
// single state row exists.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO retrain_state (id) VALUES (1)`); err != nil {
		return nil, fmt.Errorf("seed state row: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region load

// Load reads the full retrain state, including the performance history
// (most-recent-last). A freshly created database yields the default empty
// state rather than an error.
func (s *Store) Load() (RetrainState, error) {
	var st RetrainState
	var lastRetrainAt, pendingReason, pendingAt, lastCheckAt sql.NullString
	var refScore sql.NullFloat64
	var autoRetrain sql.NullInt64

	err := s.db.QueryRow(
		`SELECT last_dataset_fingerprint, last_retrain_at, reference_score,
		        auto_retrain_enabled, pending_reason, pending_requested_at,
		        retrain_count, last_check_at
		 FROM retrain_state WHERE id = 1`,
	).Scan(&st.LastDatasetFingerprint, &lastRetrainAt, &refScore,
		&autoRetrain, &pendingReason, &pendingAt,
		&st.RetrainCount, &lastCheckAt)
	if err != nil {
		return RetrainState{}, fmt.Errorf("load state: %w", err)
	}

	if lastRetrainAt.Valid {
		st.LastRetrainAt, err = time.Parse(time.RFC3339Nano, lastRetrainAt.String)
		if err != nil {
			return RetrainState{}, fmt.Errorf("parse last_retrain_at: %w", err)
		}
	}
	if refScore.Valid {
		v := refScore.Float64
		st.ReferenceScore = &v
	}
	if autoRetrain.Valid {
		v := autoRetrain.Int64 != 0
		st.AutoRetrain = &v
	}
	if pendingReason.Valid {
		req := ManualRequest{Reason: pendingReason.String}
		if pendingAt.Valid {
			req.RequestedAt, _ = time.Parse(time.RFC3339Nano, pendingAt.String)
		}
		st.PendingManual = &req
	}
	if lastCheckAt.Valid {
		st.LastCheckAt, _ = time.Parse(time.RFC3339Nano, lastCheckAt.String)
	}

	st.PerformanceHistory, err = s.history()
	if err != nil {
		return RetrainState{}, err
	}
	return st, nil
}

func (s *Store) history() ([]perf.Sample, error) {
	rows, err := s.db.Query(`SELECT score, recorded_at FROM performance_history ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []perf.Sample
	for rows.Next() {
		var score float64
		var at string
		if err := rows.Scan(&score, &at); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse history timestamp: %w", err)
		}
		out = append(out, perf.Sample{Score: score, RecordedAt: ts})
	}
	return out, rows.Err()
}

// #endregion load

// #region commit-retrain

// CommitRetrain records a completed training run as one transaction: the new
// fingerprint, the completion timestamp, the appended score, the new
// reference score, and the pending-request reset all land together or not at
// all. On error nothing advances, so the caller must not treat the retrain as
// committed.
func (s *Store) CommitRetrain(res RetrainResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	completed := res.CompletedAt.UTC().Format(time.RFC3339Nano)

	_, err = tx.Exec(
		`UPDATE retrain_state SET
			last_dataset_fingerprint = ?,
			last_retrain_at = ?,
			reference_score = ?,
			retrain_count = retrain_count + 1,
			pending_reason = NULL,
			pending_requested_at = NULL
		 WHERE id = 1`,
		res.DatasetFingerprint, completed, res.Score,
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO performance_history (score, recorded_at) VALUES (?, ?)`,
		res.Score, completed,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit retrain: %w", err)
	}
	return nil
}

// #endregion commit-retrain

// #region operator-flags

// SetAutoRetrain records an explicit operator decision; once set it takes
// precedence over the config-level master switch.
func (s *Store) SetAutoRetrain(enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	if _, err := s.db.Exec(`UPDATE retrain_state SET auto_retrain_enabled = ? WHERE id = 1`, v); err != nil {
		return fmt.Errorf("set auto retrain: %w", err)
	}
	return nil
}

// SetPendingRequest records a manual retrain request for the next evaluation
// to pick up. A new request overwrites any outstanding one.
func (s *Store) SetPendingRequest(reason string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE retrain_state SET pending_reason = ?, pending_requested_at = ? WHERE id = 1`,
		reason, at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set pending request: %w", err)
	}
	return nil
}

// ClearPendingRequest removes the outstanding manual request, if any.
func (s *Store) ClearPendingRequest() error {
	_, err := s.db.Exec(
		`UPDATE retrain_state SET pending_reason = NULL, pending_requested_at = NULL WHERE id = 1`,
	)
	if err != nil {
		return fmt.Errorf("clear pending request: %w", err)
	}
	return nil
}

// TouchLastCheck records when an evaluation last ran.
func (s *Store) TouchLastCheck(at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE retrain_state SET last_check_at = ? WHERE id = 1`,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("touch last check: %w", err)
	}
	return nil
}

// #endregion operator-flags
