package state

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-attempt

// LogAttempt writes one row to the operational retrain_attempts log. The log
// sits outside RetrainState: a failed run is visible here while the drift and
// performance baselines stay untouched.
func (s *Store) LogAttempt(a Attempt) error {
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO retrain_attempts (attempt_id, reason, decision, success, score, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AttemptID,
		a.Reason,
		a.Decision,
		boolToInt(a.Success),
		nullableFloat(a.Score),
		nullIfEmpty(a.Error),
		a.StartedAt.UTC().Format(time.RFC3339Nano),
		a.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("log attempt: %w", err)
	}
	return nil
}

// #endregion log-attempt

// #region recent-attempts

// RecentAttempts returns the most recent attempt rows, newest first.
func (s *Store) RecentAttempts(limit int) ([]Attempt, error) {
	rows, err := s.db.Query(
		`SELECT attempt_id, reason, decision, success, score, error, started_at, duration_ms
		 FROM retrain_attempts ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var success int
		var score sql.NullFloat64
		var errMsg sql.NullString
		var started string
		if err := rows.Scan(&a.AttemptID, &a.Reason, &a.Decision, &success, &score, &errMsg, &started, &a.DurationMS); err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		a.Success = success != 0
		if score.Valid {
			v := score.Float64
			a.Score = &v
		}
		if errMsg.Valid {
			a.Error = errMsg.String
		}
		a.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		out = append(out, a)
	}
	return out, rows.Err()
}

// #endregion recent-attempts

// #region helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
