// Package perf tracks model quality scores and the predicates the trigger
// policy applies to them. Durability of the history belongs to the state
// store; the Monitor is the in-memory view used during one evaluation.
package perf

import "time"

// #region sample

// Sample is one recorded quality score.
type Sample struct {
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// #endregion sample

// #region monitor

// Monitor holds the score history for one evaluation, most-recent-last.
type Monitor struct {
	history []Sample
}

// NewMonitor wraps an existing history, typically loaded from the state store.
func NewMonitor(history []Sample) *Monitor {
	return &Monitor{history: history}
}

// Record appends a score to the in-memory history.
func (m *Monitor) Record(score float64, at time.Time) {
	m.history = append(m.history, Sample{Score: score, RecordedAt: at})
}

// Latest returns the most recent sample, if any.
func (m *Monitor) Latest() (Sample, bool) {
	if len(m.history) == 0 {
		return Sample{}, false
	}
	return m.history[len(m.history)-1], true
}

// History returns the full in-memory history, most-recent-last.
func (m *Monitor) History() []Sample {
	return m.history
}

// #endregion monitor

// #region predicates

// Degraded reports whether the current score has dropped at least threshold
// below the reference score.
func Degraded(current, reference, threshold float64) bool {
	return reference-current >= threshold
}

// BelowMinimum reports whether the current score is under the absolute floor.
func BelowMinimum(current, minimum float64) bool {
	return current < minimum
}

// #endregion predicates
