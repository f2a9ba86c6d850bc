package state

import (
	"time"

	"github.com/mlserve/retrain-engine/internal/perf"
)

// #region retrain-state

// RetrainState is the single durable record the engine coordinates around.
// It is loaded at the start of an evaluation and mutated only through the
// store's transactional operations.
type RetrainState struct {
	LastDatasetFingerprint string
	LastRetrainAt          time.Time // zero value means no retrain has completed
	PerformanceHistory     []perf.Sample
	ReferenceScore         *float64
	AutoRetrain            *bool // nil until an operator sets it; then it wins over config
	PendingManual          *ManualRequest
	RetrainCount           int
	LastCheckAt            time.Time // zero value means never checked
}

// #endregion retrain-state

// #region manual-request

// ManualRequest is an operator- or caller-initiated retrain request. Force
// bypasses the frequency guard; it is never persisted with a pending request.
type ManualRequest struct {
	Reason      string
	Force       bool
	RequestedAt time.Time
}

// #endregion manual-request

// #region retrain-result

// RetrainResult is what a completed training run commits: the fingerprint
// evaluated at trigger time, the completion timestamp, and the new score.
// The score also becomes the new reference (most-recent-reference policy).
type RetrainResult struct {
	DatasetFingerprint string
	CompletedAt        time.Time
	Score              float64
}

// #endregion retrain-result

// #region attempt

// Attempt is one row in the operational retrain_attempts log. Failed pipeline
// runs land here without touching RetrainState, so the next evaluation
// retries the same conditions.
type Attempt struct {
	AttemptID  string    `json:"attempt_id"`
	Reason     string    `json:"reason"`
	Decision   string    `json:"decision"`
	Success    bool      `json:"success"`
	Score      *float64  `json:"score,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// #endregion attempt
