package policy

import (
	"time"

	"github.com/mlserve/retrain-engine/internal/config"
	"github.com/mlserve/retrain-engine/internal/state"
)

// #region reason

// Reason is the single trigger (or blocker) a decision reports.
type Reason string

const (
	ReasonDataDrift            Reason = "data_drift"
	ReasonPerformanceDegraded  Reason = "performance_degraded"
	ReasonBelowMinimum         Reason = "below_minimum"
	ReasonManualRequest        Reason = "manual_request"
	ReasonBlockedTooSoon       Reason = "blocked_too_soon"
	ReasonBlockedDisabled      Reason = "blocked_disabled"
	ReasonNoTriggerCondition   Reason = "no_trigger_condition"
)

// Blocked reports whether the reason is a guard outcome rather than a
// trigger. A blocked decision is a valid result, not an error.
func (r Reason) Blocked() bool {
	return r == ReasonBlockedTooSoon || r == ReasonBlockedDisabled
}

// #endregion reason

// #region decision

// Decision is the ephemeral verdict of one policy evaluation. It is logged
// and returned to callers but never persisted as-is.
type Decision struct {
	ShouldRetrain bool   `json:"should_retrain"`
	Reason        Reason `json:"reason"`
	Detail        string `json:"detail,omitempty"`
}

// #endregion decision

// #region input

// Input bundles everything Evaluate needs. Evaluate is pure: same input,
// same decision.
type Input struct {
	State              state.RetrainState
	Config             config.Config
	CurrentFingerprint string
	Manual             *state.ManualRequest
	Now                time.Time
}

// #endregion input
