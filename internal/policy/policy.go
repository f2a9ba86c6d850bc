// Package policy decides whether a retrain should fire. Evaluate is a pure
// function over the loaded state, the active config, and the fresh signals;
// all side effects belong to the coordinator.
package policy

import (
	"fmt"

	"github.com/mlserve/retrain-engine/internal/drift"
	"github.com/mlserve/retrain-engine/internal/perf"
)

// #region evaluate

// Evaluate applies the trigger rules in fixed precedence; the first matching
// rule wins. Operator intent (disabled, manual) is resolved before
// data-derived signals, and the absolute performance floor is checked before
// relative degradation, before drift: a dataset can change without the model
// getting worse, but a model below the usability floor must retrain even if
// nothing else fired.
func Evaluate(in Input) Decision {
	// 1. Master switch. The per-state operator flag, once set, wins over the
	// config-level switch. Manual requests are exempt.
	enabled := in.Config.AutoRetrainEnabled
	if in.State.AutoRetrain != nil {
		enabled = *in.State.AutoRetrain
	}
	if !enabled && in.Manual == nil {
		return Decision{Reason: ReasonBlockedDisabled, Detail: "automatic retraining is disabled"}
	}

	// 2. Frequency guard. Applies to manual requests too unless forced.
	if !in.State.LastRetrainAt.IsZero() {
		since := in.Now.Sub(in.State.LastRetrainAt)
		if since < in.Config.MinRetrainInterval.Std() && (in.Manual == nil || !in.Manual.Force) {
			return Decision{
				Reason: ReasonBlockedTooSoon,
				Detail: fmt.Sprintf("last retrain %s ago, minimum interval %s", since.Round(0), in.Config.MinRetrainInterval),
			}
		}
	}

	// 3. Manual request, after the guards above.
	if in.Manual != nil {
		return Decision{
			ShouldRetrain: true,
			Reason:        ReasonManualRequest,
			Detail:        in.Manual.Reason,
		}
	}

	monitor := perf.NewMonitor(in.State.PerformanceHistory)
	latest, hasScore := monitor.Latest()

	// 4. Absolute floor.
	if hasScore && perf.BelowMinimum(latest.Score, in.Config.MinPerformanceThreshold) {
		return Decision{
			ShouldRetrain: true,
			Reason:        ReasonBelowMinimum,
			Detail:        fmt.Sprintf("score %.3f below minimum %.3f", latest.Score, in.Config.MinPerformanceThreshold),
		}
	}

	// 5. Degradation relative to the reference score.
	if hasScore && in.State.ReferenceScore != nil &&
		perf.Degraded(latest.Score, *in.State.ReferenceScore, in.Config.DegradationThreshold) {
		return Decision{
			ShouldRetrain: true,
			Reason:        ReasonPerformanceDegraded,
			Detail: fmt.Sprintf("score dropped %.3f -> %.3f (threshold %.3f)",
				*in.State.ReferenceScore, latest.Score, in.Config.DegradationThreshold),
		}
	}

	// 6. Dataset drift.
	if drift.HasDrifted(in.CurrentFingerprint, in.State.LastDatasetFingerprint) {
		return Decision{
			ShouldRetrain: true,
			Reason:        ReasonDataDrift,
			Detail:        "dataset fingerprint changed since last training",
		}
	}

	// 7. Nothing fired.
	return Decision{Reason: ReasonNoTriggerCondition, Detail: "no retrain condition met"}
}

// #endregion evaluate
