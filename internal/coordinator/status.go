package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/mlserve/retrain-engine/internal/config"
	"github.com/mlserve/retrain-engine/internal/perf"
)

// #region status

// Status is a read-only snapshot for monitoring endpoints. It reflects the
// last committed state plus the live in-progress flag; reading it never
// blocks on an in-flight retrain.
type Status struct {
	AutoRetrainEnabled     bool          `json:"auto_retrain_enabled"`
	Retraining             bool          `json:"retraining"`
	LastRetrainAt          *time.Time    `json:"last_retrain_at,omitempty"`
	LastDatasetFingerprint string        `json:"last_dataset_fingerprint,omitempty"`
	ReferenceScore         *float64      `json:"reference_score,omitempty"`
	RetrainCount           int           `json:"retrain_count"`
	LastCheckAt            *time.Time    `json:"last_check_at,omitempty"`
	PendingReason          string        `json:"pending_reason,omitempty"`
	PerformanceHistory     []perf.Sample `json:"performance_history"`
	Config                 config.Config `json:"config"`
}

// #endregion status

// #region snapshot

// Status returns the current snapshot. Lock-free: it reads the last
// committed state, the live retraining flag, and the active config.
func (c *Coordinator) Status() Status {
	snap := *c.snapshot.Load()
	snap.Retraining = c.retraining.Load()
	snap.Config = *c.cfg.Load()
	return snap
}

// refreshSnapshot rebuilds the status snapshot from the store. Called after
// every committed mutation, outside any reader's path.
func (c *Coordinator) refreshSnapshot() error {
	st, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	cfg := *c.cfg.Load()
	enabled := cfg.AutoRetrainEnabled
	if st.AutoRetrain != nil {
		enabled = *st.AutoRetrain
	}

	snap := Status{
		AutoRetrainEnabled:     enabled,
		LastDatasetFingerprint: st.LastDatasetFingerprint,
		ReferenceScore:         st.ReferenceScore,
		RetrainCount:           st.RetrainCount,
	}
	if !st.LastRetrainAt.IsZero() {
		t := st.LastRetrainAt
		snap.LastRetrainAt = &t
	}
	if !st.LastCheckAt.IsZero() {
		t := st.LastCheckAt
		snap.LastCheckAt = &t
	}
	if st.PendingManual != nil {
		snap.PendingReason = st.PendingManual.Reason
	}

	history := st.PerformanceHistory
	if c.historyTail > 0 && len(history) > c.historyTail {
		history = history[len(history)-c.historyTail:]
	}
	snap.PerformanceHistory = history

	c.snapshot.Store(&snap)
	return nil
}

func (c *Coordinator) refreshSnapshotLogged() {
	if err := c.refreshSnapshot(); err != nil {
		c.log.WithError(err).Warn("failed to refresh status snapshot")
	}
}

// #endregion snapshot

// #region lock

func (c *Coordinator) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for retrain lock: %w", ctx.Err())
	}
}

func (c *Coordinator) release() {
	<-c.sem
}

// #endregion lock
