// Package coordinator owns the retraining critical section. It is the only
// component that mutates shared state: evaluation, pipeline invocation, and
// the commit all happen under one lock, so at most one retrain is ever in
// flight.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mlserve/retrain-engine/internal/config"
	"github.com/mlserve/retrain-engine/internal/dataset"
	"github.com/mlserve/retrain-engine/internal/pipeline"
	"github.com/mlserve/retrain-engine/internal/policy"
	"github.com/mlserve/retrain-engine/internal/state"
)

// ErrPersistence marks state store failures. The evaluation aborts with no
// partial state committed; the caller should retry.
var ErrPersistence = errors.New("state persistence")

// #region coordinator-struct

// Coordinator serializes evaluate/trigger requests against a single retrain
// state. Requests block FIFO on the lock; Status and Config never do.
type Coordinator struct {
	store *state.Store
	data  dataset.Store
	pipe  pipeline.Pipeline
	probe *pipeline.HealthProbe

	sem chan struct{} // capacity 1; ownership can be handed to the commit goroutine

	cfg        atomic.Pointer[config.Config]
	snapshot   atomic.Pointer[Status]
	retraining atomic.Bool

	historyTail int
	now         func() time.Time
	log         *logrus.Entry
}

// Option tweaks coordinator construction.
type Option func(*Coordinator)

// WithHealthProbe checks the trainer sidecar's readiness before dispatching
// a retrain.
func WithHealthProbe(p *pipeline.HealthProbe) Option {
	return func(c *Coordinator) { c.probe = p }
}

// WithHistoryTail bounds the performance history exposed by Status.
func WithHistoryTail(n int) Option {
	return func(c *Coordinator) { c.historyTail = n }
}

// #endregion coordinator-struct

// #region constructor

// New wires a coordinator around the store, dataset, and pipeline. The
// initial config must validate; the initial status snapshot is taken from
// the store.
func New(store *state.Store, data dataset.Store, pipe pipeline.Pipeline, cfg config.Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Coordinator{
		store:       store,
		data:        data,
		pipe:        pipe,
		sem:         make(chan struct{}, 1),
		historyTail: 20,
		now:         time.Now,
		log:         logrus.WithField("component", "coordinator"),
	}
	c.cfg.Store(&cfg)
	for _, opt := range opts {
		opt(c)
	}
	if err := c.refreshSnapshot(); err != nil {
		return nil, err
	}
	return c, nil
}

// #endregion constructor

// #region outcome

// Outcome is the result of one evaluation. NewScore is set only when a
// retrain ran and committed.
type Outcome struct {
	Decision policy.Decision `json:"decision"`
	NewScore *float64        `json:"new_score,omitempty"`
}

// #endregion outcome

// #region evaluate

// EvaluateAndMaybeRetrain runs one serialized evaluation. With manual == nil
// this is the automatic path; an outstanding pending request, if any, is
// picked up as the manual signal. When the policy says retrain, the pipeline
// runs inside the critical section and the result commits atomically.
//
// If ctx expires while waiting for the lock, the call returns the context
// error and nothing happened. If ctx expires while the pipeline is running,
// the call returns early with the context error but the run continues and
// its outcome is still committed; the caller must re-query Status.
func (c *Coordinator) EvaluateAndMaybeRetrain(ctx context.Context, manual *state.ManualRequest) (Outcome, error) {
	if err := c.acquire(ctx); err != nil {
		return Outcome{}, err
	}
	handoff := false
	defer func() {
		if !handoff {
			c.release()
		}
	}()

	cfg := *c.cfg.Load()
	now := c.now()

	st, err := c.store.Load()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := c.store.TouchLastCheck(now); err != nil {
		c.log.WithError(err).Warn("failed to record check time")
	}

	fingerprint, err := c.data.Fingerprint()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	fromPending := false
	if manual == nil && st.PendingManual != nil {
		manual = st.PendingManual
		fromPending = true
	}

	decision := policy.Evaluate(policy.Input{
		State:              st,
		Config:             cfg,
		CurrentFingerprint: fingerprint,
		Manual:             manual,
		Now:                now,
	})

	c.log.WithFields(logrus.Fields{
		"reason":         decision.Reason,
		"should_retrain": decision.ShouldRetrain,
		"detail":         decision.Detail,
	}).Info("evaluation decision")

	if !decision.ShouldRetrain {
		// A pending request survives a frequency-guard block so the next
		// tick retries it; any other terminal decision consumes it.
		if fromPending && decision.Reason != policy.ReasonBlockedTooSoon {
			if err := c.store.ClearPendingRequest(); err != nil {
				c.log.WithError(err).Warn("failed to clear pending request")
			}
		}
		c.refreshSnapshotLogged()
		return Outcome{Decision: decision}, nil
	}

	c.retraining.Store(true)
	runCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if t := cfg.PipelineTimeout.Std(); t > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, t)
	}

	type runOutcome struct {
		outcome Outcome
		err     error
	}
	done := make(chan runOutcome, 1)

	// The goroutine owns the lock from here; it releases after the commit
	// lands, even if the caller has gone away.
	handoff = true
	go func() {
		defer c.release()
		defer c.retraining.Store(false)
		defer cancel()
		out, err := c.runAndCommit(runCtx, decision, fingerprint)
		done <- runOutcome{outcome: out, err: err}
	}()

	select {
	case r := <-done:
		return r.outcome, r.err
	case <-ctx.Done():
		return Outcome{Decision: decision}, fmt.Errorf("retrain still in progress: %w", ctx.Err())
	}
}

// #endregion evaluate

// #region run-and-commit

// runAndCommit invokes the pipeline and commits the result. Failed runs are
// recorded in the attempt log only: fingerprint, timestamp, and baselines
// stay untouched so the same condition fires again next evaluation.
func (c *Coordinator) runAndCommit(ctx context.Context, decision policy.Decision, fingerprint string) (Outcome, error) {
	start := c.now()
	attempt := state.Attempt{
		AttemptID: uuid.New().String(),
		Reason:    decision.Detail,
		Decision:  string(decision.Reason),
		StartedAt: start,
	}

	if c.probe != nil {
		if err := c.probe.Ready(ctx); err != nil {
			attempt.Error = err.Error()
			c.logAttempt(attempt)
			c.log.WithError(err).Error("trainer not ready")
			return Outcome{Decision: decision}, err
		}
	}

	res, err := c.pipe.Run(ctx, c.data.Path())
	attempt.DurationMS = c.now().Sub(start).Milliseconds()
	if err != nil {
		attempt.Error = err.Error()
		c.logAttempt(attempt)
		c.log.WithError(err).Error("training pipeline failed")
		return Outcome{Decision: decision}, err
	}

	if err := c.store.CommitRetrain(state.RetrainResult{
		DatasetFingerprint: fingerprint,
		CompletedAt:        c.now(),
		Score:              res.Score,
	}); err != nil {
		attempt.Error = fmt.Sprintf("commit: %v", err)
		c.logAttempt(attempt)
		return Outcome{Decision: decision}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	attempt.Success = true
	attempt.Score = &res.Score
	c.logAttempt(attempt)
	c.refreshSnapshotLogged()

	c.log.WithFields(logrus.Fields{
		"score":         res.Score,
		"model_version": res.ModelVersion,
		"duration_ms":   attempt.DurationMS,
	}).Info("retrain committed")

	return Outcome{Decision: decision, NewScore: &res.Score}, nil
}

func (c *Coordinator) logAttempt(a state.Attempt) {
	if err := c.store.LogAttempt(a); err != nil {
		c.log.WithError(err).Warn("failed to log attempt")
	}
}

// #endregion run-and-commit

// #region operator-ops

// Enqueue records a manual retrain request for the next evaluation to pick
// up. A new request overwrites any outstanding one; it never queues.
func (c *Coordinator) Enqueue(reason string) error {
	if err := c.store.SetPendingRequest(reason, c.now()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	c.refreshSnapshotLogged()
	return nil
}

// Attempts returns the most recent rows of the operational attempt log,
// newest first.
func (c *Coordinator) Attempts(limit int) ([]state.Attempt, error) {
	attempts, err := c.store.RecentAttempts(limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return attempts, nil
}

// SetAutoRetrain records an explicit operator switch; it takes precedence
// over the config-level master switch.
func (c *Coordinator) SetAutoRetrain(enabled bool) error {
	if err := c.store.SetAutoRetrain(enabled); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	c.refreshSnapshotLogged()
	return nil
}

// #endregion operator-ops

// #region config-ops

// Config returns the active retraining policy. Lock-free.
func (c *Coordinator) Config() config.Config {
	return *c.cfg.Load()
}

// UpdateConfig applies a validated, immutable config swap. In-flight
// evaluations keep the config they started with.
func (c *Coordinator) UpdateConfig(o config.Overrides) (config.Config, error) {
	next, err := c.cfg.Load().Apply(o)
	if err != nil {
		return config.Config{}, err
	}
	c.cfg.Store(&next)
	c.log.WithField("config", next).Info("retrain config updated")
	return next, nil
}

// #endregion config-ops
