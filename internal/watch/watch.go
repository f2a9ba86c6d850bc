// Package watch drives automatic evaluations: a periodic ticker plus an
// fsnotify watcher on the dataset file, debounced so a multi-chunk download
// triggers one evaluation instead of dozens.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/mlserve/retrain-engine/internal/coordinator"
	"github.com/mlserve/retrain-engine/internal/state"
)

// #region evaluator

// Evaluator is the slice of the coordinator the watcher needs.
type Evaluator interface {
	EvaluateAndMaybeRetrain(ctx context.Context, manual *state.ManualRequest) (coordinator.Outcome, error)
}

// #endregion evaluator

// #region watcher

// Watcher schedules automatic evaluations.
type Watcher struct {
	eval        Evaluator
	datasetPath string
	interval    time.Duration
	debounce    time.Duration
	log         *logrus.Entry
}

// New builds a watcher over the dataset path. interval is the periodic check
// cadence.
func New(eval Evaluator, datasetPath string, interval time.Duration) *Watcher {
	return &Watcher{
		eval:        eval,
		datasetPath: filepath.Clean(datasetPath),
		interval:    interval,
		debounce:    2 * time.Second,
		log:         logrus.WithField("component", "watch"),
	}
}

// Run blocks until ctx is canceled. File events on the dataset and the
// periodic tick both funnel into the same serialized evaluation path.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create dataset watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory: editors and downloaders replace files rather than
	// writing them in place, which drops inode-level watches.
	dir := filepath.Dir(w.datasetPath)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.datasetPath {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
			} else {
				debounce.Reset(w.debounce)
			}
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			w.log.Info("dataset changed, evaluating")
			w.evaluate(ctx)

		case <-ticker.C:
			w.evaluate(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("dataset watcher error")
		}
	}
}

func (w *Watcher) evaluate(ctx context.Context) {
	outcome, err := w.eval.EvaluateAndMaybeRetrain(ctx, nil)
	if err != nil {
		w.log.WithError(err).Error("scheduled evaluation failed")
		return
	}
	w.log.WithFields(logrus.Fields{
		"reason":         outcome.Decision.Reason,
		"should_retrain": outcome.Decision.ShouldRetrain,
	}).Info("scheduled evaluation")
}

// #endregion watcher
