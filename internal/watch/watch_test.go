package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlserve/retrain-engine/internal/coordinator"
	"github.com/mlserve/retrain-engine/internal/policy"
	"github.com/mlserve/retrain-engine/internal/state"
)

type countingEvaluator struct {
	calls atomic.Int64
}

func (e *countingEvaluator) EvaluateAndMaybeRetrain(ctx context.Context, manual *state.ManualRequest) (coordinator.Outcome, error) {
	e.calls.Add(1)
	return coordinator.Outcome{
		Decision: policy.Decision{Reason: policy.ReasonNoTriggerCondition},
	}, nil
}

func TestPeriodicTickEvaluates(t *testing.T) {
	eval := &countingEvaluator{}
	w := New(eval, filepath.Join(t.TempDir(), "cleaned.csv"), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return eval.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestDatasetWriteTriggersDebouncedEvaluation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cleaned.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	eval := &countingEvaluator{}
	w := New(eval, path, time.Hour) // ticker out of the picture
	w.debounce = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx) //nolint:errcheck

	// Give the watcher time to register before mutating the file.
	time.Sleep(100 * time.Millisecond)

	// Several rapid writes should collapse into a single evaluation.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return eval.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Debounce window has long passed; the burst must not have fanned out.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int64(1), eval.calls.Load())
}

func TestEventsForOtherFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cleaned.csv")

	eval := &countingEvaluator{}
	w := New(eval, path, time.Hour)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx) //nolint:errcheck

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644))

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, int64(0), eval.calls.Load())
}
