package state

import (
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadDefaultEmptyState(t *testing.T) {
	s := tempStore(t)

	st, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.LastDatasetFingerprint != "" {
		t.Fatalf("expected empty fingerprint, got %q", st.LastDatasetFingerprint)
	}
	if !st.LastRetrainAt.IsZero() {
		t.Fatal("expected zero last retrain time")
	}
	if st.ReferenceScore != nil {
		t.Fatal("expected absent reference score")
	}
	if st.AutoRetrain != nil {
		t.Fatal("expected unset auto-retrain flag")
	}
	if st.PendingManual != nil {
		t.Fatal("expected no pending request")
	}
	if len(st.PerformanceHistory) != 0 {
		t.Fatal("expected empty history")
	}
	if st.RetrainCount != 0 {
		t.Fatalf("expected zero retrain count, got %d", st.RetrainCount)
	}
}

func TestCommitRetrainAtomicUpdate(t *testing.T) {
	s := tempStore(t)
	completed := time.Now().UTC()

	err := s.CommitRetrain(RetrainResult{
		DatasetFingerprint: "fp-1",
		CompletedAt:        completed,
		Score:              0.72,
	})
	if err != nil {
		t.Fatalf("CommitRetrain: %v", err)
	}

	st, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.LastDatasetFingerprint != "fp-1" {
		t.Fatalf("expected fp-1, got %q", st.LastDatasetFingerprint)
	}
	if !st.LastRetrainAt.Equal(completed) {
		t.Fatalf("expected %v, got %v", completed, st.LastRetrainAt)
	}
	if st.ReferenceScore == nil || *st.ReferenceScore != 0.72 {
		t.Fatalf("expected reference score 0.72, got %v", st.ReferenceScore)
	}
	if len(st.PerformanceHistory) != 1 || st.PerformanceHistory[0].Score != 0.72 {
		t.Fatalf("expected history [0.72], got %v", st.PerformanceHistory)
	}
	if st.RetrainCount != 1 {
		t.Fatalf("expected retrain count 1, got %d", st.RetrainCount)
	}
}

func TestCommitRetrainReferenceFollowsLatestScore(t *testing.T) {
	s := tempStore(t)
	now := time.Now().UTC()

	// A lower second score still replaces the reference: degradation is
	// measured against the most recent model, not an all-time best.
	if err := s.CommitRetrain(RetrainResult{DatasetFingerprint: "fp-1", CompletedAt: now, Score: 0.8}); err != nil {
		t.Fatalf("CommitRetrain: %v", err)
	}
	if err := s.CommitRetrain(RetrainResult{DatasetFingerprint: "fp-2", CompletedAt: now.Add(time.Hour), Score: 0.6}); err != nil {
		t.Fatalf("CommitRetrain: %v", err)
	}

	st, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.ReferenceScore == nil || *st.ReferenceScore != 0.6 {
		t.Fatalf("expected reference score 0.6, got %v", st.ReferenceScore)
	}
	if len(st.PerformanceHistory) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(st.PerformanceHistory))
	}
	if st.PerformanceHistory[1].Score != 0.6 {
		t.Fatal("expected history most-recent-last")
	}
	if st.RetrainCount != 2 {
		t.Fatalf("expected retrain count 2, got %d", st.RetrainCount)
	}
}

func TestCommitRetrainClearsPendingRequest(t *testing.T) {
	s := tempStore(t)

	if err := s.SetPendingRequest("operator asked", time.Now()); err != nil {
		t.Fatalf("SetPendingRequest: %v", err)
	}
	st, _ := s.Load()
	if st.PendingManual == nil || st.PendingManual.Reason != "operator asked" {
		t.Fatalf("expected pending request, got %+v", st.PendingManual)
	}

	if err := s.CommitRetrain(RetrainResult{DatasetFingerprint: "fp", CompletedAt: time.Now(), Score: 0.7}); err != nil {
		t.Fatalf("CommitRetrain: %v", err)
	}
	st, _ = s.Load()
	if st.PendingManual != nil {
		t.Fatal("commit should clear the pending request")
	}
}

func TestPendingRequestOverwrites(t *testing.T) {
	s := tempStore(t)

	if err := s.SetPendingRequest("first", time.Now()); err != nil {
		t.Fatalf("SetPendingRequest: %v", err)
	}
	if err := s.SetPendingRequest("second", time.Now()); err != nil {
		t.Fatalf("SetPendingRequest: %v", err)
	}

	st, _ := s.Load()
	if st.PendingManual == nil || st.PendingManual.Reason != "second" {
		t.Fatalf("expected latest request to win, got %+v", st.PendingManual)
	}

	if err := s.ClearPendingRequest(); err != nil {
		t.Fatalf("ClearPendingRequest: %v", err)
	}
	st, _ = s.Load()
	if st.PendingManual != nil {
		t.Fatal("expected pending request cleared")
	}
}

func TestSetAutoRetrain(t *testing.T) {
	s := tempStore(t)

	if err := s.SetAutoRetrain(false); err != nil {
		t.Fatalf("SetAutoRetrain: %v", err)
	}
	st, _ := s.Load()
	if st.AutoRetrain == nil || *st.AutoRetrain {
		t.Fatalf("expected explicit false, got %v", st.AutoRetrain)
	}

	if err := s.SetAutoRetrain(true); err != nil {
		t.Fatalf("SetAutoRetrain: %v", err)
	}
	st, _ = s.Load()
	if st.AutoRetrain == nil || !*st.AutoRetrain {
		t.Fatalf("expected explicit true, got %v", st.AutoRetrain)
	}
}

func TestAttemptLogRoundTrip(t *testing.T) {
	s := tempStore(t)
	score := 0.66

	ok := Attempt{
		AttemptID:  "a-1",
		Reason:     "dataset fingerprint changed",
		Decision:   "data_drift",
		Success:    true,
		Score:      &score,
		StartedAt:  time.Now().UTC(),
		DurationMS: 1500,
	}
	failed := Attempt{
		AttemptID:  "a-2",
		Reason:     "score below minimum",
		Decision:   "below_minimum",
		Error:      "trainer exited 1",
		StartedAt:  time.Now().UTC().Add(time.Minute),
		DurationMS: 300,
	}
	if err := s.LogAttempt(ok); err != nil {
		t.Fatalf("LogAttempt: %v", err)
	}
	if err := s.LogAttempt(failed); err != nil {
		t.Fatalf("LogAttempt: %v", err)
	}

	attempts, err := s.RecentAttempts(10)
	if err != nil {
		t.Fatalf("RecentAttempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	// Newest first.
	if attempts[0].AttemptID != "a-2" {
		t.Fatalf("expected a-2 first, got %s", attempts[0].AttemptID)
	}
	if attempts[0].Success || attempts[0].Error != "trainer exited 1" {
		t.Fatalf("unexpected failed attempt row: %+v", attempts[0])
	}
	if attempts[1].Score == nil || *attempts[1].Score != 0.66 {
		t.Fatalf("expected score 0.66, got %v", attempts[1].Score)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	completed := time.Now().UTC()
	if err := s.CommitRetrain(RetrainResult{DatasetFingerprint: "fp-9", CompletedAt: completed, Score: 0.9}); err != nil {
		t.Fatalf("CommitRetrain: %v", err)
	}
	s.Close()

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	st, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if st.LastDatasetFingerprint != "fp-9" || !st.LastRetrainAt.Equal(completed) {
		t.Fatalf("state lost across reopen: %+v", st)
	}
	if len(st.PerformanceHistory) != 1 {
		t.Fatal("history lost across reopen")
	}
}
