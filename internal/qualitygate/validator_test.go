package qualitygate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"unified-thinking/internal/types"
)

type fakeStore struct {
	stored []*types.Insight
	fail   bool
}

func (f *fakeStore) AddInsight(candidate *types.Insight) (bool, error) {
	if f.fail {
		return false, errors.New("disk full")
	}
	f.stored = append(f.stored, candidate)
	return true, nil
}

func TestValidateStoresCleanCandidate(t *testing.T) {
	store := &fakeStore{}
	gate := NewGate(nil, nil)
	v := NewValidator(gate, store, nil, nil, nil)

	ok, err := v.Validate(context.Background(), Candidate{
		Text:     "always validate user input before using it in a query",
		Source:   "test",
		Category: types.CategoryWisdom,
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !ok {
		t.Fatal("Validate should store a clean candidate")
	}
	if len(store.stored) != 1 {
		t.Fatalf("stored count = %d, want 1", len(store.stored))
	}
}

func TestValidateRejectsNoise(t *testing.T) {
	store := &fakeStore{}
	gate := NewGate(nil, nil)
	v := NewValidator(gate, store, nil, nil, nil)

	ok, err := v.Validate(context.Background(), Candidate{
		Text:     "## a markdown header",
		Source:   "test",
		Category: types.CategoryWisdom,
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok {
		t.Fatal("Validate should reject noise")
	}
	if len(store.stored) != 0 {
		t.Fatalf("stored count = %d, want 0", len(store.stored))
	}
}

func TestValidateFeatureGateOffBypassesRoast(t *testing.T) {
	store := &fakeStore{}
	gate := NewGate(nil, nil)
	v := NewValidator(gate, store, nil, nil, nil)
	v.FeatureEnabled = false

	ok, err := v.Validate(context.Background(), Candidate{
		Text:     "## noisy markdown header that would normally be rejected",
		Source:   "test",
		Category: types.CategoryWisdom,
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !ok {
		t.Fatal("feature-gate-off should write directly regardless of noise rules")
	}
}

func TestValidateQuarantinesOnStorageFailure(t *testing.T) {
	store := &fakeStore{fail: true}
	gate := NewGate(nil, nil)
	dir := t.TempDir()
	qw, err := NewQuarantineWriter(filepath.Join(dir, "quarantine.jsonl"))
	if err != nil {
		t.Fatalf("NewQuarantineWriter: %v", err)
	}
	v := NewValidator(gate, store, nil, qw, nil)

	ok, err := v.Validate(context.Background(), Candidate{
		Text:     "always validate user input before using it in a query",
		Source:   "test",
		Category: types.CategoryWisdom,
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok {
		t.Fatal("Validate should return false when the store write fails")
	}
}

func TestTelemetryFlushesAfterNAttempts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.json")
	tel := NewTelemetry(path, 2)

	tel.recordAttempt()
	tel.recordOutcome("stored")

	if tel.Snapshot().Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", tel.Snapshot().Attempts)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("telemetry file not flushed after 2 writes: %v", err)
	}
}
