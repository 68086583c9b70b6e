package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewRegistryUsesSchemaDefaults(t *testing.T) {
	dir := t.TempDir()
	r, vr, err := NewRegistry(DefaultSchema(), filepath.Join(dir, "baseline.json"), filepath.Join(dir, "runtime.json"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if !vr.OK() {
		t.Fatalf("unexpected warnings: %v", vr.Warnings)
	}
	if got := r.GetInt("queue", "max_events"); got != 200000 {
		t.Fatalf("queue.max_events = %d, want schema default 200000", got)
	}
	if got := r.GetBool("prediction", "auto_link"); !got {
		t.Fatal("prediction.auto_link should default true")
	}
}

func TestBaselineOverridesSchemaDefault(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "baseline.json")
	writeJSONFile(t, baseline, map[string]map[string]interface{}{
		"queue": {"max_events": 500},
	})

	r, _, err := NewRegistry(DefaultSchema(), baseline, filepath.Join(dir, "runtime.json"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := r.GetInt("queue", "max_events"); got != 1000 {
		// clamped to schema Min of 1000
		t.Fatalf("queue.max_events = %d, want clamped 1000", got)
	}
}

func TestRuntimeOverridesBaseline(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "baseline.json")
	runtime := filepath.Join(dir, "runtime.json")
	writeJSONFile(t, baseline, map[string]map[string]interface{}{
		"queue": {"max_events": 5000},
	})
	writeJSONFile(t, runtime, map[string]map[string]interface{}{
		"queue": {"max_events": 9000},
	})

	r, _, err := NewRegistry(DefaultSchema(), baseline, runtime)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := r.GetInt("queue", "max_events"); got != 9000 {
		t.Fatalf("queue.max_events = %d, want runtime override 9000", got)
	}
}

func TestEnvOverridesRuntime(t *testing.T) {
	dir := t.TempDir()
	runtime := filepath.Join(dir, "runtime.json")
	writeJSONFile(t, runtime, map[string]map[string]interface{}{
		"queue": {"max_events": 9000},
	})

	t.Setenv("SPARK_QUEUE_MAX_EVENTS", "12000")

	r, _, err := NewRegistry(DefaultSchema(), filepath.Join(dir, "baseline.json"), runtime)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := r.GetInt("queue", "max_events"); got != 12000 {
		t.Fatalf("queue.max_events = %d, want env override 12000", got)
	}
}

func TestClampingProducesWarningNotError(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "baseline.json")
	writeJSONFile(t, baseline, map[string]map[string]interface{}{
		"prediction": {"match_threshold": 5.0},
	})

	r, vr, err := NewRegistry(DefaultSchema(), baseline, filepath.Join(dir, "runtime.json"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if vr.OK() {
		t.Fatal("expected a clamp warning")
	}
	if got := r.GetFloat("prediction", "match_threshold"); got != 1.0 {
		t.Fatalf("match_threshold = %v, want clamped to 1.0", got)
	}
}

func TestEnumViolationFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "baseline.json")
	writeJSONFile(t, baseline, map[string]map[string]interface{}{
		"logging": {"level": "nonsense"},
	})

	r, vr, err := NewRegistry(DefaultSchema(), baseline, filepath.Join(dir, "runtime.json"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if vr.OK() {
		t.Fatal("expected an enum warning")
	}
	if got := r.GetString("logging", "level"); got != "info" {
		t.Fatalf("logging.level = %q, want default info", got)
	}
}

func TestReloadDispatchesOnlyChangedSections(t *testing.T) {
	dir := t.TempDir()
	runtime := filepath.Join(dir, "runtime.json")
	writeJSONFile(t, runtime, map[string]map[string]interface{}{
		"queue": {"max_events": 5000},
	})

	r, _, err := NewRegistry(DefaultSchema(), filepath.Join(dir, "baseline.json"), runtime)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	changedSections := map[string]int{}
	r.OnChange(func(section string, old, newVals map[string]interface{}) {
		changedSections[section]++
	})

	writeJSONFile(t, runtime, map[string]map[string]interface{}{
		"queue": {"max_events": 6000},
	})
	if _, err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if changedSections["queue"] != 1 {
		t.Fatalf("queue section change dispatched %d times, want 1", changedSections["queue"])
	}
	if changedSections["pipeline"] != 0 {
		t.Fatal("unchanged pipeline section should not dispatch")
	}
}

func TestReconcileStripsKeysMatchingBaseline(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "baseline.json")
	runtime := filepath.Join(dir, "runtime.json")
	writeJSONFile(t, baseline, map[string]map[string]interface{}{
		"queue": {"max_events": 5000},
	})
	writeJSONFile(t, runtime, map[string]map[string]interface{}{
		"queue": {"max_events": 5000, "max_bytes": 999999999},
	})

	r, _, err := NewRegistry(DefaultSchema(), baseline, runtime)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := r.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	data, err := os.ReadFile(runtime)
	if err != nil {
		t.Fatalf("read runtime: %v", err)
	}
	var doc map[string]map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal runtime: %v", err)
	}
	if _, ok := doc["queue"]["max_events"]; ok {
		t.Fatal("max_events should have been stripped (matches baseline)")
	}
	if _, ok := doc["queue"]["max_bytes"]; !ok {
		t.Fatal("max_bytes should remain (differs from baseline default)")
	}
}

func TestWatchPicksUpFileChange(t *testing.T) {
	dir := t.TempDir()
	runtime := filepath.Join(dir, "runtime.json")
	writeJSONFile(t, runtime, map[string]map[string]interface{}{
		"queue": {"max_events": 5000},
	})

	r, _, err := NewRegistry(DefaultSchema(), filepath.Join(dir, "baseline.json"), runtime)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Watch(ctx, 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	// Ensure the new mtime differs even on coarse filesystem clocks.
	time.Sleep(30 * time.Millisecond)
	writeJSONFile(t, runtime, map[string]map[string]interface{}{
		"queue": {"max_events": 7000},
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.GetInt("queue", "max_events") == 7000 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("Watch did not pick up runtime file change within timeout")
}

func TestMissingFilesAreEmptyLayersNotErrors(t *testing.T) {
	dir := t.TempDir()
	_, _, err := NewRegistry(DefaultSchema(), filepath.Join(dir, "missing-baseline.json"), filepath.Join(dir, "missing-runtime.json"))
	if err != nil {
		t.Fatalf("NewRegistry should tolerate missing files, got: %v", err)
	}
}

func TestSectionReturnsDeepCopy(t *testing.T) {
	dir := t.TempDir()
	r, _, err := NewRegistry(DefaultSchema(), filepath.Join(dir, "baseline.json"), filepath.Join(dir, "runtime.json"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	sec := r.Section("queue")
	sec["max_events"] = -1
	if got := r.GetInt("queue", "max_events"); got == -1 {
		t.Fatal("Section() must return a copy, mutation leaked into registry")
	}
}

func writeJSONFile(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
