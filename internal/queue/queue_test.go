package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"unified-thinking/internal/types"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	dir := t.TempDir()
	q, err := New(Config{
		HomeDir:             dir,
		MaxBytes:            1 << 20,
		MaxEvents:           1000,
		PrimaryLockTimeout:  20 * time.Millisecond,
		OverflowLockTimeout: 20 * time.Millisecond,
		StaleLockAfter:      time.Second,
		CompactThreshold:    1 << 10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return q
}

var eventSeq int

func mustEvent(t *testing.T, session string, kind types.EventKind) *types.Event {
	t.Helper()
	eventSeq++
	return types.NewEvent().
		Kind(kind).
		Session(session).
		Tool("Edit", nil).
		At(time.Unix(1700000000+int64(eventSeq), 0).UTC()).
		WithPayload("seq", eventSeq).
		Build()
}

func TestCaptureThenReadRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	e := mustEvent(t, "sess-1", types.EventUserPrompt)
	if err := q.Capture(e); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	got, err := q.Read(10, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Read returned %d events, want 1", len(got))
	}
	if got[0].ID != e.ID {
		t.Fatalf("Read event ID = %s, want %s", got[0].ID, e.ID)
	}
}

func TestCaptureMultipleAndReadLimit(t *testing.T) {
	q := newTestQueue(t)
	for i := 0; i < 5; i++ {
		if err := q.Capture(mustEvent(t, "sess-1", types.EventPreTool)); err != nil {
			t.Fatalf("Capture[%d]: %v", i, err)
		}
	}
	got, err := q.Read(3, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Read returned %d events, want 3", len(got))
	}
}

func TestConsumeAdvancesHeadCursor(t *testing.T) {
	q := newTestQueue(t)
	for i := 0; i < 5; i++ {
		if err := q.Capture(mustEvent(t, "sess-1", types.EventPreTool)); err != nil {
			t.Fatalf("Capture[%d]: %v", i, err)
		}
	}
	if err := q.Consume(2); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	remaining, err := q.Read(10, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(remaining) != 3 {
		t.Fatalf("Read after consume returned %d events, want 3", len(remaining))
	}
}

func TestCaptureFallsBackToOverflowWhenPrimaryLocked(t *testing.T) {
	q := newTestQueue(t)

	lockPath := q.primaryPath + ".lock"
	if err := os.WriteFile(lockPath, []byte("999:0"), 0o600); err != nil {
		t.Fatalf("seed lock file: %v", err)
	}

	e := mustEvent(t, "sess-1", types.EventUserPrompt)
	err := q.Capture(e)
	if err != ErrQueueLocked {
		t.Fatalf("Capture error = %v, want ErrQueueLocked", err)
	}

	data, err := os.ReadFile(q.overflowPath)
	if err != nil {
		t.Fatalf("read overflow: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("overflow file empty, want captured event")
	}
}

func TestCaptureDropsEventWhenBothLocksHeld(t *testing.T) {
	q := newTestQueue(t)

	if err := os.WriteFile(q.primaryPath+".lock", []byte("999:0"), 0o600); err != nil {
		t.Fatalf("seed primary lock: %v", err)
	}
	if err := os.WriteFile(q.overflowPath+".lock", []byte("999:0"), 0o600); err != nil {
		t.Fatalf("seed overflow lock: %v", err)
	}

	e := mustEvent(t, "sess-1", types.EventUserPrompt)
	err := q.Capture(e)
	if err != ErrQueueUnavailable {
		t.Fatalf("Capture error = %v, want ErrQueueUnavailable", err)
	}
}

func TestConsumeMergesOverflowIntoPrimary(t *testing.T) {
	q := newTestQueue(t)
	if err := q.Capture(mustEvent(t, "sess-1", types.EventPreTool)); err != nil {
		t.Fatalf("Capture primary: %v", err)
	}

	overflowEvent := mustEvent(t, "sess-2", types.EventPreTool)
	data, err := json.Marshal(overflowEvent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(q.overflowPath, append(data, '\n'), 0o600); err != nil {
		t.Fatalf("seed overflow: %v", err)
	}

	if err := q.Consume(0); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	all, err := q.Read(10, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Read after merge returned %d events, want 2", len(all))
	}

	overflowData, err := os.ReadFile(q.overflowPath)
	if err != nil {
		t.Fatalf("read overflow: %v", err)
	}
	if len(overflowData) != 0 {
		t.Fatalf("overflow not truncated after merge, got %d bytes", len(overflowData))
	}
}

func TestRotateIfNeededKeepsLastHalf(t *testing.T) {
	q := newTestQueue(t)
	q.cfg.MaxEvents = 4

	for i := 0; i < 8; i++ {
		if err := q.Capture(mustEvent(t, "sess-1", types.EventPreTool)); err != nil {
			t.Fatalf("Capture[%d]: %v", i, err)
		}
	}

	got, err := q.Read(100, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("after rotation Read returned %d events, want 4 (last half of 8)", len(got))
	}
}

func TestCaptureStillSucceedsAtMaxEvents(t *testing.T) {
	q := newTestQueue(t)
	q.cfg.MaxEvents = 2

	for i := 0; i < 5; i++ {
		if err := q.Capture(mustEvent(t, "sess-1", types.EventPreTool)); err != nil {
			t.Fatalf("Capture[%d]: %v", i, err)
		}
	}
	// Queue never refuses a capture outright; it rotates to make room.
	got, err := q.Read(100, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected events to survive rotation")
	}
}

func TestTailReturnsLastNOldestFirst(t *testing.T) {
	q := newTestQueue(t)
	var ids []string
	for i := 0; i < 5; i++ {
		e := mustEvent(t, "sess-1", types.EventPreTool)
		ids = append(ids, e.ID)
		if err := q.Capture(e); err != nil {
			t.Fatalf("Capture[%d]: %v", i, err)
		}
	}

	got, err := q.Tail(2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Tail returned %d events, want 2", len(got))
	}
	if got[0].ID != ids[3] || got[1].ID != ids[4] {
		t.Fatalf("Tail order = [%s %s], want last two oldest-first", got[0].ID, got[1].ID)
	}
}

func TestReadSkipsCorruptLines(t *testing.T) {
	q := newTestQueue(t)
	if err := q.Capture(mustEvent(t, "sess-1", types.EventPreTool)); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	f, err := os.OpenFile(q.primaryPath, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open primary: %v", err)
	}
	if _, err := f.WriteString("{not valid json\n"); err != nil {
		t.Fatalf("write corrupt line: %v", err)
	}
	f.Close()
	if err := q.Capture(mustEvent(t, "sess-1", types.EventPreTool)); err != nil {
		t.Fatalf("Capture second: %v", err)
	}

	got, err := q.Read(10, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Read returned %d events, want 2 (corrupt line skipped)", len(got))
	}
}

func TestDepthReflectsUnconsumedEvents(t *testing.T) {
	q := newTestQueue(t)
	for i := 0; i < 4; i++ {
		if err := q.Capture(mustEvent(t, "sess-1", types.EventPreTool)); err != nil {
			t.Fatalf("Capture[%d]: %v", i, err)
		}
	}
	d, err := q.Depth()
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if d != 4 {
		t.Fatalf("Depth = %d, want 4", d)
	}
	if err := q.Consume(1); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	d, err = q.Depth()
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if d != 3 {
		t.Fatalf("Depth after consume = %d, want 3", d)
	}
}

func TestSortByPriorityOrdersHighMediumLow(t *testing.T) {
	low := mustEvent(t, "sess-1", types.EventPreTool)
	medium := mustEvent(t, "sess-1", types.EventPostTool)
	high := mustEvent(t, "sess-1", types.EventUserPrompt)
	events := []*types.Event{low, medium, high}
	SortByPriority(events)
	if events[0] != high || events[1] != medium || events[2] != low {
		t.Fatalf("SortByPriority did not order High, Medium, Low")
	}
}

func TestQueueFilesLiveUnderHomeDir(t *testing.T) {
	q := newTestQueue(t)
	if err := q.Capture(mustEvent(t, "sess-1", types.EventUserPrompt)); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if filepath.Dir(q.primaryPath) != q.cfg.HomeDir {
		t.Fatalf("primary file not under HomeDir: %s", q.primaryPath)
	}
}
