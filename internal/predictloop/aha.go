package predictloop

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// SurpriseRecord is one entry in the aha-tracker's JSONL log.
type SurpriseRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	InsightKey string    `json:"insight_key"`
	Reason     string    `json:"reason"`
}

// FileAhaTracker is the default AhaTracker: an append-only JSONL file,
// grounded in the same shape as qualitygate's QuarantineWriter
// (internal/qualitygate/quarantine.go) since both are fire-and-forget
// diagnostic side channels rather than a queryable store.
type FileAhaTracker struct {
	mu   sync.Mutex
	path string
}

// NewFileAhaTracker opens (creating if absent) a JSONL surprise log at path.
func NewFileAhaTracker(path string) (*FileAhaTracker, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &FileAhaTracker{path: path}, nil
}

// Surprise appends a SurpriseRecord to the log.
func (t *FileAhaTracker) Surprise(ctx context.Context, insightKey, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(SurpriseRecord{Timestamp: time.Now(), InsightKey: insightKey, Reason: reason})
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = f.Write(line)
	return err
}
