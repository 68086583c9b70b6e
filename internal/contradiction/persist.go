package contradiction

import (
	"encoding/json"
	"os"
	"sync"

	"unified-thinking/internal/types"
)

// RecordWriter is an append-only JSONL log of detected contradictions,
// grounded in the same shape as qualitygate's QuarantineWriter
// (internal/qualitygate/quarantine.go): a fire-and-forget diagnostic side
// channel, not a queryable store.
type RecordWriter struct {
	mu   sync.Mutex
	path string
}

// NewRecordWriter opens (creating if absent) a JSONL contradiction log.
func NewRecordWriter(path string) (*RecordWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &RecordWriter{path: path}, nil
}

// Write appends rec to the log.
func (w *RecordWriter) Write(rec *types.Contradiction) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = f.Write(line)
	return err
}
