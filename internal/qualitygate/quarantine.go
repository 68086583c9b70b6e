package qualitygate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// QuarantineRecord is appended when a RoastException fails open (§4.6):
// an exception in the gate never lets an unchecked insight into C3, it
// goes here instead for later replay.
type QuarantineRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Stage     string    `json:"stage"`
	Reason    string    `json:"reason"`
}

// QuarantineWriter appends quarantine records to a JSONL file.
type QuarantineWriter struct {
	path string
}

// NewQuarantineWriter creates the parent directory (if needed) and
// returns a writer for path.
func NewQuarantineWriter(path string) (*QuarantineWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &QuarantineWriter{path: path}, nil
}

// Write appends one quarantine record.
func (q *QuarantineWriter) Write(rec QuarantineRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	f, err := os.OpenFile(q.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return err
	}
	return f.Sync()
}
