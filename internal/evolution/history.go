package evolution

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"unified-thinking/internal/types"
)

// History is the durable record of generated LearningReports, appended one
// JSON object per line (grounded on contradiction.RecordWriter's JSONL
// append shape — §4.9's persistence pattern applies equally here since
// both are small, slowly-growing audit trails rather than queryable
// stores).
type History struct {
	mu   sync.Mutex
	path string
}

// NewHistory opens path for append; the file is created on first Append
// if absent.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Append writes report as one JSONL record.
func (h *History) Append(report *types.LearningReport) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Since returns every report generated at or after cutoff, oldest first.
func (h *History) Since(cutoff time.Time) ([]*types.LearningReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []*types.LearningReport
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var r types.LearningReport
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if !r.GeneratedAt.Before(cutoff) {
			out = append(out, &r)
		}
	}
	return out, scanner.Err()
}
