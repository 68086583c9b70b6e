package evolution

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
)

// AdjustmentLog persists every tuneable nudge the strategist makes, one
// JSON object per line (same shape as History; kept as a separate file
// so an operator can tail tuneable changes without the noise of every
// session's LearningReport).
type AdjustmentLog struct {
	mu   sync.Mutex
	path string
}

// NewAdjustmentLog opens path for append.
func NewAdjustmentLog(path string) *AdjustmentLog {
	return &AdjustmentLog{path: path}
}

// Append writes adj as one JSONL record.
func (l *AdjustmentLog) Append(adj *Adjustment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(adj)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Recent returns up to limit most recent adjustments, oldest first.
func (l *AdjustmentLog) Recent(limit int) ([]*Adjustment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []*Adjustment
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var a Adjustment
		if err := json.Unmarshal(scanner.Bytes(), &a); err != nil {
			continue
		}
		out = append(out, &a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
