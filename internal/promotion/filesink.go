package promotion

import (
	"context"
	"encoding/json"
	"os"
	"sync"
)

// FileSink is the default Sink: a single JSON document keyed by Document
// ID, mirroring the single-file-map persistence cogstore.Store uses for
// insights (internal/cogstore/store.go) — the same shape applies whether
// the keyed records are insights or promoted-doc entries.
type FileSink struct {
	mu   sync.Mutex
	path string
	docs map[string]Document
}

// OpenFileSink loads path if present, or starts empty.
func OpenFileSink(path string) (*FileSink, error) {
	s := &FileSink{path: path, docs: map[string]Document{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.docs); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) Write(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return s.persistLocked()
}

func (s *FileSink) List(ctx context.Context) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out, nil
}

func (s *FileSink) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return nil
	}
	delete(s.docs, id)
	return s.persistLocked()
}

func (s *FileSink) persistLocked() error {
	data, err := json.MarshalIndent(s.docs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
