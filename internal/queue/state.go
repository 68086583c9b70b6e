package queue

import (
	"encoding/json"
	"os"
)

// state is the persisted head-cursor sidecar (§6 "state.json").
type state struct {
	HeadBytes int64 `json:"head_bytes"`
}

func loadState(path string) (*state, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &state{}, nil
	}
	if err != nil {
		return nil, err
	}
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		// Corrupt state file: start from zero rather than fail the queue.
		return &state{}, nil
	}
	return &s, nil
}

func saveState(path string, s *state) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
