package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DocStore persists one JSON document per key inside a data directory:
// best-effort writes, last write wins, no migrations.
type DocStore struct {
	dir string
}

// NewDocStore ensures the data directory exists.
func NewDocStore(dir string) (*DocStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &DocStore{dir: dir}, nil
}

func (s *DocStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load reads the document under key into v. A missing or unparseable
// document returns an error; callers treat that as absence and reseed.
func (s *DocStore) Load(key string, v any) error {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse document %s: %w", key, err)
	}
	return nil
}

// Save writes v as the document under key.
func (s *DocStore) Save(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write document %s: %w", key, err)
	}
	return nil
}
