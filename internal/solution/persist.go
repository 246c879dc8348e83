package solution

import (
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the rendered manifest to path, creating parent directories.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("save solution: %w", err)
	}
	if err := os.WriteFile(path, []byte(m.ToDocument()), 0644); err != nil {
		return fmt.Errorf("save solution: %w", err)
	}
	return nil
}

// Load reads a solution document from disk.
func Load(path string, opts ...Option) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load solution: %w", err)
	}
	m, err := Parse(string(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("load solution %s: %w", path, err)
	}
	return m, nil
}

// InsertFile applies Insert to the document stored at path.
func InsertFile(path string, cfg Config, u Unit) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("insert into solution: %w", err)
	}
	doc, err := Insert(string(data), cfg, u)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return fmt.Errorf("insert into solution: %w", err)
	}
	return nil
}
