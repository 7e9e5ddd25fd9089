package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/travel-insight/backend/internal/dataset"
)

// RecordStorage defines the interface for persisting cleaned travel records
type RecordStorage interface {
	Save(records []dataset.Record) error
	Path() string
	Close() error
}

// CSVStorage implements RecordStorage as a single UTF-8 CSV file with a
// byte-order mark, readable by dataset.Load and by spreadsheet tools.
type CSVStorage struct {
	path string
	mu   sync.Mutex
}

// NewCSVStorage creates the parent directory of path if needed
func NewCSVStorage(path string) (*CSVStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &CSVStorage{path: path}, nil
}

// Save replaces the file contents with records. The file is written to a
// temporary sibling first and renamed into place.
func (cs *CSVStorage) Save(records []dataset.Record) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(cs.path), filepath.Base(cs.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString("\ufeff"); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(dataset.Header()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(dataset.Row(rec)); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmp.Name(), cs.path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Path returns the file the records are written to
func (cs *CSVStorage) Path() string {
	return cs.path
}

// Close is a no-op for file storage
func (cs *CSVStorage) Close() error {
	return nil
}
