// Package dataset abstracts the training dataset store. The engine only
// needs byte content for fingerprinting and a path to hand to the trainer.
package dataset

import (
	"fmt"
	"os"

	"github.com/mlserve/retrain-engine/internal/drift"
)

// #region store-interface

// Store provides the current training dataset.
type Store interface {
	// Fingerprint returns the content fingerprint of the current dataset.
	// A dataset that does not exist yet yields an empty fingerprint.
	Fingerprint() (string, error)
	// Path is the location handed to the training pipeline.
	Path() string
}

// #endregion store-interface

// #region file-store

// FileStore reads the dataset from a single file.
type FileStore struct {
	path string
}

// NewFileStore wraps a dataset file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Fingerprint streams the file through the drift detector's digest. A missing
// file yields an empty fingerprint, mirroring the not-yet-downloaded case.
func (s *FileStore) Fingerprint() (string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open dataset %s: %w", s.path, err)
	}
	defer f.Close()
	return drift.Fingerprint(f)
}

// Path returns the dataset file path.
func (s *FileStore) Path() string {
	return s.path
}

// #endregion file-store
