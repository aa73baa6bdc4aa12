package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// PreferenceStore persists the last successfully granted external directory
// so the user is not re-prompted on every export. The preference is the only
// state shared across persist calls; it is invalidated whenever a write
// against it fails, forcing the next export to re-prompt.
type PreferenceStore interface {
	// Load returns the cached directory URI, or false if none is cached
	Load() (string, bool)
	// Save caches a freshly granted directory URI
	Save(uri string) error
	// Clear removes the cached preference. Idempotent.
	Clear() error
}

// directoryPreference is the on-disk shape of the cached grant
type directoryPreference struct {
	BackupDirectory string `json:"backup_directory"`
}

// FilePreferenceStore keeps the directory preference in a small JSON file in
// the user's config directory.
type FilePreferenceStore struct {
	mu   sync.Mutex
	path string
}

// NewFilePreferenceStore creates a preference store backed by the given file
func NewFilePreferenceStore(path string) *FilePreferenceStore {
	return &FilePreferenceStore{path: path}
}

// Load returns the cached directory URI if the preference file exists and
// parses; any read or parse failure is treated as no preference.
func (s *FilePreferenceStore) Load() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}

	var pref directoryPreference
	if err := json.Unmarshal(data, &pref); err != nil {
		return "", false
	}
	if pref.BackupDirectory == "" {
		return "", false
	}
	return pref.BackupDirectory, true
}

// Save caches the granted directory URI
func (s *FilePreferenceStore) Save(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(directoryPreference{BackupDirectory: uri}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Clear deletes the preference file
func (s *FilePreferenceStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
