package credentials

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// fileVersion is the only supported credentials file layout.
const fileVersion = 1

// storeFile is the on-disk layout of a FileStore.
type storeFile struct {
	Version int          `yaml:"version"`
	Station *Credentials `yaml:"station,omitempty"`
	SavedAt time.Time    `yaml:"saved_at,omitempty"`
}

// FileStore persists station credentials in a YAML file.
// Writes go through a temporary file and a rename so a crash never leaves a
// truncated file behind.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file does not need to exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the saved credentials. A missing file or an empty station entry
// is reported as found == false with a nil error.
func (s *FileStore) Load(ctx context.Context) (Credentials, bool, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, NewStorageError("failed to read credentials file", err)
	}

	var f storeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Credentials{}, false, NewParseError("failed to parse credentials file", err)
	}
	if f.Version != fileVersion {
		return Credentials{}, false, NewParseError(fmt.Sprintf("unsupported credentials file version: %d (expected %d)", f.Version, fileVersion), nil)
	}
	if f.Station == nil || f.Station.IsZero() {
		return Credentials{}, false, nil
	}

	return *f.Station, true, nil
}

// Save validates and stores credentials, replacing any previous entry.
func (s *FileStore) Save(ctx context.Context, c Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Validate(c); err != nil {
		return err
	}

	return s.write(storeFile{
		Version: fileVersion,
		Station: &c,
		SavedAt: time.Now().UTC(),
	})
}

// Clear removes the stored credentials. Clearing an empty store is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return NewStorageError("failed to remove credentials file", err)
	}
	return nil
}

func (s *FileStore) write(f storeFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return NewStorageError("failed to create credentials directory", err)
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return NewStorageError("failed to marshal credentials", err)
	}

	header := []byte("# Saved station credentials. Managed by wifiapp; do not edit while it runs.\n\n")
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return NewStorageError("failed to write temporary credentials file", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return NewStorageError("failed to save credentials file", err)
	}

	return nil
}

// MemoryStore keeps credentials in memory. It is used by tests and by the
// manager when no credentials path is configured.
type MemoryStore struct {
	mu    sync.Mutex
	creds *Credentials
	saves int
}

// NewMemoryStore creates a store, optionally pre-seeded.
func NewMemoryStore(seed *Credentials) *MemoryStore {
	s := &MemoryStore{}
	if seed != nil {
		c := *seed
		s.creds = &c
	}
	return s
}

// Load returns the stored credentials, if any.
func (s *MemoryStore) Load(ctx context.Context) (Credentials, bool, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return Credentials{}, false, nil
	}
	return *s.creds, true, nil
}

// Save validates and stores credentials.
func (s *MemoryStore) Save(ctx context.Context, c Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Validate(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &c
	s.saves++
	return nil
}

// Clear forgets the stored credentials.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

// Saves returns how many successful Save calls were made.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
