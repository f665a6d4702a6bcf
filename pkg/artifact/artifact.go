// Package artifact keeps the stage hand-off files of a compilation in
// memory and mirrors them to a host directory on demand.
package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

// MaxStoreBytes bounds the total size of all artifacts in one store.
const MaxStoreBytes = 4 << 20

// validName accepts plain file names such as tokens.txt or symbol_table.json.
var validName = regexp.MustCompile(`^[a-zA-Z0-9_]{1,32}(\.[a-zA-Z0-9]{1,4})?$`)

var (
	ErrNotFound      = errors.New("artifact not found")
	ErrInvalidName   = errors.New("invalid artifact name")
	ErrQuotaExceeded = errors.New("artifact quota exceeded")
)

type entry struct {
	data     []byte
	modified time.Time
}

// Store is an in-memory set of named artifacts. It is safe for concurrent
// use.
type Store struct {
	mu    sync.RWMutex
	files map[string]*entry
	dirty map[string]bool
	used  int
}

func NewStore() *Store {
	return &Store{
		files: make(map[string]*entry),
		dirty: make(map[string]bool),
	}
}

// Write stores a copy of data under name, replacing any previous content.
func (s *Store) Write(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validName.MatchString(name) {
		return ErrInvalidName
	}
	oldSize := 0
	if existing, ok := s.files[name]; ok {
		oldSize = len(existing.data)
	}
	if s.used-oldSize+len(data) > MaxStoreBytes {
		return ErrQuotaExceeded
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	s.files[name] = &entry{data: buf, modified: time.Now()}
	s.dirty[name] = true
	s.used += len(data) - oldSize
	return nil
}

// Read returns the content stored under name.
func (s *Store) Read(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !validName.MatchString(name) {
		return nil, ErrInvalidName
	}
	e, ok := s.files[name]
	if !ok {
		return nil, ErrNotFound
	}
	return e.data, nil
}

// Size returns the size of an artifact in bytes.
func (s *Store) Size(name string) (int, error) {
	data, err := s.Read(name)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// ModTime returns when an artifact was last written, or its file time if it
// was loaded from disk.
func (s *Store) ModTime(name string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !validName.MatchString(name) {
		return time.Time{}, ErrInvalidName
	}
	e, ok := s.files[name]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return e.modified, nil
}

// Delete removes an artifact. The next PersistTo removes it from disk too.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validName.MatchString(name) {
		return ErrInvalidName
	}
	e, ok := s.files[name]
	if !ok {
		return ErrNotFound
	}
	s.used -= len(e.data)
	delete(s.files, name)
	s.dirty[name] = true
	return nil
}

// List returns the sorted artifact names.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Used returns the number of bytes held.
func (s *Store) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

// LoadFrom reads every validly named file of dir into the store. A missing
// directory is not an error. Loaded artifacts are not dirty.
func (s *Store) LoadFrom(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !validName.MatchString(name) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if old, ok := s.files[name]; ok {
			s.used -= len(old.data)
		}
		modified := time.Now()
		if info, err := de.Info(); err == nil {
			modified = info.ModTime()
		}
		s.files[name] = &entry{data: raw, modified: modified}
		s.used += len(raw)
	}
	return nil
}

// PersistTo writes every dirty artifact to dir, creating it if needed, and
// removes deleted ones. Failed writes stay dirty. The first error is returned.
func (s *Store) PersistTo(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := make(map[string][]byte)
	var deleted []string
	for name := range s.dirty {
		if e, ok := s.files[name]; ok {
			buf := make([]byte, len(e.data))
			copy(buf, e.data)
			snapshot[name] = buf
		} else {
			deleted = append(deleted, name)
		}
		delete(s.dirty, name)
	}
	s.mu.Unlock()

	var firstErr error
	for _, name := range deleted {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	for name, data := range snapshot {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			s.mu.Lock()
			s.dirty[name] = true
			s.mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
