package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FilePreferenceStore keeps all preferences in a single YAML document on disk.
// Writes replace the file atomically via rename.
type FilePreferenceStore struct {
	mu     sync.Mutex
	path   string
	values map[string]map[string]string
}

// corruptSuffix is appended to a preference file that cannot be parsed.
const corruptSuffix = ".corrupt"

// NewFilePreferenceStore loads path if it exists and creates its directory otherwise.
// An unparsable file is renamed to path+".corrupt" and the store starts empty.
func NewFilePreferenceStore(path string) (*FilePreferenceStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("preference file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create preference dir: %w", err)
	}
	s := &FilePreferenceStore{path: path, values: make(map[string]map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preference file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		aside := path + corruptSuffix
		slog.Warn("preference file is corrupt, starting empty", "path", path, "moved_to", aside, "err", err)
		if err := os.Rename(path, aside); err != nil {
			return nil, fmt.Errorf("move corrupt preference file aside: %w", err)
		}
		s.values = make(map[string]map[string]string)
		return s, nil
	}
	if s.values == nil {
		s.values = make(map[string]map[string]string)
	}
	return s, nil
}

func (s *FilePreferenceStore) Get(_ context.Context, visitorID, key string) (string, bool, error) {
	visitorID, key, err := normalizeKey(visitorID, key)
	if err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[visitorID][key]
	return v, ok, nil
}

func (s *FilePreferenceStore) Set(_ context.Context, visitorID, key, value string) error {
	visitorID, key, err := normalizeKey(visitorID, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs, ok := s.values[visitorID]
	if !ok {
		prefs = make(map[string]string)
		s.values[visitorID] = prefs
	}
	prev, had := prefs[key]
	prefs[key] = value
	if err := s.flush(); err != nil {
		if had {
			prefs[key] = prev
		} else {
			delete(prefs, key)
		}
		return err
	}
	return nil
}

func (s *FilePreferenceStore) flush() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*")
	if err != nil {
		return fmt.Errorf("create temp preference file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace preference file: %w", err)
	}
	return nil
}
