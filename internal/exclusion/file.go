package exclusion

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// SettingsFilename is the default name of the user settings file.
const SettingsFilename = "settings.toml"

// userSettings is the on-disk layout of the settings file.
type userSettings struct {
	ExcludePaths []string `toml:"exclude_paths"`
}

// File persists the exclusion set as TOML.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a settings file handle. The file is created on first save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the settings file path.
func (f *File) Path() string {
	return f.path
}

// Load reads the exclusion paths. A missing file yields an empty list.
func (f *File) Load() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var s userSettings
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if s.ExcludePaths == nil {
		s.ExcludePaths = []string{}
	}
	return s.ExcludePaths, nil
}

// Save writes the exclusion paths atomically (temp file + rename).
func (f *File) Save(paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if paths == nil {
		paths = []string{}
	}
	data, err := toml.Marshal(userSettings{ExcludePaths: paths})
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings temp file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename settings file: %w", err)
	}
	return nil
}
