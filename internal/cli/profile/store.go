// Package profile stores named dboxctl connection profiles: which server to
// dial and which identity to use there.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	// DefaultConfigDir is the directory under the user config home.
	DefaultConfigDir = "dboxctl"
	// ConfigFileName is the name of the profiles file.
	ConfigFileName = "config.json"
	// FilePermissions for the profiles file.
	FilePermissions = 0600
	// DirPermissions for the profiles directory.
	DirPermissions = 0700
)

var (
	// ErrNoCurrentProfile indicates no profile is selected.
	ErrNoCurrentProfile = errors.New("no current profile set")
	// ErrProfileNotFound indicates the requested profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")
)

// Profile is one saved connection target.
type Profile struct {
	Server   string `json:"server"`
	Identity string `json:"identity,omitempty"`
	// API is the admin API base URL, e.g. http://localhost:8080.
	API string `json:"api,omitempty"`
}

// Config is the on-disk layout.
type Config struct {
	CurrentProfile string              `json:"current_profile"`
	Profiles       map[string]*Profile `json:"profiles"`
	DefaultOutput  string              `json:"default_output,omitempty"`
}

// Store loads and saves profiles.
type Store struct {
	path   string
	config *Config
}

// NewStore opens the profile file in the user config directory.
func NewStore() (*Store, error) {
	path, err := defaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Open opens the profile file at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read profiles: %w", err)
		}
		s.config = &Config{Profiles: make(map[string]*Profile)}
	}
	if s.config.Profiles == nil {
		s.config.Profiles = make(map[string]*Profile)
	}
	return s, nil
}

func defaultPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, DefaultConfigDir, ConfigFileName), nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	s.config = &Config{}
	return json.Unmarshal(data, s.config)
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), DirPermissions); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := json.MarshalIndent(s.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, FilePermissions)
}

// Current returns the selected profile.
func (s *Store) Current() (*Profile, error) {
	if s.config.CurrentProfile == "" {
		return nil, ErrNoCurrentProfile
	}
	return s.Get(s.config.CurrentProfile)
}

// CurrentName returns the name of the selected profile, or "".
func (s *Store) CurrentName() string {
	return s.config.CurrentProfile
}

// Get returns a profile by name.
func (s *Store) Get(name string) (*Profile, error) {
	p, ok := s.config.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, nil
}

// Names returns all profile names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.config.Profiles))
	for name := range s.config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set creates or replaces a profile. The first profile becomes current.
func (s *Store) Set(name string, p *Profile) error {
	s.config.Profiles[name] = p
	if s.config.CurrentProfile == "" {
		s.config.CurrentProfile = name
	}
	return s.save()
}

// Use selects a profile.
func (s *Store) Use(name string) error {
	if _, err := s.Get(name); err != nil {
		return err
	}
	s.config.CurrentProfile = name
	return s.save()
}

// Delete removes a profile, clearing the selection if it was current.
func (s *Store) Delete(name string) error {
	if _, err := s.Get(name); err != nil {
		return err
	}
	delete(s.config.Profiles, name)
	if s.config.CurrentProfile == name {
		s.config.CurrentProfile = ""
	}
	return s.save()
}

// DefaultOutput returns the preferred output format, or "".
func (s *Store) DefaultOutput() string {
	return s.config.DefaultOutput
}

// Path returns the profile file location.
func (s *Store) Path() string {
	return s.path
}
