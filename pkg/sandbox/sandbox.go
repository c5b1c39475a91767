// Package sandbox confines each client identity to its own directory under a
// common storage root and implements the file operations allowed inside it.
//
// Names are single path components. Anything that could step outside the
// sandbox (separators, parent references, absolute paths) is rejected before
// the filesystem is touched.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittobox/internal/protocol/transfer"
)

const dirPerm = 0755

// Root is the storage root under which sandboxes are created.
type Root struct {
	path string
}

// NewRoot ensures the storage root exists and returns a handle to it.
func NewRoot(path string) (*Root, error) {
	if path == "" {
		return nil, errors.New("storage root is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Root{path: abs}, nil
}

// Path returns the absolute storage root.
func (r *Root) Path() string {
	return r.path
}

// Open returns the sandbox for identity, creating its directory on first
// contact. Directories persist across sessions.
func (r *Root) Open(identity string) (*Sandbox, error) {
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}
	dir := filepath.Join(r.path, identity)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create sandbox for %q: %w", identity, err)
	}
	return &Sandbox{identity: identity, dir: dir}, nil
}

// Sandbox is one identity's directory.
type Sandbox struct {
	identity string
	dir      string
}

// Entry describes one item in a sandbox listing.
type Entry struct {
	Name    string    `json:"name" yaml:"name"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	IsDir   bool      `json:"is_dir,omitempty" yaml:"is_dir,omitempty"`
}

// Identity returns the identity owning the sandbox.
func (s *Sandbox) Identity() string { return s.identity }

// Dir returns the sandbox directory.
func (s *Sandbox) Dir() string { return s.dir }

// Resolve validates name and returns its path inside the sandbox.
func (s *Sandbox) Resolve(name string) (string, error) {
	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// List returns the immediate entries of the sandbox sorted by name.
// In-flight upload files are hidden.
func (s *Sandbox) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read sandbox: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if strings.HasPrefix(d.Name(), transfer.TempPrefix) {
			continue
		}
		e := Entry{Name: d.Name(), IsDir: d.IsDir()}
		if info, err := d.Info(); err == nil {
			e.Size = info.Size()
			e.ModTime = info.ModTime()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Stat describes the named entry. Like ReadablePath it does not follow
// symlinks.
func (s *Sandbox) Stat(name string) (Entry, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, notFound(name, err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotRegular, name)
	}
	return Entry{Name: name, Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}

// Remove deletes the named entry.
func (s *Sandbox) Remove(name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return notFound(name, err)
	}
	return nil
}

// ReadablePath resolves name for download. Only regular files qualify;
// symlinks are refused so they cannot lead outside the sandbox.
func (s *Sandbox) ReadablePath(name string) (string, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return "", err
	}
	info, err := os.Lstat(path)
	if err != nil {
		return "", notFound(name, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotRegular, name)
	}
	return path, nil
}

// WritablePath resolves name for upload. An existing directory with the
// same name cannot be overwritten.
func (s *Sandbox) WritablePath(name string) (string, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return "", err
	}
	if info, err := os.Lstat(path); err == nil && info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNotRegular, name)
	}
	return path, nil
}

func notFound(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}
