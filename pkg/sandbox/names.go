package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/marmos91/dittobox/internal/protocol/frame"
	"github.com/marmos91/dittobox/internal/protocol/transfer"
)

// MaxNameLength is the longest identity or filename accepted, in bytes.
const MaxNameLength = 255

// ValidateIdentity checks that a client identity maps to exactly one
// directory directly under the storage root.
func ValidateIdentity(identity string) error {
	return validateComponent(identity)
}

// ValidateFilename checks that name addresses a single entry inside a
// sandbox. Names reserved for in-flight uploads are refused, as is any
// whitespace: requests split on it, so such a name could never be sent.
func ValidateFilename(name string) error {
	if err := validateComponent(name); err != nil {
		return err
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, transfer.TempPrefix) {
		return fmt.Errorf("%w: %q uses a reserved prefix", ErrInvalidName, name)
	}
	return nil
}

func validateComponent(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLength)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q refers to a directory", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case filepath.IsAbs(name) || filepath.VolumeName(name) != "":
		return fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	case strings.Contains(name, frame.Terminator):
		return fmt.Errorf("%w: %q contains the frame terminator", ErrInvalidName, name)
	}

	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidName, name)
		}
	}
	return nil
}
