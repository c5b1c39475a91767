package sandbox

import "errors"

var (
	// ErrInvalidName is returned for identities or filenames that could
	// escape the sandbox or collide with reserved names.
	ErrInvalidName = errors.New("invalid name")

	// ErrNotFound is returned when the named file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrNotRegular is returned when a name refers to a directory, symlink
	// or other non-regular entry where a file was required.
	ErrNotRegular = errors.New("not a regular file")
)
