package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/dittobox/pkg/sandbox"
)

var (
	// ErrFileNotExist is returned by Info for a file the server does not have.
	ErrFileNotExist = errors.New("file does not exist")

	// ErrClosed is returned after Quit, Close, or a transfer failure that
	// left the stream unusable.
	ErrClosed = errors.New("connection closed")

	// ErrLocalFile wraps failures to read the local side of a PUT. Nothing
	// was sent and the session is still usable.
	ErrLocalFile = errors.New("local file")

	// ErrInvalidName is returned, before anything is sent, for a remote
	// name the server could not address.
	ErrInvalidName = sandbox.ErrInvalidName

	// ErrTransferCommand is returned by Do for GET and PUT, which need the
	// binary channel.
	ErrTransferCommand = errors.New("GET and PUT must use Get and Put")
)

// ResponseError is a failure reported by the server in a response frame.
type ResponseError struct {
	Command string
	Message string
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, strings.TrimSuffix(e.Message, "\n"))
}
