package apiclient

import (
	"fmt"
	"net/http"
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnavailable returns true if the server is not ready.
func (e *APIError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}
