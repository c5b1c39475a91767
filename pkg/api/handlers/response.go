// Package handlers provides HTTP handlers for the DittoBox admin API.
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marmos91/dittobox/internal/logger"
)

// Response represents a standard API response wrapper.
//
// All API responses follow this structure for consistency:
//   - Status indicates the overall result ("healthy", "unhealthy", "ok", "error")
//   - Timestamp provides response time for debugging and caching
//   - Data contains the response payload (optional)
//   - Error contains error details when Status indicates failure (optional)
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
//
// Encoding is done to a buffer first so an encoding failure can still be
// reported before headers are sent.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", logger.Err(err))
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func healthyResponse(data interface{}) Response {
	return Response{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(errMsg string) Response {
	return Response{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: errMsg}
}

func okResponse(data interface{}) Response {
	return Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}

func errorResponse(errMsg string) Response {
	return Response{Status: "error", Timestamp: time.Now().UTC(), Error: errMsg}
}

// writeError writes an error envelope.
func writeError(w http.ResponseWriter, status int, errMsg string) {
	writeJSON(w, status, errorResponse(errMsg))
}
