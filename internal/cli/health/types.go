// Package health provides shared types for admin API health responses.
package health

// Response represents the GET /health response.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Healthy reports whether the server answered as healthy.
func (r *Response) Healthy() bool {
	return r.Status == "healthy"
}
