package dto

import "time"

// ServiceInfo is returned by GET /.
type ServiceInfo struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// HealthStatus describes service liveness.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the JSON body of routing errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Path  string `json:"path"`
}
