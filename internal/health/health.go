// Package health provides component health checks and their HTTP endpoints.
package health

import "time"

// SystemStatus represents the health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name      string       `json:"name"`
	Status    SystemStatus `json:"status"`
	ErrorRate float64      `json:"error_rate,omitempty"`
	LatencyMS int64        `json:"latency_ms,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Report contains the full health report.
type Report struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Components   map[string]ComponentHealth `json:"components"`
	CheckedAt    time.Time                  `json:"checked_at"`
}

// worst aggregates component statuses; the worst one wins.
func worst(components map[string]ComponentHealth) SystemStatus {
	status := StatusHealthy
	for _, c := range components {
		if c.Status == StatusCritical {
			return StatusCritical
		}
		if c.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}
