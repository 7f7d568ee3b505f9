// Package health provides run health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/harvester/internal/harvesting/harvester"
	"github.com/vietddude/harvester/internal/infra/oai"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// HealthReport contains the full health report of a run.
type HealthReport struct {
	SystemStatus      SystemStatus      `json:"system_status"`
	Run               harvester.Status  `json:"run"`
	Transport         *oai.HealthStatus `json:"transport,omitempty"`
	AvailableCapacity int64             `json:"available_capacity_bytes"`
	Reasons           []string          `json:"reasons,omitempty"`
	CheckedAt         time.Time         `json:"checked_at"`
}
