package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/harvester/internal/core/cursor"
	"github.com/vietddude/harvester/internal/harvesting/harvester"
	"github.com/vietddude/harvester/internal/harvesting/metrics"
	"github.com/vietddude/harvester/internal/infra/oai"
)

// StatusProvider reports the live status of a run.
type StatusProvider interface {
	GetStatus() harvester.Status
}

// TransportHealth reports transport statistics.
type TransportHealth interface {
	GetHealth() oai.HealthStatus
}

// CapacityReporter reports remaining storage capacity.
type CapacityReporter interface {
	AvailableCapacity() (int64, error)
}

// Monitor aggregates health status from the run's components.
type Monitor struct {
	run        StatusProvider
	transport  TransportHealth
	capacity   CapacityReporter
	interval   time.Duration
	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. transport and capacity may be nil.
func NewMonitor(run StatusProvider, transport TransportHealth, capacity CapacityReporter) *Monitor {
	return &Monitor{
		run:       run,
		transport: transport,
		capacity:  capacity,
		interval:  10 * time.Second,
	}
}

// SetInterval sets how long a report is reused before components are queried again.
func (m *Monitor) SetInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = d
}

// CheckHealth builds a health report.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Statfs is cheap but not free; reuse recent reports.
	if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < m.interval {
		return m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Run:          m.run.GetStatus(),
		CheckedAt:    time.Now(),
	}

	degrade := func(reason string) {
		if report.SystemStatus == StatusHealthy {
			report.SystemStatus = StatusDegraded
		}
		report.Reasons = append(report.Reasons, reason)
	}
	critical := func(reason string) {
		report.SystemStatus = StatusCritical
		report.Reasons = append(report.Reasons, reason)
	}

	// 1. Run state
	switch report.Run.State {
	case cursor.StateTerminated:
		critical("run terminated: " + report.Run.LastError)
	case cursor.StateHalted:
		degrade("run halted: storage exhausted")
	}

	// 2. Transport
	if m.transport != nil {
		th := m.transport.GetHealth()
		report.Transport = &th
		if !th.Available {
			critical("source unavailable")
		} else if th.ErrorRate > 0.1 {
			degrade(fmt.Sprintf("source error rate %.0f%%", th.ErrorRate*100))
		}
	}

	// 3. Storage
	if m.capacity != nil {
		avail, err := m.capacity.AvailableCapacity()
		if err != nil {
			degrade("storage capacity unknown: " + err.Error())
		} else {
			report.AvailableCapacity = avail
			metrics.StorageAvailableBytes.Set(float64(avail))
		}
	}

	m.lastCheck = report.CheckedAt
	m.lastReport = report
	return report
}
