package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/bridge/internal/infra/api"
)

// Check reports the health of one component.
type Check func(ctx context.Context) ComponentHealth

// Monitor aggregates health status from the registered checks.
type Monitor struct {
	mu         sync.Mutex
	checks     map[string]Check
	interval   time.Duration
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a monitor that reuses its last report for interval.
func NewMonitor(interval time.Duration) *Monitor {
	return &Monitor{
		checks:   make(map[string]Check),
		interval: interval,
	}
}

func (m *Monitor) AddCheck(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
	m.lastCheck = time.Time{}
}

// CheckHealth runs every check, rate limited to once per interval.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.interval > 0 && time.Since(m.lastCheck) < m.interval && m.lastReport.Components != nil {
		return m.lastReport
	}

	components := make(map[string]ComponentHealth, len(m.checks))
	for name, check := range m.checks {
		c := check(ctx)
		c.Name = name
		components[name] = c
	}

	m.lastCheck = time.Now()
	m.lastReport = Report{SystemStatus: worst(components), Components: components, CheckedAt: m.lastCheck}
	return m.lastReport
}

// BackendCheck derives backend health from the client's request history.
func BackendCheck(client *api.Client) Check {
	return func(ctx context.Context) ComponentHealth {
		h := client.Health()
		c := ComponentHealth{
			Status:    StatusHealthy,
			ErrorRate: h.ErrorRate,
			LatencyMS: h.Latency.Milliseconds(),
		}
		switch {
		case !h.Available:
			c.Status = StatusCritical
		case h.ErrorRate > 0.1:
			c.Status = StatusDegraded
		}
		return c
	}
}

// PingCheck marks a dependency critical when ping fails.
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		start := time.Now()
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: StatusCritical, Error: err.Error()}
		}
		return ComponentHealth{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}
	}
}
