package health

import (
	"context"
	"sync"
	"time"
)

// Check probes one dependency. Details, when non-nil, are included in the
// detailed report.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
	Details  func() any
}

// Monitor aggregates health status from the service's dependencies.
type Monitor struct {
	checks    []Check
	ttl       time.Duration
	timeout   time.Duration
	lastCheck time.Time
	last      HealthReport
	mu        sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(checks ...Check) *Monitor {
	return &Monitor{
		checks:  checks,
		ttl:     10 * time.Second,
		timeout: 3 * time.Second,
	}
}

// CheckHealth runs every check and aggregates the result.
// Results are cached briefly so probes do not spam the RPC endpoint.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < m.ttl && m.last.Components != nil {
		return m.last
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(m.checks)),
	}

	for _, check := range m.checks {
		comp := m.run(ctx, check)
		report.Components[check.Name] = comp

		// Worst case wins
		switch comp.Status {
		case StatusCritical:
			report.SystemStatus = StatusCritical
		case StatusDegraded:
			if report.SystemStatus == StatusHealthy {
				report.SystemStatus = StatusDegraded
			}
		}
	}

	m.lastCheck = time.Now()
	m.last = report
	return report
}

func (m *Monitor) run(ctx context.Context, check Check) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := check.Probe(ctx)

	comp := ComponentHealth{
		Name:      check.Name,
		Status:    StatusHealthy,
		Critical:  check.Critical,
		Latency:   time.Since(start),
		CheckedAt: time.Now().UTC(),
	}
	if check.Details != nil {
		comp.Details = check.Details()
	}
	if err != nil {
		comp.Error = err.Error()
		comp.Status = StatusDegraded
		if check.Critical {
			comp.Status = StatusCritical
		}
	}
	return comp
}
