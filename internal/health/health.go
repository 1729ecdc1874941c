package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult is the outcome of a single check. Err is kept for the
// recovery path and omitted from the JSON surface.
type CheckResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Detail  string        `json:"detail,omitempty"`
	Latency time.Duration `json:"latency,omitempty"`
	Err     error         `json:"-"`
}

// Report aggregates one battery run with worst-of-checks precedence.
type Report struct {
	Status    Status        `json:"status"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Check runs one probe and classifies its result.
type Check func(ctx context.Context) CheckResult

// Checker runs a battery of checks on a fixed interval, plus one
// delayed initial check at startup. Notify, when set, is called after
// any run that comes back unhealthy.
type Checker struct {
	mutex    sync.RWMutex
	checks   []Check
	interval time.Duration
	last     Report
	logger   *slog.Logger

	// InitialDelay is the wait before the first battery run.
	InitialDelay time.Duration
	Notify       func(Report)
}

const (
	DefaultInterval     = 5 * time.Minute
	DefaultInitialDelay = 10 * time.Second
)

func NewChecker(logger *slog.Logger, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Checker{
		interval:     interval,
		InitialDelay: DefaultInitialDelay,
		logger:       logger,
	}
}

func (c *Checker) Register(check Check) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.checks = append(c.checks, check)
}

// RunOnce executes the full battery and stores the report.
func (c *Checker) RunOnce(ctx context.Context) Report {
	c.mutex.RLock()
	checks := make([]Check, len(c.checks))
	copy(checks, c.checks)
	c.mutex.RUnlock()

	report := Report{
		Status:    StatusHealthy,
		CheckedAt: time.Now(),
	}

	for _, check := range checks {
		result := check(ctx)
		report.Checks = append(report.Checks, result)
		if result.Status > report.Status {
			report.Status = result.Status
		}
	}

	c.mutex.Lock()
	previous := c.last.Status
	hadRun := !c.last.CheckedAt.IsZero()
	c.last = report
	c.mutex.Unlock()

	if hadRun && previous != report.Status {
		c.logger.Warn("Health status changed",
			slog.String("from", previous.String()),
			slog.String("to", report.Status.String()))
	}

	if report.Status == StatusUnhealthy && c.Notify != nil {
		c.Notify(report)
	}

	return report
}

// Last returns the most recent report. Before the first run it reports
// healthy with no checks.
func (c *Checker) Last() Report {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.last
}

// Start runs the delayed initial check and then the periodic battery
// until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.InitialDelay):
			c.RunOnce(ctx)
		}

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Health checker stopped")
				return
			case <-ticker.C:
				c.RunOnce(ctx)
			}
		}
	}()
}
