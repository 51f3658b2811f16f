package faulttolerance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ErrDegraded marks a check failure that leaves the component usable.
var ErrDegraded = errors.New("degraded")

// HealthCheck represents a single health check
type HealthCheck struct {
	Name      string                          `json:"name"`
	Status    HealthStatus                    `json:"status"`
	LastCheck time.Time                       `json:"last_check"`
	Duration  time.Duration                   `json:"duration"`
	Error     string                          `json:"error,omitempty"`
	CheckFunc func(ctx context.Context) error `json:"-"`
}

// HealthMonitor runs registered checks periodically and keeps their latest result.
type HealthMonitor struct {
	checks   map[string]*HealthCheck
	mutex    sync.RWMutex
	logger   *logrus.Logger
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(logger *logrus.Logger, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &HealthMonitor{
		checks:   make(map[string]*HealthCheck),
		logger:   logger,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// AddCheck adds a health check. A check returning an error wrapping
// ErrDegraded marks the component degraded instead of unhealthy.
func (hm *HealthMonitor) AddCheck(name string, checkFunc func(ctx context.Context) error) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.checks[name] = &HealthCheck{
		Name:      name,
		Status:    HealthStatusHealthy,
		CheckFunc: checkFunc,
	}

	hm.logger.WithField("check", name).Info("Added health check")
}

// Start starts the health monitoring
func (hm *HealthMonitor) Start() {
	hm.wg.Add(1)
	go hm.monitorLoop()
	hm.logger.Info("Health monitor started")
}

// Stop stops the health monitoring
func (hm *HealthMonitor) Stop() {
	hm.cancel()
	hm.wg.Wait()
	hm.logger.Info("Health monitor stopped")
}

func (hm *HealthMonitor) monitorLoop() {
	defer hm.wg.Done()

	ticker := time.NewTicker(hm.interval)
	defer ticker.Stop()

	hm.RunChecks()

	for {
		select {
		case <-hm.ctx.Done():
			return
		case <-ticker.C:
			hm.RunChecks()
		}
	}
}

// RunChecks runs every registered check concurrently and waits for them.
func (hm *HealthMonitor) RunChecks() {
	hm.mutex.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		checks = append(checks, check)
	}
	hm.mutex.RUnlock()

	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(check *HealthCheck) {
			defer wg.Done()
			hm.runCheck(check)
		}(check)
	}
	wg.Wait()
}

func (hm *HealthMonitor) runCheck(check *HealthCheck) {
	if check.CheckFunc == nil {
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(hm.ctx, 10*time.Second)
	defer cancel()

	err := check.CheckFunc(ctx)
	duration := time.Since(start)

	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	check.LastCheck = start
	check.Duration = duration

	oldStatus := check.Status
	switch {
	case err == nil:
		check.Status = HealthStatusHealthy
		check.Error = ""
	case errors.Is(err, ErrDegraded):
		check.Status = HealthStatusDegraded
		check.Error = err.Error()
	default:
		check.Status = HealthStatusUnhealthy
		check.Error = err.Error()
	}

	if oldStatus == check.Status {
		return
	}
	log := hm.logger.WithFields(logrus.Fields{
		"check": check.Name,
		"from":  oldStatus,
		"to":    check.Status,
	})
	if err != nil {
		log.WithError(err).Warn("Health check status changed")
	} else {
		log.Info("Health check recovered")
	}
}

// GetHealth returns a copy of every check's latest result.
func (hm *HealthMonitor) GetHealth() map[string]HealthCheck {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	result := make(map[string]HealthCheck, len(hm.checks))
	for name, check := range hm.checks {
		result[name] = HealthCheck{
			Name:      check.Name,
			Status:    check.Status,
			LastCheck: check.LastCheck,
			Duration:  check.Duration,
			Error:     check.Error,
		}
	}
	return result
}

// GetOverallHealth returns the worst status among the checks.
func (hm *HealthMonitor) GetOverallHealth() HealthStatus {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	overall := HealthStatusHealthy
	for _, check := range hm.checks {
		switch check.Status {
		case HealthStatusUnhealthy:
			return HealthStatusUnhealthy
		case HealthStatusDegraded:
			overall = HealthStatusDegraded
		}
	}
	return overall
}

// HealthReport is a point-in-time view of every check.
type HealthReport struct {
	Status    HealthStatus           `json:"status"`
	Checks    map[string]HealthCheck `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
}

// Report combines GetOverallHealth and GetHealth.
func (hm *HealthMonitor) Report(now time.Time) HealthReport {
	return HealthReport{
		Status:    hm.GetOverallHealth(),
		Checks:    hm.GetHealth(),
		Timestamp: now.UTC(),
	}
}
