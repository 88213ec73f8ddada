// Package health aggregates named checks into a single report.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Status represents the health status of a service
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string                 `json:"name" yaml:"name"`
	Status    Status                 `json:"status" yaml:"status"`
	Message   string                 `json:"message,omitempty" yaml:"message,omitempty"`
	Duration  time.Duration          `json:"duration" yaml:"duration"`
	Timestamp time.Time              `json:"timestamp" yaml:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// Checker is a single named health check
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

type namedCheck struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func (c *namedCheck) Name() string                          { return c.name }
func (c *namedCheck) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// NewChecker creates a named checker from a function
func NewChecker(name string, fn func(ctx context.Context) CheckResult) Checker {
	return &namedCheck{name: name, fn: fn}
}

// Registry manages multiple health checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	service  string
	version  string
	startAt  time.Time
}

// NewRegistry creates a new health check registry
func NewRegistry(service, version string) *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
		service:  service,
		version:  version,
		startAt:  time.Now(),
	}
}

// Register adds a checker to the registry
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// RegisterFunc adds a check function to the registry
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context) CheckResult) {
	r.Register(NewChecker(name, fn))
}

// Check runs all checks concurrently. The overall status is the worst of
// the individual results; StatusUnknown results do not affect it.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		checkers = append(checkers, c)
	}
	r.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			res := c.Check(ctx)
			res.Duration = time.Since(start)
			res.Timestamp = time.Now()
			if res.Name == "" {
				res.Name = c.Name()
			}
			results[i] = res
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := StatusHealthy
	for _, res := range results {
		switch {
		case res.Status == StatusUnhealthy:
			status = StatusUnhealthy
		case res.Status == StatusDegraded && status != StatusUnhealthy:
			status = StatusDegraded
		}
	}

	return &Report{
		Service:   r.service,
		Version:   r.version,
		Status:    status,
		Uptime:    time.Since(r.startAt),
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// CheckWithTimeout runs all health checks with a timeout
func (r *Registry) CheckWithTimeout(timeout time.Duration) *Report {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.Check(ctx)
}

// Report represents the overall health report
type Report struct {
	Service   string        `json:"service" yaml:"service"`
	Version   string        `json:"version" yaml:"version"`
	Status    Status        `json:"status" yaml:"status"`
	Uptime    time.Duration `json:"uptime" yaml:"uptime"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Checks    []CheckResult `json:"checks" yaml:"checks"`
}

// String renders a one line summary followed by one line per check
func (r *Report) String() string {
	s := fmt.Sprintf("%s %s: %s (up %s)", r.Service, r.Version, r.Status, r.Uptime.Round(time.Second))
	for _, c := range r.Checks {
		s += fmt.Sprintf("\n  %-16s %-9s %s", c.Name, c.Status, c.Message)
	}
	return s
}

// ConnectionInfo describes a supervised client connection. Transport is
// the connectivity state of the underlying channel; an empty value skips
// the transport test.
type ConnectionInfo struct {
	Connected   bool
	Endpoint    string
	ConnectedAt time.Time
	Attempts    int
	Transport   string
	Usable      bool
}

// ConnectionCheck reports healthy while probe says the connection is
// published, and degraded when its transport is not usable
func ConnectionCheck(name string, probe func() ConnectionInfo) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		info := probe()
		if !info.Connected {
			return CheckResult{
				Name:    name,
				Status:  StatusUnhealthy,
				Message: "not connected",
			}
		}
		res := CheckResult{
			Name:    name,
			Status:  StatusHealthy,
			Message: "connected",
			Details: map[string]interface{}{
				"endpoint":     info.Endpoint,
				"connected_at": info.ConnectedAt.UTC().Format(time.RFC3339),
				"attempts":     info.Attempts,
			},
		}
		if info.Transport != "" {
			res.Details["transport"] = info.Transport
			if !info.Usable {
				res.Status = StatusDegraded
				res.Message = "transport " + info.Transport
			}
		}
		return res
	})
}

// GRPCCheck asks the standard gRPC health service on the connection returned
// by conn. A missing connection gives StatusUnknown so that it does not
// count twice next to a ConnectionCheck. A server without the health
// service or one that is not serving gives StatusDegraded.
func GRPCCheck(name, service string, timeout time.Duration, conn func() (grpc.ClientConnInterface, bool)) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		cc, ok := conn()
		if !ok {
			return CheckResult{Name: name, Status: StatusUnknown, Message: "no connection"}
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		resp, err := healthpb.NewHealthClient(cc).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return CheckResult{
				Name:    name,
				Status:  StatusDegraded,
				Message: fmt.Sprintf("health probe failed: %v", err),
			}
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return CheckResult{
				Name:    name,
				Status:  StatusDegraded,
				Message: resp.GetStatus().String(),
			}
		}
		return CheckResult{Name: name, Status: StatusHealthy, Message: "serving"}
	})
}
