// Package supervisor owns one remote client per service. It dials with
// unbounded retries at a fixed interval and publishes the resulting client
// so that any number of goroutines can read it while a connect is running.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/msto63/chainfeed/pkg/core/logging"
	"github.com/msto63/chainfeed/pkg/core/metrics"
)

// DefaultRetryInterval is the wait between failed connect attempts
const DefaultRetryInterval = 2 * time.Second

// ErrNotConnected is returned when no client has been published yet
var ErrNotConnected = errors.New("not connected")

// Dialer builds a client for endpoint
type Dialer[C any] func(ctx context.Context, endpoint string) (C, error)

// State of a supervised connection
type State string

const (
	StateAbsent      State = "absent"
	StateEstablished State = "established"
)

// Handle is a published client. It is never modified after publication.
type Handle[C any] struct {
	Client      C
	Endpoint    string
	ConnectedAt time.Time
	Attempts    int
}

type options struct {
	retryInterval time.Duration
	logger        *logging.Logger
	metrics       *metrics.Collector
	after         func(time.Duration) <-chan time.Time
}

// Option configures a Supervisor
type Option func(*options)

// WithRetryInterval lengthens the wait between attempts. Values below
// DefaultRetryInterval are ignored.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d >= DefaultRetryInterval {
			o.retryInterval = d
		}
	}
}

// WithLogger sets the logger used for connect progress
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records connect attempts and the connected gauge
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

// Supervisor manages the client of a single service
type Supervisor[C any] struct {
	name string
	dial Dialer[C]
	opts options

	mu     sync.RWMutex
	handle *Handle[C]
}

// New creates a supervisor for the named service. Nothing is dialed until
// EnsureConnected is called.
func New[C any](name string, dial Dialer[C], opts ...Option) *Supervisor[C] {
	o := options{
		retryInterval: DefaultRetryInterval,
		logger:        logging.New(name),
		after:         time.After,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Supervisor[C]{name: name, dial: dial, opts: o}
}

// Name returns the service name
func (s *Supervisor[C]) Name() string {
	return s.name
}

// EnsureConnected dials endpoint until it succeeds and publishes the client.
// Each failure is logged and followed by a fixed wait. The loop only ends
// early when ctx is cancelled, in which case ctx.Err() is returned and the
// previously published handle, if any, stays in place.
func (s *Supervisor[C]) EnsureConnected(ctx context.Context, endpoint string) error {
	for attempt := 1; ; attempt++ {
		client, err := s.dial(ctx, endpoint)
		s.opts.metrics.ConnectAttempt(s.name, err)
		if err == nil {
			s.publish(&Handle[C]{
				Client:      client,
				Endpoint:    endpoint,
				ConnectedAt: time.Now(),
				Attempts:    attempt,
			})
			s.opts.logger.Info("Connected to service",
				"service", s.name,
				"endpoint", endpoint,
				"attempts", attempt,
			)
			return nil
		}

		s.opts.logger.Warn("Failed to connect, retrying",
			"service", s.name,
			"endpoint", endpoint,
			"attempt", attempt,
			"retry_in", s.opts.retryInterval.String(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.opts.after(s.opts.retryInterval):
		}
	}
}

func (s *Supervisor[C]) publish(h *Handle[C]) {
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
	s.opts.metrics.SetConnected(s.name, true)
}

// Current returns the published client or ErrNotConnected
func (s *Supervisor[C]) Current() (C, error) {
	s.mu.RLock()
	h := s.handle
	s.mu.RUnlock()

	if h == nil {
		var zero C
		return zero, fmt.Errorf("%s: %w", s.name, ErrNotConnected)
	}
	return h.Client, nil
}

// MustCurrent is like Current but panics when nothing is published.
func (s *Supervisor[C]) MustCurrent() C {
	c, err := s.Current()
	if err != nil {
		panic(err)
	}
	return c
}

// Handle returns the published handle
func (s *Supervisor[C]) Handle() (*Handle[C], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle, s.handle != nil
}

// State reports whether a client is published
func (s *Supervisor[C]) State() State {
	if _, ok := s.Handle(); ok {
		return StateEstablished
	}
	return StateAbsent
}

// Close releases the published client if it holds resources. Accessors
// called afterwards see ErrNotConnected.
func (s *Supervisor[C]) Close() error {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	s.opts.metrics.SetConnected(s.name, false)
	if c, ok := any(h.Client).(io.Closer); ok {
		return c.Close()
	}
	return nil
}
