// Package fetch runs a single remote call against a supervised client and
// maps the reply into a domain value.
//
// Unary and First return an explicit error when the call fails. Settle turns
// that error into the zero value of the domain type, which is what the
// public service accessors hand to their callers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"

	"github.com/msto63/chainfeed/internal/supervisor"
	"github.com/msto63/chainfeed/pkg/core/logging"
	"github.com/msto63/chainfeed/pkg/core/metrics"
)

// ErrEmptyStream is returned when a stream closes before its first message
var ErrEmptyStream = errors.New("stream ended without a message")

// Accessor binds a supervisor to the logger and metrics of one service
type Accessor[C any] struct {
	service string
	sup     *supervisor.Supervisor[C]
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewAccessor creates an accessor. logger may be nil. Entries it writes
// carry the service name.
func NewAccessor[C any](sup *supervisor.Supervisor[C], logger *logging.Logger, m *metrics.Collector) *Accessor[C] {
	if logger == nil {
		logger = logging.New(sup.Name())
	}
	return &Accessor[C]{
		service: sup.Name(),
		sup:     sup,
		logger:  logger.With("service", sup.Name()),
		metrics: m,
	}
}

// Service returns the name of the supervised service
func (a *Accessor[C]) Service() string {
	return a.service
}

// Unary performs one request/response call and maps the reply
func Unary[C, M, D any](
	ctx context.Context,
	a *Accessor[C],
	method string,
	call func(context.Context, C) (*M, error),
	mapFn func(*M) (D, error),
) (D, error) {
	start := time.Now()

	client, err := a.sup.Current()
	if err != nil {
		return fail[C, D](a, method, start, err)
	}

	msg, err := call(ctx, client)
	if err != nil {
		return fail[C, D](a, method, start, err)
	}
	return finish(a, method, start, msg, mapFn)
}

// First opens a server stream, maps its first message and abandons the rest.
func First[C, M, D any](
	ctx context.Context,
	a *Accessor[C],
	method string,
	open func(context.Context, C) (grpc.ServerStreamingClient[M], error),
	mapFn func(*M) (D, error),
) (D, error) {
	start := time.Now()

	client, err := a.sup.Current()
	if err != nil {
		return fail[C, D](a, method, start, err)
	}

	// Cancelling the stream context tells the server to stop sending
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := open(streamCtx, client)
	if err != nil {
		return fail[C, D](a, method, start, err)
	}

	msg, err := stream.Recv()
	if errors.Is(err, io.EOF) {
		a.metrics.ObserveFetch(a.service, method, metrics.OutcomeEmpty, time.Since(start))
		var zero D
		return zero, fmt.Errorf("%s %s: %w", a.service, method, ErrEmptyStream)
	}
	if err != nil {
		return fail[C, D](a, method, start, err)
	}
	return finish(a, method, start, msg, mapFn)
}

// Settle collapses a failed fetch into D's zero value. The failure is logged.
func Settle[C, D any](a *Accessor[C], method string, v D, err error) D {
	if err == nil {
		return v
	}
	a.logger.Error("Fetch failed, returning default value",
		"method", method,
		"error", err,
	)
	var zero D
	return zero
}

// finish maps msg. Mapping problems are per field: the value is still
// returned, the problem only shows up in the log and the degraded outcome.
func finish[C, M, D any](a *Accessor[C], method string, start time.Time, msg *M, mapFn func(*M) (D, error)) (D, error) {
	v, err := mapFn(msg)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeDegraded
		a.logger.Warn("Reply contained malformed fields",
				"method", method,
			"error", err,
		)
	}
	a.metrics.ObserveFetch(a.service, method, outcome, time.Since(start))
	return v, nil
}

func fail[C, D any](a *Accessor[C], method string, start time.Time, err error) (D, error) {
	a.metrics.ObserveFetch(a.service, method, metrics.OutcomeError, time.Since(start))
	var zero D
	return zero, fmt.Errorf("%s %s: %w", a.service, method, err)
}
