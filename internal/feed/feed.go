// Package feed wires the blocks, currency and kraken services from
// configuration and gives callers one place to connect, query and shut
// them down.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/msto63/chainfeed/internal/blocks"
	"github.com/msto63/chainfeed/internal/currency"
	"github.com/msto63/chainfeed/internal/kraken"
	"github.com/msto63/chainfeed/internal/supervisor"
	"github.com/msto63/chainfeed/internal/wire"
	"github.com/msto63/chainfeed/pkg/core/config"
	coregrpc "github.com/msto63/chainfeed/pkg/core/grpc"
	"github.com/msto63/chainfeed/pkg/core/health"
	"github.com/msto63/chainfeed/pkg/core/logging"
	"github.com/msto63/chainfeed/pkg/core/metrics"
	"github.com/msto63/chainfeed/pkg/core/version"
)

// Services lists the supported service names in a stable order
var Services = []string{config.ServiceBlocks, config.ServiceCurrency, config.ServiceKraken}

// ErrUnknownService is returned for names not in Services
var ErrUnknownService = errors.New("unknown service")

const healthProbeTimeout = 3 * time.Second

type options struct {
	registerer prometheus.Registerer
	dialOpts   []grpc.DialOption
}

// Option configures a Registry
type Option func(*options)

// WithRegisterer registers the feed metrics with reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithDialOptions adds gRPC dial options to every service connection
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

// Registry owns one service of each kind
type Registry struct {
	Blocks   *blocks.Service
	Currency *currency.Service
	Kraken   *kraken.Service

	cfg     *config.Config
	metrics *metrics.Collector
	health  *health.Registry
	logger  *logging.Logger
}

// New builds the services described by cfg. Nothing is dialed until
// Connect or ConnectAll is called.
func New(cfg *config.Config, opts ...Option) *Registry {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		cfg:     cfg,
		metrics: metrics.New(o.registerer),
		health:  health.NewRegistry(cfg.General.Name, version.Release),
		logger:  logging.New("feed"),
	}

	blocksSup := supervisor.New(config.ServiceBlocks,
		blocks.Dialer(clientConfig(cfg.Blocks), o.dialOpts...),
		r.supervisorOptions(cfg.Blocks)...)
	currencySup := supervisor.New(config.ServiceCurrency,
		currency.Dialer(clientConfig(cfg.Currency), o.dialOpts...),
		r.supervisorOptions(cfg.Currency)...)
	krakenSup := supervisor.New(config.ServiceKraken,
		kraken.Dialer(clientConfig(cfg.Kraken), o.dialOpts...),
		r.supervisorOptions(cfg.Kraken)...)

	r.Blocks = blocks.New(blocksSup, logging.New(config.ServiceBlocks), r.metrics)
	r.Currency = currency.New(currencySup, logging.New(config.ServiceCurrency), r.metrics)
	r.Kraken = kraken.New(krakenSup, logging.New(config.ServiceKraken), r.metrics)

	registerChecks(r.health, blocksSup, wire.BlocksServiceDesc.ServiceName)
	registerChecks(r.health, currencySup, wire.CurrencyServiceDesc.ServiceName)
	registerChecks(r.health, krakenSup, wire.KrakenServiceDesc.ServiceName)

	return r
}

func clientConfig(svc config.ServiceConfig) coregrpc.ClientConfig {
	cc := coregrpc.DefaultClientConfig(svc.Endpoint)
	cc.Timeout = svc.ConnectTimeout.Duration
	return cc
}

func (r *Registry) supervisorOptions(svc config.ServiceConfig) []supervisor.Option {
	return []supervisor.Option{
		supervisor.WithRetryInterval(svc.RetryInterval.Duration),
		supervisor.WithMetrics(r.metrics),
	}
}

// Connect blocks until the named service is connected or ctx is done
func (r *Registry) Connect(ctx context.Context, service string) error {
	svc, ok := r.cfg.Service(service)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownService, service)
	}

	switch strings.ToLower(service) {
	case config.ServiceBlocks:
		return r.Blocks.Connect(ctx, svc.Endpoint)
	case config.ServiceCurrency:
		return r.Currency.Connect(ctx, svc.Endpoint)
	default:
		return r.Kraken.Connect(ctx, svc.Endpoint)
	}
}

// ConnectAll connects every service concurrently and returns once all of
// them are connected
func (r *Registry) ConnectAll(ctx context.Context) error {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range Services {
		g.Go(func() error {
			return r.Connect(gctx, name)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("All services connected", "duration", time.Since(start).String())
	return nil
}

// Health returns the health registry covering every service
func (r *Registry) Health() *health.Registry {
	return r.health
}

// Metrics returns the collector shared by the services
func (r *Registry) Metrics() *metrics.Collector {
	return r.metrics
}

// Close releases every connection
func (r *Registry) Close() error {
	return errors.Join(
		r.Blocks.Supervisor().Close(),
		r.Currency.Supervisor().Close(),
		r.Kraken.Supervisor().Close(),
	)
}

type connHolder interface {
	Conn() grpc.ClientConnInterface
}

func registerChecks[C any](reg *health.Registry, sup *supervisor.Supervisor[C], grpcService string) {
	name := sup.Name()

	reg.Register(health.ConnectionCheck(name, func() health.ConnectionInfo {
		h, ok := sup.Handle()
		if !ok {
			return health.ConnectionInfo{}
		}
		info := health.ConnectionInfo{
			Connected:   true,
			Endpoint:    h.Endpoint,
			ConnectedAt: h.ConnectedAt,
			Attempts:    h.Attempts,
		}
		if holder, ok := any(h.Client).(connHolder); ok {
			if cc, ok := holder.Conn().(*grpc.ClientConn); ok {
				info.Transport = cc.GetState().String()
				info.Usable = coregrpc.IsHealthy(cc)
			}
		}
		return info
	}))

	reg.Register(health.GRPCCheck(name+"-grpc", grpcService, healthProbeTimeout, func() (grpc.ClientConnInterface, bool) {
		c, err := sup.Current()
		if err != nil {
			return nil, false
		}
		holder, ok := any(c).(connHolder)
		if !ok {
			return nil, false
		}
		return holder.Conn(), true
	}))
}
