// Package kraken gives access to the remote kraken ticker service.
//
// Intervals are passed through to the server unchanged. Two have a fixed
// meaning: IntervalMonday selects the snapshot taken at the start of the
// week and IntervalDay the rolling day used by TickerDay.
package kraken

import (
	"context"

	"google.golang.org/grpc"

	"github.com/msto63/chainfeed/internal/domain"
	"github.com/msto63/chainfeed/internal/fetch"
	"github.com/msto63/chainfeed/internal/supervisor"
	"github.com/msto63/chainfeed/internal/wire"
	coregrpc "github.com/msto63/chainfeed/pkg/core/grpc"
	"github.com/msto63/chainfeed/pkg/core/logging"
	"github.com/msto63/chainfeed/pkg/core/metrics"
)

// ServiceName identifies the kraken service
const ServiceName = "kraken"

const (
	IntervalDay    int32 = 1
	IntervalMonday int32 = 7
)

// Method labels
const (
	MethodTicker    = "Ticker"
	MethodTickerDay = "TickerDay"
	MethodOhlcDay   = "OhlcDay"
)

// Dialer connects to a kraken endpoint over gRPC
func Dialer(cfg coregrpc.ClientConfig, opts ...grpc.DialOption) supervisor.Dialer[wire.KrakenClient] {
	cfg.Codec = wire.Codec{}
	return coregrpc.ClientDialer(cfg, wire.NewKrakenClient, opts...)
}

// Service reads tickers and OHLC bars through a supervised client
type Service struct {
	sup *supervisor.Supervisor[wire.KrakenClient]
	acc *fetch.Accessor[wire.KrakenClient]
}

// New creates a kraken service
func New(sup *supervisor.Supervisor[wire.KrakenClient], logger *logging.Logger, m *metrics.Collector) *Service {
	return &Service{sup: sup, acc: fetch.NewAccessor(sup, logger, m)}
}

// Connect blocks until a client for endpoint is published
func (s *Service) Connect(ctx context.Context, endpoint string) error {
	return s.sup.EnsureConnected(ctx, endpoint)
}

// Supervisor returns the connection supervisor
func (s *Service) Supervisor() *supervisor.Supervisor[wire.KrakenClient] {
	return s.sup
}

// TryTicker fetches the ticker snapshot for interval
func (s *Service) TryTicker(ctx context.Context, interval int32) (domain.Ticker, error) {
	return fetch.Unary(ctx, s.acc, MethodTicker,
		func(ctx context.Context, c wire.KrakenClient) (*wire.KrakenTickerMsg, error) {
			return c.Ticker(ctx, &wire.KrakenRequest{Interval: interval})
		},
		domain.TickerFromMsg,
	)
}

// Ticker fetches the ticker snapshot for interval, or the zero Ticker on failure
func (s *Service) Ticker(ctx context.Context, interval int32) domain.Ticker {
	t, err := s.TryTicker(ctx, interval)
	return fetch.Settle(s.acc, MethodTicker, t, err)
}

// MondayTicker returns the snapshot taken at the start of the week
func (s *Service) MondayTicker(ctx context.Context) domain.Ticker {
	return s.Ticker(ctx, IntervalMonday)
}

// TryTickerDayFirst returns the first snapshot of the day stream
func (s *Service) TryTickerDayFirst(ctx context.Context) (domain.Ticker, error) {
	return fetch.First(ctx, s.acc, MethodTickerDay,
		func(ctx context.Context, c wire.KrakenClient) (grpc.ServerStreamingClient[wire.KrakenTickerMsg], error) {
			return c.TickerDay(ctx, &wire.KrakenRequest{Interval: IntervalDay})
		},
		domain.TickerFromMsg,
	)
}

// TickerDayFirst is TryTickerDayFirst with failures collapsed to the zero Ticker
func (s *Service) TickerDayFirst(ctx context.Context) domain.Ticker {
	t, err := s.TryTickerDayFirst(ctx)
	return fetch.Settle(s.acc, MethodTickerDay, t, err)
}

// TryFirstOhlcBar returns the first bar of the OHLC stream for interval
func (s *Service) TryFirstOhlcBar(ctx context.Context, interval int32) (domain.OhlcBar, error) {
	return fetch.First(ctx, s.acc, MethodOhlcDay,
		func(ctx context.Context, c wire.KrakenClient) (grpc.ServerStreamingClient[wire.KrakenOhlcMsg], error) {
			return c.OhlcDay(ctx, &wire.KrakenRequest{Interval: interval})
		},
		domain.OhlcBarFromMsg,
	)
}

// FirstOhlcBar is TryFirstOhlcBar with failures collapsed to the zero bar
func (s *Service) FirstOhlcBar(ctx context.Context, interval int32) domain.OhlcBar {
	b, err := s.TryFirstOhlcBar(ctx, interval)
	return fetch.Settle(s.acc, MethodOhlcDay, b, err)
}
