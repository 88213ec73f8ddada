// Package currency gives access to the remote currency service.
package currency

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

// ServiceName identifies the currency service
const ServiceName = "currency"

// MethodGetCurrency is the method label of the single accessor
const MethodGetCurrency = "GetCurrency"

// Dialer connects to a currency endpoint over gRPC
func Dialer(cfg coregrpc.ClientConfig, opts ...grpc.DialOption) supervisor.Dialer[wire.CurrencyClient] {
	cfg.Codec = wire.Codec{}
	return coregrpc.ClientDialer(cfg, wire.NewCurrencyClient, opts...)
}

// Service reads exchange rates through a supervised client
type Service struct {
	sup *supervisor.Supervisor[wire.CurrencyClient]
	acc *fetch.Accessor[wire.CurrencyClient]
}

// New creates a currency service
func New(sup *supervisor.Supervisor[wire.CurrencyClient], logger *logging.Logger, m *metrics.Collector) *Service {
	return &Service{sup: sup, acc: fetch.NewAccessor(sup, logger, m)}
}

// Connect blocks until a client for endpoint is published
func (s *Service) Connect(ctx context.Context, endpoint string) error {
	return s.sup.EnsureConnected(ctx, endpoint)
}

// Supervisor returns the connection supervisor
func (s *Service) Supervisor() *supervisor.Supervisor[wire.CurrencyClient] {
	return s.sup
}

// TryCurrency fetches the latest rate snapshot
func (s *Service) TryCurrency(ctx context.Context) (domain.Currency, error) {
	return fetch.Unary(ctx, s.acc, MethodGetCurrency,
		func(ctx context.Context, c wire.CurrencyClient) (*wire.CurrencyMsg, error) {
			return c.GetCurrency(ctx, &wire.CurrencyRequest{})
		},
		domain.CurrencyFromMsg,
	)
}

// Currency returns the latest rate snapshot, or the zero Currency on failure
func (s *Service) Currency(ctx context.Context) domain.Currency {
	c, err := s.TryCurrency(ctx)
	return fetch.Settle(s.acc, MethodGetCurrency, c, err)
}
