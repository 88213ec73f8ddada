// Package blocks gives access to the remote blocks service.
package blocks

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

// ServiceName identifies the blocks service in logs, metrics and config
const ServiceName = "blocks"

// Method labels
const (
	MethodGetBlock  = "GetBlock"
	MethodGetBlocks = "GetBlocks"
)

// Dialer connects to a blocks endpoint over gRPC
func Dialer(cfg coregrpc.ClientConfig, opts ...grpc.DialOption) supervisor.Dialer[wire.BlocksClient] {
	cfg.Codec = wire.Codec{}
	return coregrpc.ClientDialer(cfg, wire.NewBlocksClient, opts...)
}

// Service reads blocks through a supervised client
type Service struct {
	sup *supervisor.Supervisor[wire.BlocksClient]
	acc *fetch.Accessor[wire.BlocksClient]
}

// New creates a blocks service on top of sup
func New(sup *supervisor.Supervisor[wire.BlocksClient], logger *logging.Logger, m *metrics.Collector) *Service {
	return &Service{sup: sup, acc: fetch.NewAccessor(sup, logger, m)}
}

// Connect blocks until a client for endpoint is published
func (s *Service) Connect(ctx context.Context, endpoint string) error {
	return s.sup.EnsureConnected(ctx, endpoint)
}

// Supervisor returns the connection supervisor
func (s *Service) Supervisor() *supervisor.Supervisor[wire.BlocksClient] {
	return s.sup
}

// TryBlock fetches the block at height
func (s *Service) TryBlock(ctx context.Context, height int64) (domain.Block, error) {
	return fetch.Unary(ctx, s.acc, MethodGetBlock,
		func(ctx context.Context, c wire.BlocksClient) (*wire.BlockMsg, error) {
			return c.GetBlock(ctx, &wire.BlocksRequest{Height: height})
		},
		domain.BlockFromMsg,
	)
}

// Block fetches the block at height, or the zero Block on failure
func (s *Service) Block(ctx context.Context, height int64) domain.Block {
	b, err := s.TryBlock(ctx, height)
	return fetch.Settle(s.acc, MethodGetBlock, b, err)
}

// TryLatestBlock returns the first block the GetBlocks stream yields
func (s *Service) TryLatestBlock(ctx context.Context) (domain.Block, error) {
	return fetch.First(ctx, s.acc, MethodGetBlocks,
		func(ctx context.Context, c wire.BlocksClient) (grpc.ServerStreamingClient[wire.BlockMsg], error) {
			return c.GetBlocks(ctx, &wire.BlocksRequest{})
		},
		domain.BlockFromMsg,
	)
}

// LatestBlock is TryLatestBlock with failures collapsed to the zero Block
func (s *Service) LatestBlock(ctx context.Context) domain.Block {
	b, err := s.TryLatestBlock(ctx)
	return fetch.Settle(s.acc, MethodGetBlocks, b, err)
}
