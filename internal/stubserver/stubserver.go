// Package stubserver serves the blocks, currency and kraken services from
// YAML fixtures. It backs the feedstub binary and the end-to-end tests.
package stubserver

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"

	"github.com/msto63/chainfeed/internal/wire"
	"github.com/msto63/chainfeed/pkg/core/logging"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// TickerFixture is a ticker served for one interval
type TickerFixture struct {
	Interval             int32 `yaml:"interval"`
	wire.KrakenTickerMsg `yaml:",inline"`
}

// OhlcFixture is a bar streamed for one interval. Interval 0 matches every
// request.
type OhlcFixture struct {
	Interval           int32 `yaml:"interval"`
	wire.KrakenOhlcMsg `yaml:",inline"`
}

// Fixtures is the data set served by a Server. Values are wire values, so
// malformed timestamps and numbers can be served on purpose.
type Fixtures struct {
	Blocks    []wire.BlockMsg        `yaml:"blocks"`
	Currency  []wire.CurrencyMsg     `yaml:"currency"`
	Tickers   []TickerFixture        `yaml:"tickers"`
	TickerDay []wire.KrakenTickerMsg `yaml:"ticker_day"`
	Ohlc      []OhlcFixture          `yaml:"ohlc"`
}

// ParseFixtures decodes YAML fixtures
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &fx, nil
}

// LoadFixtures reads fixtures from a YAML file
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// DefaultFixtures returns the built-in data set
func DefaultFixtures() *Fixtures {
	fx, err := ParseFixtures(defaultFixtures)
	if err != nil {
		panic(err)
	}
	return fx
}

// Server implements wire.BlocksServer, wire.CurrencyServer and wire.KrakenServer
type Server struct {
	mu     sync.RWMutex
	fx     *Fixtures
	logger *logging.Logger
}

// New creates a server for fx
func New(fx *Fixtures) *Server {
	return &Server{fx: fx, logger: logging.New("stubserver")}
}

// Register adds the three services to reg
func (s *Server) Register(reg grpc.ServiceRegistrar) {
	wire.RegisterBlocksServer(reg, s)
	wire.RegisterCurrencyServer(reg, s)
	wire.RegisterKrakenServer(reg, s)
}

// ServiceNames returns the full names of the registered services
func ServiceNames() []string {
	return []string{
		wire.BlocksServiceDesc.ServiceName,
		wire.CurrencyServiceDesc.ServiceName,
		wire.KrakenServiceDesc.ServiceName,
	}
}

// SetFixtures replaces the served data
func (s *Server) SetFixtures(fx *Fixtures) {
	s.mu.Lock()
	s.fx = fx
	s.mu.Unlock()
}

func (s *Server) fixtures() *Fixtures {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fx
}

// GetBlock returns the block with the requested height, or hash when set
func (s *Server) GetBlock(_ context.Context, req *wire.BlocksRequest) (*wire.BlockMsg, error) {
	for _, b := range s.fixtures().Blocks {
		if (req.Hash != "" && b.ID == req.Hash) || (req.Hash == "" && b.Height == req.Height) {
			return &b, nil
		}
	}
	return nil, status.Errorf(codes.NotFound, "block %d%s not found", req.Height, req.Hash)
}

// GetBlocks streams blocks from the newest down. A non-zero height starts
// the stream at that height.
func (s *Server) GetBlocks(req *wire.BlocksRequest, stream grpc.ServerStreamingServer[wire.BlockMsg]) error {
	blocks := append([]wire.BlockMsg(nil), s.fixtures().Blocks...)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Height > blocks[j].Height })

	for i := range blocks {
		if req.Height > 0 && blocks[i].Height > req.Height {
			continue
		}
		if err := stream.Send(&blocks[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetCurrency returns the last snapshot of the fixtures
func (s *Server) GetCurrency(_ context.Context, _ *wire.CurrencyRequest) (*wire.CurrencyMsg, error) {
	cur := s.fixtures().Currency
	if len(cur) == 0 {
		return nil, status.Error(codes.NotFound, "no currency snapshot")
	}
	c := cur[len(cur)-1]
	return &c, nil
}

// Ticker returns the ticker configured for the requested interval
func (s *Server) Ticker(_ context.Context, req *wire.KrakenRequest) (*wire.KrakenTickerMsg, error) {
	for _, t := range s.fixtures().Tickers {
		if t.Interval == req.Interval {
			msg := t.KrakenTickerMsg
			return &msg, nil
		}
	}
	return nil, status.Errorf(codes.NotFound, "no ticker for interval %d", req.Interval)
}

// TickerDay streams every day ticker in fixture order
func (s *Server) TickerDay(req *wire.KrakenRequest, stream grpc.ServerStreamingServer[wire.KrakenTickerMsg]) error {
	day := s.fixtures().TickerDay
	for i := range day {
		msg := day[i]
		if err := stream.Send(&msg); err != nil {
			return err
		}
	}
	s.logger.Debug("Streamed day tickers", "interval", req.Interval, "count", len(day))
	return nil
}

// OhlcDay streams the bars matching the requested interval
func (s *Server) OhlcDay(req *wire.KrakenRequest, stream grpc.ServerStreamingServer[wire.KrakenOhlcMsg]) error {
	for _, bar := range s.fixtures().Ohlc {
		if bar.Interval != 0 && bar.Interval != req.Interval {
			continue
		}
		msg := bar.KrakenOhlcMsg
		if err := stream.Send(&msg); err != nil {
			return err
		}
	}
	return nil
}
