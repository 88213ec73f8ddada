package wire

import (
	"context"

	"google.golang.org/grpc"
)

// Full method names of the kraken service
const (
	KrakenTickerMethod    = "/kraken_proto.Kraken/Ticker"
	KrakenTickerDayMethod = "/kraken_proto.Kraken/TickerDay"
	KrakenOhlcDayMethod   = "/kraken_proto.Kraken/OhlcDay"
)

// KrakenRequest selects a ticker interval
type KrakenRequest struct {
	Interval int32
}

// MarshalWire implements Message
func (m *KrakenRequest) MarshalWire() []byte {
	return appendInt32(nil, 1, m.Interval)
}

// UnmarshalWire implements Message
func (m *KrakenRequest) UnmarshalWire(b []byte) error {
	*m = KrakenRequest{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.Interval, err = f.int32()
		}
		return err
	})
}

// KrakenTickerMsg is one ticker snapshot
type KrakenTickerMsg struct {
	ID                int32   `yaml:"id"`
	LastPrice         float32 `yaml:"last_price"`
	LastVolume        float32 `yaml:"last_volume"`
	VolumeToday       float32 `yaml:"volume_today"`
	Volume24Hours     float32 `yaml:"volume_24_hours"`
	TradesToday       int32   `yaml:"trades_today"`
	Trades24Hours     int32   `yaml:"trades_24_hours"`
	AskPrice          float32 `yaml:"ask_price"`
	AskWholeLotVolume int32   `yaml:"ask_whole_lot_volume"`
	AskLotVolume      float32 `yaml:"ask_lot_volume"`
	BidPrice          float32 `yaml:"bid_price"`
	BidWholeLotVolume int32   `yaml:"bid_whole_lot_volume"`
	BidLotVolume      float32 `yaml:"bid_lot_volume"`
	CreatedAt         string  `yaml:"created_at"`
}

// MarshalWire implements Message
func (m *KrakenTickerMsg) MarshalWire() []byte {
	var b []byte
	b = appendInt32(b, 1, m.ID)
	b = appendFloat(b, 2, m.LastPrice)
	b = appendFloat(b, 3, m.LastVolume)
	b = appendFloat(b, 4, m.VolumeToday)
	b = appendFloat(b, 5, m.Volume24Hours)
	b = appendInt32(b, 6, m.TradesToday)
	b = appendInt32(b, 7, m.Trades24Hours)
	b = appendFloat(b, 8, m.AskPrice)
	b = appendInt32(b, 9, m.AskWholeLotVolume)
	b = appendFloat(b, 10, m.AskLotVolume)
	b = appendFloat(b, 11, m.BidPrice)
	b = appendInt32(b, 12, m.BidWholeLotVolume)
	b = appendFloat(b, 13, m.BidLotVolume)
	b = appendString(b, 14, m.CreatedAt)
	return b
}

// UnmarshalWire implements Message
func (m *KrakenTickerMsg) UnmarshalWire(b []byte) error {
	*m = KrakenTickerMsg{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.ID, err = f.int32()
		case 2:
			m.LastPrice, err = f.float()
		case 3:
			m.LastVolume, err = f.float()
		case 4:
			m.VolumeToday, err = f.float()
		case 5:
			m.Volume24Hours, err = f.float()
		case 6:
			m.TradesToday, err = f.int32()
		case 7:
			m.Trades24Hours, err = f.int32()
		case 8:
			m.AskPrice, err = f.float()
		case 9:
			m.AskWholeLotVolume, err = f.int32()
		case 10:
			m.AskLotVolume, err = f.float()
		case 11:
			m.BidPrice, err = f.float()
		case 12:
			m.BidWholeLotVolume, err = f.int32()
		case 13:
			m.BidLotVolume, err = f.float()
		case 14:
			m.CreatedAt, err = f.string()
		}
		return err
	})
}

// KrakenOhlcMsg is one OHLC bar. Prices and volume travel as decimal text.
type KrakenOhlcMsg struct {
	Ts       string `yaml:"ts"`
	UnixTime int32  `yaml:"unix_time"`
	Open     string `yaml:"open"`
	High     string `yaml:"high"`
	Low      string `yaml:"low"`
	Close    string `yaml:"close"`
	Vwap     string `yaml:"vwap"`
	Volume   string `yaml:"volume"`
	Count    uint32 `yaml:"count"`
}

// MarshalWire implements Message
func (m *KrakenOhlcMsg) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.Ts)
	b = appendInt32(b, 2, m.UnixTime)
	b = appendString(b, 3, m.Open)
	b = appendString(b, 4, m.High)
	b = appendString(b, 5, m.Low)
	b = appendString(b, 6, m.Close)
	b = appendString(b, 7, m.Vwap)
	b = appendString(b, 8, m.Volume)
	b = appendUint32(b, 9, m.Count)
	return b
}

// UnmarshalWire implements Message
func (m *KrakenOhlcMsg) UnmarshalWire(b []byte) error {
	*m = KrakenOhlcMsg{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Ts, err = f.string()
		case 2:
			m.UnixTime, err = f.int32()
		case 3:
			m.Open, err = f.string()
		case 4:
			m.High, err = f.string()
		case 5:
			m.Low, err = f.string()
		case 6:
			m.Close, err = f.string()
		case 7:
			m.Vwap, err = f.string()
		case 8:
			m.Volume, err = f.string()
		case 9:
			m.Count, err = f.uint32()
		}
		return err
	})
}

// KrakenClient is the client API of the kraken service
type KrakenClient interface {
	Ticker(ctx context.Context, in *KrakenRequest, opts ...grpc.CallOption) (*KrakenTickerMsg, error)
	TickerDay(ctx context.Context, in *KrakenRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[KrakenTickerMsg], error)
	OhlcDay(ctx context.Context, in *KrakenRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[KrakenOhlcMsg], error)
}

type krakenClient struct {
	cc grpc.ClientConnInterface
}

// NewKrakenClient creates a kraken client on top of a connection
func NewKrakenClient(cc grpc.ClientConnInterface) KrakenClient {
	return &krakenClient{cc: cc}
}

// Close closes the underlying connection
func (c *krakenClient) Close() error {
	return closeConn(c.cc)
}

// Conn returns the underlying connection
func (c *krakenClient) Conn() grpc.ClientConnInterface {
	return c.cc
}

func (c *krakenClient) Ticker(ctx context.Context, in *KrakenRequest, opts ...grpc.CallOption) (*KrakenTickerMsg, error) {
	out := new(KrakenTickerMsg)
	if err := c.cc.Invoke(ctx, KrakenTickerMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *krakenClient) TickerDay(ctx context.Context, in *KrakenRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[KrakenTickerMsg], error) {
	return invokeServerStream[KrakenRequest, KrakenTickerMsg](ctx, c.cc, &KrakenServiceDesc.Streams[0], KrakenTickerDayMethod, in, opts...)
}

func (c *krakenClient) OhlcDay(ctx context.Context, in *KrakenRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[KrakenOhlcMsg], error) {
	return invokeServerStream[KrakenRequest, KrakenOhlcMsg](ctx, c.cc, &KrakenServiceDesc.Streams[1], KrakenOhlcDayMethod, in, opts...)
}

// KrakenServer is the server API of the kraken service
type KrakenServer interface {
	Ticker(context.Context, *KrakenRequest) (*KrakenTickerMsg, error)
	TickerDay(*KrakenRequest, grpc.ServerStreamingServer[KrakenTickerMsg]) error
	OhlcDay(*KrakenRequest, grpc.ServerStreamingServer[KrakenOhlcMsg]) error
}

// RegisterKrakenServer registers srv on s
func RegisterKrakenServer(s grpc.ServiceRegistrar, srv KrakenServer) {
	s.RegisterService(&KrakenServiceDesc, srv)
}

// KrakenServiceDesc describes the kraken_proto.Kraken service
var KrakenServiceDesc = grpc.ServiceDesc{
	ServiceName: "kraken_proto.Kraken",
	HandlerType: (*KrakenServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ticker",
			Handler: unaryHandler(KrakenTickerMethod, func(srv any, ctx context.Context, in *KrakenRequest) (*KrakenTickerMsg, error) {
				return srv.(KrakenServer).Ticker(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "TickerDay",
			Handler: serverStreamHandler(func(srv any, in *KrakenRequest, stream grpc.ServerStreamingServer[KrakenTickerMsg]) error {
				return srv.(KrakenServer).TickerDay(in, stream)
			}),
			ServerStreams: true,
		},
		{
			StreamName: "OhlcDay",
			Handler: serverStreamHandler(func(srv any, in *KrakenRequest, stream grpc.ServerStreamingServer[KrakenOhlcMsg]) error {
				return srv.(KrakenServer).OhlcDay(in, stream)
			}),
			ServerStreams: true,
		},
	},
	Metadata: "kraken.proto",
}
