package wire

import (
	"context"

	"google.golang.org/grpc"
)

// CurrencyGetCurrencyMethod is the full method name of GetCurrency
const CurrencyGetCurrencyMethod = "/currency_proto.Currency/GetCurrency"

// CurrencyRequest asks for the latest currency snapshot
type CurrencyRequest struct {
	Input string
}

// MarshalWire implements Message
func (m *CurrencyRequest) MarshalWire() []byte {
	return appendString(nil, 1, m.Input)
}

// UnmarshalWire implements Message
func (m *CurrencyRequest) UnmarshalWire(b []byte) error {
	*m = CurrencyRequest{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.Input, err = f.string()
		}
		return err
	})
}

// CurrencyMsg is one exchange rate snapshot. Ts is epoch seconds on the
// wire; the domain side keeps milliseconds.
type CurrencyMsg struct {
	CreatedAt string  `yaml:"created_at"`
	DKK       float32 `yaml:"dkk"`
	EUR       float32 `yaml:"eur"`
	GBP       float32 `yaml:"gbp"`
	BTC       float32 `yaml:"btc"`
	ETH       float32 `yaml:"eth"`
	Ts        int32   `yaml:"ts"`
}

// MarshalWire implements Message
func (m *CurrencyMsg) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.CreatedAt)
	b = appendFloat(b, 2, m.DKK)
	b = appendFloat(b, 3, m.EUR)
	b = appendFloat(b, 4, m.GBP)
	b = appendFloat(b, 5, m.BTC)
	b = appendFloat(b, 6, m.ETH)
	b = appendInt32(b, 7, m.Ts)
	return b
}

// UnmarshalWire implements Message
func (m *CurrencyMsg) UnmarshalWire(b []byte) error {
	*m = CurrencyMsg{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.CreatedAt, err = f.string()
		case 2:
			m.DKK, err = f.float()
		case 3:
			m.EUR, err = f.float()
		case 4:
			m.GBP, err = f.float()
		case 5:
			m.BTC, err = f.float()
		case 6:
			m.ETH, err = f.float()
		case 7:
			m.Ts, err = f.int32()
		}
		return err
	})
}

// CurrencyClient is the client API of the currency service
type CurrencyClient interface {
	GetCurrency(ctx context.Context, in *CurrencyRequest, opts ...grpc.CallOption) (*CurrencyMsg, error)
}

type currencyClient struct {
	cc grpc.ClientConnInterface
}

// NewCurrencyClient creates a currency client on top of a connection
func NewCurrencyClient(cc grpc.ClientConnInterface) CurrencyClient {
	return &currencyClient{cc: cc}
}

// Close closes the underlying connection
func (c *currencyClient) Close() error {
	return closeConn(c.cc)
}

// Conn returns the underlying connection
func (c *currencyClient) Conn() grpc.ClientConnInterface {
	return c.cc
}

func (c *currencyClient) GetCurrency(ctx context.Context, in *CurrencyRequest, opts ...grpc.CallOption) (*CurrencyMsg, error) {
	out := new(CurrencyMsg)
	if err := c.cc.Invoke(ctx, CurrencyGetCurrencyMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CurrencyServer is the server API of the currency service
type CurrencyServer interface {
	GetCurrency(context.Context, *CurrencyRequest) (*CurrencyMsg, error)
}

// RegisterCurrencyServer registers srv on s
func RegisterCurrencyServer(s grpc.ServiceRegistrar, srv CurrencyServer) {
	s.RegisterService(&CurrencyServiceDesc, srv)
}

// CurrencyServiceDesc describes the currency_proto.Currency service
var CurrencyServiceDesc = grpc.ServiceDesc{
	ServiceName: "currency_proto.Currency",
	HandlerType: (*CurrencyServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetCurrency",
			Handler: unaryHandler(CurrencyGetCurrencyMethod, func(srv any, ctx context.Context, in *CurrencyRequest) (*CurrencyMsg, error) {
				return srv.(CurrencyServer).GetCurrency(ctx, in)
			}),
		},
	},
	Metadata: "currency.proto",
}
