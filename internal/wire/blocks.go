package wire

import (
	"context"

	"google.golang.org/grpc"
)

// Full method names of the blocks service
const (
	BlocksGetBlockMethod  = "/blocks_proto.Blocks/GetBlock"
	BlocksGetBlocksMethod = "/blocks_proto.Blocks/GetBlocks"
)

// BlocksRequest selects a block by height or hash
type BlocksRequest struct {
	Height int64
	Hash   string
}

// MarshalWire implements Message
func (m *BlocksRequest) MarshalWire() []byte {
	var b []byte
	b = appendInt64(b, 1, m.Height)
	b = appendString(b, 2, m.Hash)
	return b
}

// UnmarshalWire implements Message
func (m *BlocksRequest) UnmarshalWire(b []byte) error {
	*m = BlocksRequest{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Height, err = f.int64()
		case 2:
			m.Hash, err = f.string()
		}
		return err
	})
}

// BlockMsg is one block header as sent by the blocks service
type BlockMsg struct {
	ID                string  `yaml:"id"`
	Height            int64   `yaml:"height"`
	Version           int64   `yaml:"version"`
	Timestamp         int64   `yaml:"timestamp"`
	TxCount           int64   `yaml:"tx_count"`
	Size              int64   `yaml:"size"`
	Weight            int64   `yaml:"weight"`
	MerkleRoot        string  `yaml:"merkle_root"`
	PreviousBlockHash string  `yaml:"previousblockhash"`
	MedianTime        int64   `yaml:"mediantime"`
	Nonce             int64   `yaml:"nonce"`
	Bits              int64   `yaml:"bits"`
	Difficulty        float64 `yaml:"difficulty"`
	CreatedAt         string  `yaml:"created_at"`
}

// MarshalWire implements Message
func (m *BlockMsg) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.ID)
	b = appendInt64(b, 2, m.Height)
	b = appendInt64(b, 3, m.Version)
	b = appendInt64(b, 4, m.Timestamp)
	b = appendInt64(b, 5, m.TxCount)
	b = appendInt64(b, 6, m.Size)
	b = appendInt64(b, 7, m.Weight)
	b = appendString(b, 8, m.MerkleRoot)
	b = appendString(b, 9, m.PreviousBlockHash)
	b = appendInt64(b, 10, m.MedianTime)
	b = appendInt64(b, 11, m.Nonce)
	b = appendInt64(b, 12, m.Bits)
	b = appendDouble(b, 13, m.Difficulty)
	b = appendString(b, 14, m.CreatedAt)
	return b
}

// UnmarshalWire implements Message
func (m *BlockMsg) UnmarshalWire(b []byte) error {
	*m = BlockMsg{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.ID, err = f.string()
		case 2:
			m.Height, err = f.int64()
		case 3:
			m.Version, err = f.int64()
		case 4:
			m.Timestamp, err = f.int64()
		case 5:
			m.TxCount, err = f.int64()
		case 6:
			m.Size, err = f.int64()
		case 7:
			m.Weight, err = f.int64()
		case 8:
			m.MerkleRoot, err = f.string()
		case 9:
			m.PreviousBlockHash, err = f.string()
		case 10:
			m.MedianTime, err = f.int64()
		case 11:
			m.Nonce, err = f.int64()
		case 12:
			m.Bits, err = f.int64()
		case 13:
			m.Difficulty, err = f.double()
		case 14:
			m.CreatedAt, err = f.string()
		}
		return err
	})
}

// BlocksClient is the client API of the blocks service
type BlocksClient interface {
	GetBlock(ctx context.Context, in *BlocksRequest, opts ...grpc.CallOption) (*BlockMsg, error)
	GetBlocks(ctx context.Context, in *BlocksRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[BlockMsg], error)
}

type blocksClient struct {
	cc grpc.ClientConnInterface
}

// NewBlocksClient creates a blocks client on top of a connection
func NewBlocksClient(cc grpc.ClientConnInterface) BlocksClient {
	return &blocksClient{cc: cc}
}

// Close closes the underlying connection
func (c *blocksClient) Close() error {
	return closeConn(c.cc)
}

// Conn returns the underlying connection
func (c *blocksClient) Conn() grpc.ClientConnInterface {
	return c.cc
}

func (c *blocksClient) GetBlock(ctx context.Context, in *BlocksRequest, opts ...grpc.CallOption) (*BlockMsg, error) {
	out := new(BlockMsg)
	if err := c.cc.Invoke(ctx, BlocksGetBlockMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *blocksClient) GetBlocks(ctx context.Context, in *BlocksRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[BlockMsg], error) {
	return invokeServerStream[BlocksRequest, BlockMsg](ctx, c.cc, &BlocksServiceDesc.Streams[0], BlocksGetBlocksMethod, in, opts...)
}

// BlocksServer is the server API of the blocks service
type BlocksServer interface {
	GetBlock(context.Context, *BlocksRequest) (*BlockMsg, error)
	GetBlocks(*BlocksRequest, grpc.ServerStreamingServer[BlockMsg]) error
}

// RegisterBlocksServer registers srv on s
func RegisterBlocksServer(s grpc.ServiceRegistrar, srv BlocksServer) {
	s.RegisterService(&BlocksServiceDesc, srv)
}

// BlocksServiceDesc describes the blocks_proto.Blocks service
var BlocksServiceDesc = grpc.ServiceDesc{
	ServiceName: "blocks_proto.Blocks",
	HandlerType: (*BlocksServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetBlock",
			Handler: unaryHandler(BlocksGetBlockMethod, func(srv any, ctx context.Context, in *BlocksRequest) (*BlockMsg, error) {
				return srv.(BlocksServer).GetBlock(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "GetBlocks",
			Handler: serverStreamHandler(func(srv any, in *BlocksRequest, stream grpc.ServerStreamingServer[BlockMsg]) error {
				return srv.(BlocksServer).GetBlocks(in, stream)
			}),
			ServerStreams: true,
		},
	},
	Metadata: "blocks.proto",
}
