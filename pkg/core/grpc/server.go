package grpc

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/msto63/chainfeed/pkg/core/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

var serverLogger = sync.OnceValue(func() *logging.Logger { return logging.New("grpc-server") })

// ServerConfig describes a feed server listener
type ServerConfig struct {
	Host              string
	Port              int
	MaxRecvMsgSize    int
	MaxSendMsgSize    int
	EnableReflection  bool
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
	Codec             encoding.Codec // overrides content-subtype negotiation
}

// DefaultServerConfig listens on all interfaces at the port the feed
// services use by default
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "0.0.0.0",
		Port:              3088,
		MaxRecvMsgSize:    16 << 20,
		MaxSendMsgSize:    16 << 20,
		EnableReflection:  true,
		KeepaliveInterval: 30 * time.Second,
		KeepaliveTimeout:  10 * time.Second,
	}
}

func (c ServerConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// serverOptions turns cfg into grpc options; extra options are applied last
func serverOptions(cfg ServerConfig, extra []grpc.ServerOption) []grpc.ServerOption {
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.KeepaliveInterval,
			Timeout: cfg.KeepaliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(RecoveryInterceptor(), LoggingInterceptor()),
		grpc.ChainStreamInterceptor(StreamRecoveryInterceptor(), StreamLoggingInterceptor()),
	}
	if cfg.Codec != nil {
		opts = append(opts, grpc.ForceServerCodec(cfg.Codec))
	}
	return append(opts, extra...)
}

// Server hosts feed services next to the standard health service
type Server struct {
	cfg    ServerConfig
	srv    *grpc.Server
	health *grpchealth.Server

	mu  sync.Mutex
	lis net.Listener
}

// NewServer creates a server. Services are added through GRPCServer and
// reported through SetServing.
func NewServer(cfg ServerConfig, opts ...grpc.ServerOption) *Server {
	s := &Server{
		cfg:    cfg,
		srv:    grpc.NewServer(serverOptions(cfg, opts)...),
		health: grpchealth.NewServer(),
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	if cfg.EnableReflection {
		reflection.Register(s.srv)
	}
	return s
}

// GRPCServer is the registrar for service implementations
func (s *Server) GRPCServer() *grpc.Server {
	return s.srv
}

// SetServing sets the status grpc.health.v1 reports for service
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Serve blocks serving lis until Stop
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()
	return s.srv.Serve(lis)
}

// StartAsync binds the configured address and serves in the background
func (s *Server) StartAsync() error {
	lis, err := net.Listen("tcp", s.cfg.addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.addr(), err)
	}

	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	go func() {
		if err := s.srv.Serve(lis); err != nil {
			serverLogger().Error("Serve returned", "address", lis.Addr().String(), "error", err)
		}
	}()
	return nil
}

// Stop marks every service as not serving and drains open calls. Calls
// still running when ctx is done are cut off.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		s.srv.GracefulStop()
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		s.srv.Stop()
	}
}

// Address is the bound address once serving, the configured one before
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return s.lis.Addr().String()
	}
	return s.cfg.addr()
}
