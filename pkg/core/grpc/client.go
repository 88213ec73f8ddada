package grpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/keepalive"
)

// ClientConfig holds gRPC client configuration
type ClientConfig struct {
	Target            string
	Secure            bool
	Timeout           time.Duration // Bound for one connect attempt
	MaxRecvMsgSize    int
	MaxSendMsgSize    int
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
	Codec             encoding.Codec // Forced for every call when set
}

// DefaultClientConfig returns a default client configuration for an endpoint.
// The endpoint may be a URI (http:// or https://) or a plain gRPC target.
func DefaultClientConfig(endpoint string) ClientConfig {
	target, secure := ParseEndpoint(endpoint)
	return ClientConfig{
		Target:            target,
		Secure:            secure,
		Timeout:           10 * time.Second,
		MaxRecvMsgSize:    16 * 1024 * 1024, // 16MB
		MaxSendMsgSize:    16 * 1024 * 1024, // 16MB
		KeepaliveInterval: 30 * time.Second,
		KeepaliveTimeout:  10 * time.Second,
	}
}

// ParseEndpoint converts an endpoint URI into a gRPC target.
// https:// selects TLS, http:// plaintext; other values are used as is.
func ParseEndpoint(endpoint string) (target string, secure bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	default:
		return endpoint, false
	}
}

// Dial creates a client connection and waits until it is ready.
// A connection that fails or does not become ready within cfg.Timeout
// is closed and reported as an error.
func Dial(ctx context.Context, cfg ClientConfig, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if cfg.Secure {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	callOpts := []grpc.CallOption{
		grpc.MaxCallRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxCallSendMsgSize(cfg.MaxSendMsgSize),
	}
	if cfg.Codec != nil {
		callOpts = append(callOpts, grpc.ForceCodec(cfg.Codec))
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(callOpts...),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveInterval,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(
			ClientRequestIDInterceptor(),
			ClientLoggingInterceptor(),
		),
		grpc.WithChainStreamInterceptor(
			ClientStreamRequestIDInterceptor(),
			ClientStreamLoggingInterceptor(),
		),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(cfg.Target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.Target, err)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := waitReady(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Target, err)
	}

	return conn, nil
}

// waitReady drives the connection out of idle and blocks until it is
// ready, has failed, or ctx is done
func waitReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure, connectivity.Shutdown:
			return fmt.Errorf("connection state %s", state)
		}
		if !conn.WaitForStateChange(ctx, state) {
			return ctx.Err()
		}
	}
}

// IsHealthy reports whether the connection is in a usable state
func IsHealthy(conn *grpc.ClientConn) bool {
	state := conn.GetState()
	return state == connectivity.Ready || state == connectivity.Idle
}

// ClientDialer returns a function that dials an endpoint with the settings
// of base and wraps the connection with newClient. The endpoint replaces
// base.Target and base.Secure.
func ClientDialer[C any](base ClientConfig, newClient func(grpc.ClientConnInterface) C, opts ...grpc.DialOption) func(context.Context, string) (C, error) {
	return func(ctx context.Context, endpoint string) (C, error) {
		cfg := base
		cfg.Target, cfg.Secure = ParseEndpoint(endpoint)

		conn, err := Dial(ctx, cfg, opts...)
		if err != nil {
			var zero C
			return zero, err
		}
		return newClient(conn), nil
	}
}
