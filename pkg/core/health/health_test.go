package health

import (
	"context"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func fixed(status Status) func(context.Context) CheckResult {
	return func(context.Context) CheckResult {
		return CheckResult{Status: status, Message: string(status)}
	}
}

func TestRegistry_OverallStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   Status
	}{
		{"no checks", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"unknown ignored", []Status{StatusHealthy, StatusUnknown}, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry("chainfeed", "1.0.0")
			for i, s := range tt.checks {
				r.RegisterFunc(string(rune('a'+i)), fixed(s))
			}

			report := r.Check(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("Checks = %d, want %d", len(report.Checks), len(tt.checks))
			}
		})
	}
}

func TestRegistry_ReportFields(t *testing.T) {
	r := NewRegistry("chainfeed", "1.2.3")
	r.RegisterFunc("kraken", fixed(StatusHealthy))
	r.RegisterFunc("blocks", fixed(StatusHealthy))
	r.Register(NewChecker("currency", func(context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	}))

	report := r.CheckWithTimeout(time.Second)

	if report.Service != "chainfeed" || report.Version != "1.2.3" {
		t.Errorf("report = %s/%s, want chainfeed/1.2.3", report.Service, report.Version)
	}
	names := []string{}
	for _, c := range report.Checks {
		names = append(names, c.Name)
		if c.Timestamp.IsZero() {
			t.Errorf("check %s has no timestamp", c.Name)
		}
	}
	if got := strings.Join(names, ","); got != "blocks,currency,kraken" {
		t.Errorf("check order = %s, want blocks,currency,kraken", got)
	}
	if !strings.Contains(report.String(), "chainfeed 1.2.3: healthy") {
		t.Errorf("String() = %q", report.String())
	}
}

func TestRegistry_ChecksRunConcurrently(t *testing.T) {
	r := NewRegistry("chainfeed", "dev")
	var running, peak atomic.Int32
	for i := 0; i < 4; i++ {
		r.RegisterFunc(string(rune('a'+i)), func(context.Context) CheckResult {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return CheckResult{Status: StatusHealthy}
		})
	}

	r.Check(context.Background())
	if peak.Load() < 2 {
		t.Errorf("peak concurrency = %d, want >= 2", peak.Load())
	}
}

func TestConnectionCheck(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		info ConnectionInfo
		want Status
	}{
		{"absent", ConnectionInfo{}, StatusUnhealthy},
		{"established", ConnectionInfo{Connected: true, Endpoint: "127.0.0.1:3088", ConnectedAt: since, Attempts: 3}, StatusHealthy},
		{"transport ready", ConnectionInfo{Connected: true, Transport: "READY", Usable: true}, StatusHealthy},
		{"transport failing", ConnectionInfo{Connected: true, Transport: "TRANSIENT_FAILURE"}, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ConnectionCheck("kraken", func() ConnectionInfo { return tt.info })
			res := c.Check(context.Background())
			if res.Status != tt.want {
				t.Errorf("Status = %v, want %v", res.Status, tt.want)
			}
			if tt.info.Connected {
				if res.Details["endpoint"] != "127.0.0.1:3088" {
					t.Errorf("endpoint = %v, want 127.0.0.1:3088", res.Details["endpoint"])
				}
				if res.Details["attempts"] != 3 {
					t.Errorf("attempts = %v, want 3", res.Details["attempts"])
				}
			}
		})
	}
}

func TestGRPCCheck(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go srv.Serve(lis)
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer conn.Close()

	have := func() (grpc.ClientConnInterface, bool) { return conn, true }
	none := func() (grpc.ClientConnInterface, bool) { return nil, false }

	hs.SetServingStatus("kraken_proto.Kraken", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("blocks_proto.Blocks", healthpb.HealthCheckResponse_NOT_SERVING)

	tests := []struct {
		name    string
		service string
		conn    func() (grpc.ClientConnInterface, bool)
		want    Status
	}{
		{"serving", "kraken_proto.Kraken", have, StatusHealthy},
		{"not serving", "blocks_proto.Blocks", have, StatusDegraded},
		{"unknown service", "nope.Nope", have, StatusDegraded},
		{"no connection", "kraken_proto.Kraken", none, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := GRPCCheck("probe", tt.service, 5*time.Second, tt.conn).Check(context.Background())
			if res.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", res.Status, tt.want, res.Message)
			}
		})
	}
}
