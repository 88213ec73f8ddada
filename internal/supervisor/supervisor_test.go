package supervisor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/msto63/chainfeed/pkg/core/logging"
	"github.com/msto63/chainfeed/pkg/core/metrics"
)

type fakeClient struct {
	endpoint string
	ready    bool
	closed   *atomic.Bool
}

func (c *fakeClient) Close() error {
	c.closed.Store(true)
	return nil
}

// flakyDialer fails the first n calls
type flakyDialer struct {
	mu     sync.Mutex
	fails  int
	calls  int
	closed atomic.Bool
}

func (d *flakyDialer) dial(_ context.Context, endpoint string) (*fakeClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls <= d.fails {
		return nil, errors.New("connection refused")
	}
	return &fakeClient{endpoint: endpoint, ready: true, closed: &d.closed}, nil
}

// recordingAfter returns immediately and remembers every requested wait
type recordingAfter struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingAfter) after(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func withAfter(fn func(time.Duration) <-chan time.Time) Option {
	return func(o *options) { o.after = fn }
}

func bufferLogger() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewLogger(logging.LoggerConfig{
		ServiceName: "test",
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
	}), &buf
}

func TestEnsureConnected_RetriesAtFixedInterval(t *testing.T) {
	tests := []struct {
		name  string
		fails int
	}{
		{"first attempt", 0},
		{"one failure", 1},
		{"several failures", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &flakyDialer{fails: tt.fails}
			rec := &recordingAfter{}
			logger, buf := bufferLogger()
			m := metrics.New(nil)

			s := New("kraken", d.dial, withAfter(rec.after), WithLogger(logger), WithMetrics(m))
			if err := s.EnsureConnected(context.Background(), "127.0.0.1:3088"); err != nil {
				t.Fatalf("EnsureConnected() error = %v", err)
			}

			if d.calls != tt.fails+1 {
				t.Errorf("dial calls = %d, want %d", d.calls, tt.fails+1)
			}
			if len(rec.waits) != tt.fails {
				t.Errorf("waits = %d, want %d", len(rec.waits), tt.fails)
			}
			for i, w := range rec.waits {
				if w != 2*time.Second {
					t.Errorf("wait[%d] = %v, want 2s", i, w)
				}
			}
			if got := strings.Count(buf.String(), "Failed to connect, retrying"); got != tt.fails {
				t.Errorf("failure log lines = %d, want %d", got, tt.fails)
			}
			if got := testutil.ToFloat64(m.ConnectAttempts().WithLabelValues("kraken", "failure")); got != float64(tt.fails) {
				t.Errorf("failure metric = %v, want %d", got, tt.fails)
			}
			if got := testutil.ToFloat64(m.Connected().WithLabelValues("kraken")); got != 1 {
				t.Errorf("connected gauge = %v, want 1", got)
			}

			h, ok := s.Handle()
			if !ok {
				t.Fatal("Handle() not published")
			}
			if h.Attempts != tt.fails+1 {
				t.Errorf("Attempts = %d, want %d", h.Attempts, tt.fails+1)
			}
			if h.Endpoint != "127.0.0.1:3088" {
				t.Errorf("Endpoint = %q, want %q", h.Endpoint, "127.0.0.1:3088")
			}
		})
	}
}

func TestWithRetryInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{"longer interval", 5 * time.Second, 5 * time.Second},
		{"minimum", DefaultRetryInterval, DefaultRetryInterval},
		{"too short", 10 * time.Millisecond, DefaultRetryInterval},
		{"zero", 0, DefaultRetryInterval},
		{"negative", -time.Second, DefaultRetryInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &flakyDialer{fails: 2}
			rec := &recordingAfter{}
			logger, _ := bufferLogger()

			s := New("blocks", d.dial, withAfter(rec.after), WithLogger(logger), WithRetryInterval(tt.interval))
			if err := s.EnsureConnected(context.Background(), "x"); err != nil {
				t.Fatalf("EnsureConnected() error = %v", err)
			}
			if len(rec.waits) != 2 {
				t.Fatalf("waits = %d, want 2", len(rec.waits))
			}
			for i, w := range rec.waits {
				if w != tt.want {
					t.Errorf("wait[%d] = %v, want %v", i, w, tt.want)
				}
			}
		})
	}
}

func TestEnsureConnected_Cancelled(t *testing.T) {
	d := &flakyDialer{fails: 1 << 30}
	logger, _ := bufferLogger()
	never := func(time.Duration) <-chan time.Time { return nil }

	s := New("currency", d.dial, withAfter(never), WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.EnsureConnected(ctx, "x") }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("EnsureConnected() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("EnsureConnected() did not return after cancel")
	}

	if s.State() != StateAbsent {
		t.Errorf("State() = %v, want %v", s.State(), StateAbsent)
	}
}

func TestCurrent_NotConnected(t *testing.T) {
	logger, _ := bufferLogger()
	s := New("blocks", (&flakyDialer{}).dial, WithLogger(logger))

	c, err := s.Current()
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Current() error = %v, want ErrNotConnected", err)
	}
	if c != nil {
		t.Errorf("Current() client = %v, want nil", c)
	}
	if s.State() != StateAbsent {
		t.Errorf("State() = %v, want %v", s.State(), StateAbsent)
	}
}

func TestMustCurrent_Panics(t *testing.T) {
	logger, _ := bufferLogger()
	s := New("blocks", (&flakyDialer{}).dial, WithLogger(logger))

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("MustCurrent() did not panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNotConnected) {
			t.Errorf("panic value = %v, want ErrNotConnected", r)
		}
	}()
	s.MustCurrent()
}

func TestCurrent_ConcurrentReaders(t *testing.T) {
	d := &flakyDialer{fails: 3}
	logger, _ := bufferLogger()
	s := New("kraken", d.dial, withAfter((&recordingAfter{}).after), WithLogger(logger))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var seen atomic.Int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				c, err := s.Current()
				if err != nil {
					continue
				}
				if !c.ready || c.endpoint != "kraken:3088" {
					t.Errorf("observed partially built client %+v", c)
					return
				}
				seen.Add(1)
			}
		}()
	}

	if err := s.EnsureConnected(context.Background(), "kraken:3088"); err != nil {
		t.Fatalf("EnsureConnected() error = %v", err)
	}
	// Reconnecting replaces the handle while readers are active
	if err := s.EnsureConnected(context.Background(), "kraken:3088"); err != nil {
		t.Fatalf("EnsureConnected() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for seen.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("readers never observed the published client")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(stop)
	wg.Wait()

	if s.State() != StateEstablished {
		t.Errorf("State() = %v, want %v", s.State(), StateEstablished)
	}
}

func TestClose(t *testing.T) {
	d := &flakyDialer{}
	logger, _ := bufferLogger()
	m := metrics.New(nil)
	s := New("currency", d.dial, WithLogger(logger), WithMetrics(m))

	if err := s.Close(); err != nil {
		t.Errorf("Close() before connect error = %v", err)
	}

	if err := s.EnsureConnected(context.Background(), "x"); err != nil {
		t.Fatalf("EnsureConnected() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !d.closed.Load() {
		t.Error("client was not closed")
	}
	if _, err := s.Current(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Current() after Close error = %v, want ErrNotConnected", err)
	}
	if got := testutil.ToFloat64(m.Connected().WithLabelValues("currency")); got != 0 {
		t.Errorf("connected gauge = %v, want 0", got)
	}
}
