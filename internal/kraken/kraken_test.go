package kraken

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/msto63/chainfeed/internal/domain"
	"github.com/msto63/chainfeed/internal/fetch"
	"github.com/msto63/chainfeed/internal/supervisor"
	"github.com/msto63/chainfeed/internal/wire"
	"github.com/msto63/chainfeed/pkg/core/logging"
)

type stream[T any] struct {
	grpc.ClientStream
	msgs []*T
}

func (s *stream[T]) Recv() (*T, error) {
	if len(s.msgs) == 0 {
		return nil, io.EOF
	}
	m := s.msgs[0]
	s.msgs = s.msgs[1:]
	return m, nil
}

type fakeClient struct {
	ticker    *wire.KrakenTickerMsg
	tickerDay []*wire.KrakenTickerMsg
	ohlc      []*wire.KrakenOhlcMsg
	err       error

	intervals []int32
}

func (c *fakeClient) Ticker(_ context.Context, in *wire.KrakenRequest, _ ...grpc.CallOption) (*wire.KrakenTickerMsg, error) {
	c.intervals = append(c.intervals, in.Interval)
	if c.err != nil {
		return nil, c.err
	}
	return c.ticker, nil
}

func (c *fakeClient) TickerDay(_ context.Context, in *wire.KrakenRequest, _ ...grpc.CallOption) (grpc.ServerStreamingClient[wire.KrakenTickerMsg], error) {
	c.intervals = append(c.intervals, in.Interval)
	if c.err != nil {
		return nil, c.err
	}
	return &stream[wire.KrakenTickerMsg]{msgs: c.tickerDay}, nil
}

func (c *fakeClient) OhlcDay(_ context.Context, in *wire.KrakenRequest, _ ...grpc.CallOption) (grpc.ServerStreamingClient[wire.KrakenOhlcMsg], error) {
	c.intervals = append(c.intervals, in.Interval)
	if c.err != nil {
		return nil, c.err
	}
	return &stream[wire.KrakenOhlcMsg]{msgs: c.ohlc}, nil
}

func newService(t *testing.T, client *fakeClient) *Service {
	t.Helper()
	logger := logging.NewLogger(logging.LoggerConfig{ServiceName: "test", Output: &bytes.Buffer{}})
	sup := supervisor.New(ServiceName, func(context.Context, string) (wire.KrakenClient, error) {
		return client, nil
	}, supervisor.WithLogger(logger))

	if client != nil {
		if err := sup.EnsureConnected(context.Background(), "127.0.0.1:3088"); err != nil {
			t.Fatalf("EnsureConnected() error = %v", err)
		}
	}
	return New(sup, logger, nil)
}

func TestTicker(t *testing.T) {
	client := &fakeClient{ticker: &wire.KrakenTickerMsg{
		ID:        7,
		LastPrice: 42.5,
		CreatedAt: "2024-01-01T00:00:00Z",
	}}
	s := newService(t, client)

	got := s.Ticker(context.Background(), 7)

	if got.LastPrice != 42.5 {
		t.Errorf("LastPrice = %v, want 42.5", got.LastPrice)
	}
	if got.ID != 7 {
		t.Errorf("ID = %v, want 7", got.ID)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got.CreatedAt == nil || !got.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want)
	}
	if len(client.intervals) != 1 || client.intervals[0] != 7 {
		t.Errorf("requested intervals = %v, want [7]", client.intervals)
	}
}

func TestTicker_MalformedCreatedAt(t *testing.T) {
	s := newService(t, &fakeClient{ticker: &wire.KrakenTickerMsg{
		ID:        7,
		LastPrice: 42.5,
		CreatedAt: "yesterday",
	}})

	got, err := s.TryTicker(context.Background(), 7)
	if err != nil {
		t.Fatalf("TryTicker() error = %v", err)
	}
	if got.LastPrice != 42.5 || got.ID != 7 {
		t.Errorf("Ticker = %+v, want LastPrice 42.5 and ID 7", got)
	}
	if got.CreatedAt == nil || !got.CreatedAt.Equal(domain.DefaultTimestamp) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, domain.DefaultTimestamp)
	}
}

func TestTicker_TransportError(t *testing.T) {
	s := newService(t, &fakeClient{err: status.Error(codes.Unavailable, "connection refused")})

	if got := s.Ticker(context.Background(), 7); got != (domain.Ticker{}) {
		t.Errorf("Ticker() = %+v, want zero value", got)
	}

	_, err := s.TryTicker(context.Background(), 7)
	if status.Code(errors.Unwrap(err)) != codes.Unavailable {
		t.Errorf("TryTicker() error = %v, want Unavailable", err)
	}
}

func TestTicker_NotConnected(t *testing.T) {
	s := newService(t, nil)

	if got := s.Ticker(context.Background(), 7); got != (domain.Ticker{}) {
		t.Errorf("Ticker() = %+v, want zero value", got)
	}
	if _, err := s.TryTicker(context.Background(), 7); !errors.Is(err, supervisor.ErrNotConnected) {
		t.Errorf("TryTicker() error = %v, want ErrNotConnected", err)
	}
}

func TestMondayTicker(t *testing.T) {
	client := &fakeClient{ticker: &wire.KrakenTickerMsg{ID: 1, CreatedAt: "2024-06-03T00:00:00Z"}}
	s := newService(t, client)

	got := s.MondayTicker(context.Background())

	if got.ID != 1 {
		t.Errorf("ID = %v, want 1", got.ID)
	}
	if len(client.intervals) != 1 || client.intervals[0] != IntervalMonday {
		t.Errorf("requested intervals = %v, want [%d]", client.intervals, IntervalMonday)
	}
}

func TestTickerDayFirst(t *testing.T) {
	tests := []struct {
		name    string
		msgs    []*wire.KrakenTickerMsg
		wantID  int32
		wantErr error
	}{
		{
			name: "first of several",
			msgs: []*wire.KrakenTickerMsg{
				{ID: 11, CreatedAt: "2024-01-01T00:00:00Z"},
				{ID: 12, CreatedAt: "2024-01-01T00:01:00Z"},
			},
			wantID: 11,
		},
		{
			name:    "empty stream",
			wantErr: fetch.ErrEmptyStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{tickerDay: tt.msgs}
			s := newService(t, client)

			got, err := s.TryTickerDayFirst(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("TryTickerDayFirst() error = %v, want %v", err, tt.wantErr)
			}
			if got.ID != tt.wantID {
				t.Errorf("ID = %v, want %v", got.ID, tt.wantID)
			}
			if client.intervals[0] != IntervalDay {
				t.Errorf("interval = %d, want %d", client.intervals[0], IntervalDay)
			}

			client.tickerDay = tt.msgs
			if got := s.TickerDayFirst(context.Background()); got.ID != tt.wantID {
				t.Errorf("TickerDayFirst().ID = %v, want %v", got.ID, tt.wantID)
			}
		})
	}
}

func TestFirstOhlcBar(t *testing.T) {
	client := &fakeClient{ohlc: []*wire.KrakenOhlcMsg{
		{Ts: "2024-01-02 03:04", UnixTime: 1704164640, Open: "42000.5", High: "42100", Low: "41900.25", Close: "42050", Vwap: "42010.1", Volume: "12.5", Count: 321},
		{Ts: "2024-01-02 03:05", UnixTime: 1704164700, Open: "1"},
	}}
	s := newService(t, client)

	got := s.FirstOhlcBar(context.Background(), 60)

	if got.UnixTime != 1704164640 {
		t.Errorf("UnixTime = %v, want 1704164640", got.UnixTime)
	}
	if got.Open != 42000.5 || got.Low != 41900.25 || got.Volume != 12.5 {
		t.Errorf("bar = %+v, want parsed decimal fields", got)
	}
	if got.Count != 321 {
		t.Errorf("Count = %v, want 321", got.Count)
	}
	if client.intervals[0] != 60 {
		t.Errorf("interval = %d, want 60", client.intervals[0])
	}
}

func TestFirstOhlcBar_Empty(t *testing.T) {
	s := newService(t, &fakeClient{})

	if got := s.FirstOhlcBar(context.Background(), 60); got != (domain.OhlcBar{}) {
		t.Errorf("FirstOhlcBar() = %+v, want zero value", got)
	}
}
