package domain

import (
	"time"

	"github.com/msto63/chainfeed/internal/wire"
)

// Ticker is one ticker snapshot of a trading pair
type Ticker struct {
	ID                int32      `json:"id" db:"id"`
	LastPrice         float32    `json:"last_price" db:"last_price"`
	LastVolume        float32    `json:"last_volume" db:"last_volume"`
	VolumeToday       float32    `json:"volume_today" db:"volume_today"`
	Volume24Hours     float32    `json:"volume_24_hours" db:"volume_24_hours"`
	TradesToday       int32      `json:"trades_today" db:"trades_today"`
	Trades24Hours     int32      `json:"trades_24_hours" db:"trades_24_hours"`
	AskPrice          float32    `json:"ask_price" db:"ask_price"`
	AskWholeLotVolume int32      `json:"ask_whole_lot_volume" db:"ask_whole_lot_volume"`
	AskLotVolume      float32    `json:"ask_lot_volume" db:"ask_lot_volume"`
	BidPrice          float32    `json:"bid_price" db:"bid_price"`
	BidWholeLotVolume int32      `json:"bid_whole_lot_volume" db:"bid_whole_lot_volume"`
	BidLotVolume      float32    `json:"bid_lot_volume" db:"bid_lot_volume"`
	CreatedAt         *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// TickerFromMsg maps a wire ticker
func TickerFromMsg(msg *wire.KrakenTickerMsg) (Ticker, error) {
	if msg == nil {
		return Ticker{}, ErrNilMessage
	}

	var errs fieldErrors
	t := Ticker{
		ID:                msg.ID,
		LastPrice:         msg.LastPrice,
		LastVolume:        msg.LastVolume,
		VolumeToday:       msg.VolumeToday,
		Volume24Hours:     msg.Volume24Hours,
		TradesToday:       msg.TradesToday,
		Trades24Hours:     msg.Trades24Hours,
		AskPrice:          msg.AskPrice,
		AskWholeLotVolume: msg.AskWholeLotVolume,
		AskLotVolume:      msg.AskLotVolume,
		BidPrice:          msg.BidPrice,
		BidWholeLotVolume: msg.BidWholeLotVolume,
		BidLotVolume:      msg.BidLotVolume,
		CreatedAt:         errs.timestamp("created_at", msg.CreatedAt),
	}
	return t, errs.err()
}

// ToMsg maps the ticker to its wire form. A nil CreatedAt is sent as
// DefaultTimestamp.
func (t Ticker) ToMsg() *wire.KrakenTickerMsg {
	createdAt := DefaultTimestamp
	if t.CreatedAt != nil {
		createdAt = *t.CreatedAt
	}
	return &wire.KrakenTickerMsg{
		ID:                t.ID,
		LastPrice:         t.LastPrice,
		LastVolume:        t.LastVolume,
		VolumeToday:       t.VolumeToday,
		Volume24Hours:     t.Volume24Hours,
		TradesToday:       t.TradesToday,
		Trades24Hours:     t.Trades24Hours,
		AskPrice:          t.AskPrice,
		AskWholeLotVolume: t.AskWholeLotVolume,
		AskLotVolume:      t.AskLotVolume,
		BidPrice:          t.BidPrice,
		BidWholeLotVolume: t.BidWholeLotVolume,
		BidLotVolume:      t.BidLotVolume,
		CreatedAt:         FormatTimestamp(createdAt),
	}
}
