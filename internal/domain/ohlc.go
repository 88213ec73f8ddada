package domain

import (
	"time"

	"github.com/msto63/chainfeed/internal/wire"
)

// OhlcBar is one open/high/low/close bar
type OhlcBar struct {
	UnixTime  int32      `json:"unix_time" db:"unix_time"`
	Open      float64    `json:"open" db:"open"`
	High      float64    `json:"high" db:"high"`
	Low       float64    `json:"low" db:"low"`
	Close     float64    `json:"close" db:"close"`
	Vwap      float64    `json:"vwap" db:"vwap"`
	Volume    float64    `json:"volume" db:"volume"`
	Count     int32      `json:"count" db:"count"`
	CreatedAt *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// OhlcBarFromMsg maps a wire bar. Every decimal text field that does not
// parse becomes 0 and is reported in err. A count above math.MaxInt32 is
// clamped and reported as well.
func OhlcBarFromMsg(msg *wire.KrakenOhlcMsg) (OhlcBar, error) {
	if msg == nil {
		return OhlcBar{}, ErrNilMessage
	}

	var errs fieldErrors
	bar := OhlcBar{
		UnixTime:  msg.UnixTime,
		Open:      errs.number("open", msg.Open),
		High:      errs.number("high", msg.High),
		Low:       errs.number("low", msg.Low),
		Close:     errs.number("close", msg.Close),
		Vwap:      errs.number("vwap", msg.Vwap),
		Volume:    errs.number("volume", msg.Volume),
		Count:     errs.int32("count", msg.Count),
		CreatedAt: errs.timestamp("ts", msg.Ts),
	}
	return bar, errs.err()
}

// ToMsg maps the bar to its wire form. Ts is derived from UnixTime.
func (b OhlcBar) ToMsg() *wire.KrakenOhlcMsg {
	count := uint32(0)
	if b.Count > 0 {
		count = uint32(b.Count)
	}
	return &wire.KrakenOhlcMsg{
		Ts:       UnixToMinute(b.UnixTime),
		UnixTime: b.UnixTime,
		Open:     formatNumber(b.Open),
		High:     formatNumber(b.High),
		Low:      formatNumber(b.Low),
		Close:    formatNumber(b.Close),
		Vwap:     formatNumber(b.Vwap),
		Volume:   formatNumber(b.Volume),
		Count:    count,
	}
}
