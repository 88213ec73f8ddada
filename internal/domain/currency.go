package domain

import (
	"time"

	"github.com/msto63/chainfeed/internal/wire"
)

// Currency is one exchange rate snapshot
type Currency struct {
	Ts        int64      `json:"ts" db:"ts"`
	DKK       float32    `json:"dkk" db:"dkk"`
	EUR       float32    `json:"eur" db:"eur"`
	GBP       float32    `json:"gbp" db:"gbp"`
	BTC       float32    `json:"btc" db:"btc"`
	ETH       float32    `json:"eth" db:"eth"`
	CreatedAt *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// CurrencyFromMsg maps a wire snapshot. Ts is taken at face value.
// CreatedAt stays nil when the wire carries no created_at.
func CurrencyFromMsg(msg *wire.CurrencyMsg) (Currency, error) {
	if msg == nil {
		return Currency{}, ErrNilMessage
	}

	var errs fieldErrors
	c := Currency{
		Ts:  int64(msg.Ts),
		DKK: msg.DKK,
		EUR: msg.EUR,
		GBP: msg.GBP,
		BTC: msg.BTC,
		ETH: msg.ETH,
	}
	if msg.CreatedAt != "" {
		c.CreatedAt = errs.timestamp("created_at", msg.CreatedAt)
	}
	return c, errs.err()
}

// ToMsg maps the snapshot to its wire form, scaling Ts from milliseconds
// down to seconds. A nil receiver yields an empty message. CreatedAt must
// be set on a non-nil receiver; a nil CreatedAt panics.
func (c *Currency) ToMsg() *wire.CurrencyMsg {
	if c == nil {
		return &wire.CurrencyMsg{}
	}
	if c.CreatedAt == nil {
		panic("domain: Currency.ToMsg requires CreatedAt")
	}
	return &wire.CurrencyMsg{
		CreatedAt: FormatTimestamp(*c.CreatedAt),
		DKK:       c.DKK,
		EUR:       c.EUR,
		GBP:       c.GBP,
		BTC:       c.BTC,
		ETH:       c.ETH,
		Ts:        int32(c.Ts / 1000),
	}
}
