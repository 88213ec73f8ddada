// Package domain holds the caller facing objects of the feed services and
// the mappers between them and their wire messages.
//
// Inbound mappers never fail: a field that cannot be normalized gets its
// default value and the problem is reported through the returned error,
// which wraps ErrMalformedTimestamp, ErrMalformedNumber or ErrOutOfRange.
package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedTimestamp marks a timestamp field that could not be parsed
	ErrMalformedTimestamp = errors.New("malformed timestamp")

	// ErrMalformedNumber marks a decimal text field that could not be parsed
	ErrMalformedNumber = errors.New("malformed number")

	// ErrOutOfRange marks an integer field too large for its domain type
	ErrOutOfRange = errors.New("value out of range")

	// ErrNilMessage is reported when a mapper receives no message at all
	ErrNilMessage = errors.New("nil message")
)

// DefaultTimestamp replaces timestamps that cannot be parsed
var DefaultTimestamp = time.Unix(0, 0).UTC()

// timestampLayouts are tried in order when parsing wire timestamps. All of
// them carry a zone except the minute layout of OHLC bars, which is UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999 UTC",
	ohlcTsLayout,
}

// ohlcTsLayout is the minute resolution format of KrakenOhlcMsg.Ts
const ohlcTsLayout = "2006-01-02 15:04"

// ParseTimestamp parses a wire timestamp into UTC
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return DefaultTimestamp, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

// FormatTimestamp renders a timestamp for the wire
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Midnight returns 00:00:00 UTC of the day t falls on
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UnixToMinute renders epoch seconds in the minute resolution OHLC format
func UnixToMinute(unixTime int32) string {
	return time.Unix(int64(unixTime), 0).UTC().Format(ohlcTsLayout)
}

// fieldErrors collects per-field normalization problems
type fieldErrors []error

func (e *fieldErrors) add(name string, err error) {
	if err != nil {
		*e = append(*e, fmt.Errorf("%s: %w", name, err))
	}
}

func (e fieldErrors) err() error {
	return errors.Join(e...)
}

// timestamp parses a wire timestamp, recording failures
func (e *fieldErrors) timestamp(name, s string) *time.Time {
	t, err := ParseTimestamp(s)
	e.add(name, err)
	return &t
}

// number parses decimal text, recording failures and yielding 0
func (e *fieldErrors) number(name, s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		e.add(name, fmt.Errorf("%w: %q", ErrMalformedNumber, s))
		return 0
	}
	f, _ := d.Float64()
	return f
}

// int32 narrows an unsigned wire count, clamping at math.MaxInt32
func (e *fieldErrors) int32(name string, v uint32) int32 {
	if v > math.MaxInt32 {
		e.add(name, fmt.Errorf("%w: %d", ErrOutOfRange, v))
		return math.MaxInt32
	}
	return int32(v)
}

// formatNumber renders a float as decimal text without exponent
func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return decimal.NewFromFloat(f).String()
}
