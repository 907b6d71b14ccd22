package model

import (
	"encoding/json"
	"time"
)

// PriceBar represents a single OHLCV bar for one symbol.
// Bars arrive in chronological order with strictly increasing timestamps
// and are immutable once handed to the pipeline.
type PriceBar struct {
	TS         time.Time `json:"ts"` // bar timestamp (UTC)
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	VWAP       *float64  `json:"vwap,omitempty"`
	TradeCount *int64    `json:"trade_count,omitempty"`
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *PriceBar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}
