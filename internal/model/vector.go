package model

import (
	"encoding/json"
	"time"
)

// MACD holds the MACD line, its signal line and the histogram.
// The three values are published together or not at all — a vector never
// carries a partially computed MACD.
type MACD struct {
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// IndicatorVector is the cached per-symbol bundle of the latest price,
// volume and technical-indicator values. Price, Volume and ChangePercent
// are always present for a tracked symbol; the remaining fields are nil
// until their warm-up period has elapsed.
//
// Vectors are immutable once published: the store replaces the whole
// pointer on refresh, never individual fields.
type IndicatorVector struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Volume        float64   `json:"volume"`
	ChangePercent float64   `json:"changePercent"`
	RSI14         *float64  `json:"rsi14,omitempty"`
	SMA20         *float64  `json:"sma20,omitempty"`
	SMA50         *float64  `json:"sma50,omitempty"`
	SMA200        *float64  `json:"sma200,omitempty"`
	EMA12         *float64  `json:"ema12,omitempty"`
	EMA26         *float64  `json:"ema26,omitempty"`
	MACD          *MACD     `json:"macd,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// JSON returns the JSON-encoded vector.
func (v *IndicatorVector) JSON() []byte {
	out, _ := json.Marshal(v)
	return out
}

// Equal reports whether two vectors carry identical values, ignoring
// UpdatedAt. Used by the coordinator to suppress redundant broadcasts.
func (v *IndicatorVector) Equal(o *IndicatorVector) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.Symbol != o.Symbol || v.Price != o.Price || v.Volume != o.Volume ||
		v.ChangePercent != o.ChangePercent {
		return false
	}
	if !floatPtrEq(v.RSI14, o.RSI14) || !floatPtrEq(v.SMA20, o.SMA20) ||
		!floatPtrEq(v.SMA50, o.SMA50) || !floatPtrEq(v.SMA200, o.SMA200) ||
		!floatPtrEq(v.EMA12, o.EMA12) || !floatPtrEq(v.EMA26, o.EMA26) {
		return false
	}
	if (v.MACD == nil) != (o.MACD == nil) {
		return false
	}
	if v.MACD != nil && *v.MACD != *o.MACD {
		return false
	}
	return true
}

func floatPtrEq(a, b *float64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// Float64Ptr returns a pointer to v. Helper for building vectors.
func Float64Ptr(v float64) *float64 { return &v }
