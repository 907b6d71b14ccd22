// Package screener evaluates declarative filters against indicator
// vector snapshots. Evaluation is pure and stateless: identical
// (filter, snapshot) input always yields an identical result.
package screener

import "screener-systemv1/internal/model"

// Field identifies a selectable numeric field of an IndicatorVector.
// The set is closed: unknown field names are rejected when a filter is
// registered, never at evaluation time.
type Field string

const (
	FieldPrice         Field = "price"
	FieldVolume        Field = "volume"
	FieldChangePercent Field = "changePercent"
	FieldRSI14         Field = "rsi14"
	FieldSMA20         Field = "sma20"
	FieldSMA50         Field = "sma50"
	FieldSMA200        Field = "sma200"
	FieldEMA12         Field = "ema12"
	FieldEMA26         Field = "ema26"
	FieldMACD          Field = "macd"
	FieldMACDSignal    Field = "macdSignal"
	FieldMACDHistogram Field = "macdHistogram"
)

// accessor extracts a field value from a vector. ok is false when the
// field is absent (indicator still warming up).
type accessor func(v *model.IndicatorVector) (value float64, ok bool)

var fieldAccessors = map[Field]accessor{
	FieldPrice:         func(v *model.IndicatorVector) (float64, bool) { return v.Price, true },
	FieldVolume:        func(v *model.IndicatorVector) (float64, bool) { return v.Volume, true },
	FieldChangePercent: func(v *model.IndicatorVector) (float64, bool) { return v.ChangePercent, true },
	FieldRSI14:         func(v *model.IndicatorVector) (float64, bool) { return deref(v.RSI14) },
	FieldSMA20:         func(v *model.IndicatorVector) (float64, bool) { return deref(v.SMA20) },
	FieldSMA50:         func(v *model.IndicatorVector) (float64, bool) { return deref(v.SMA50) },
	FieldSMA200:        func(v *model.IndicatorVector) (float64, bool) { return deref(v.SMA200) },
	FieldEMA12:         func(v *model.IndicatorVector) (float64, bool) { return deref(v.EMA12) },
	FieldEMA26:         func(v *model.IndicatorVector) (float64, bool) { return deref(v.EMA26) },
	FieldMACD: func(v *model.IndicatorVector) (float64, bool) {
		if v.MACD == nil {
			return 0, false
		}
		return v.MACD.Value, true
	},
	FieldMACDSignal: func(v *model.IndicatorVector) (float64, bool) {
		if v.MACD == nil {
			return 0, false
		}
		return v.MACD.Signal, true
	},
	FieldMACDHistogram: func(v *model.IndicatorVector) (float64, bool) {
		if v.MACD == nil {
			return 0, false
		}
		return v.MACD.Histogram, true
	},
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Valid reports whether f names a selectable field.
func (f Field) Valid() bool {
	_, ok := fieldAccessors[f]
	return ok
}

// Lookup extracts this field's value from a vector.
func (f Field) Lookup(v *model.IndicatorVector) (float64, bool) {
	acc, ok := fieldAccessors[f]
	if !ok {
		return 0, false
	}
	return acc(v)
}
