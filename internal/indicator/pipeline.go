package indicator

import (
	"fmt"
	"math"
	"time"

	"screener-systemv1/internal/model"
)

// Standard warm-up periods for the screener's vector fields.
const (
	RSIPeriod        = 14
	SMAShortPeriod   = 20
	SMAMidPeriod     = 50
	SMALongPeriod    = 200
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
)

// IntegrityError reports corrupt bar data: out-of-order timestamps or
// non-finite values. The caller must keep the symbol's previous vector
// rather than publish derived garbage.
type IntegrityError struct {
	Symbol string
	Index  int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("bar data integrity for %s at index %d: %s", e.Symbol, e.Index, e.Reason)
}

// Compute derives an IndicatorVector from a symbol's chronological bar
// history. Insufficient history is never an error — dependent fields are
// simply omitted. Corrupt input returns an *IntegrityError and no vector.
func Compute(symbol string, bars []model.PriceBar, prevClose float64, now time.Time) (*model.IndicatorVector, error) {
	if err := validateBars(symbol, bars); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, &IntegrityError{Symbol: symbol, Index: 0, Reason: "empty bar history"}
	}

	rsi := NewRSI(RSIPeriod)
	sma20 := NewSMA(SMAShortPeriod)
	sma50 := NewSMA(SMAMidPeriod)
	sma200 := NewSMA(SMALongPeriod)
	ema12 := NewEMA(MACDFastPeriod)
	ema26 := NewEMA(MACDSlowPeriod)
	macd := NewMACD(MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)

	all := []Indicator{rsi, sma20, sma50, sma200, ema12, ema26, macd}
	for _, bar := range bars {
		for _, ind := range all {
			ind.Update(bar.Close)
		}
	}

	last := bars[len(bars)-1]
	v := &model.IndicatorVector{
		Symbol:    symbol,
		Price:     last.Close,
		Volume:    last.Volume,
		UpdatedAt: now,
	}
	if prevClose != 0 {
		v.ChangePercent = (last.Close - prevClose) / prevClose * 100
	}

	setIfReady := func(dst **float64, ind Indicator) {
		if ind.Ready() {
			*dst = model.Float64Ptr(ind.Value())
		}
	}
	setIfReady(&v.RSI14, rsi)
	setIfReady(&v.SMA20, sma20)
	setIfReady(&v.SMA50, sma50)
	setIfReady(&v.SMA200, sma200)
	setIfReady(&v.EMA12, ema12)
	setIfReady(&v.EMA26, ema26)

	// MACD is published as an atomic triple: only once the signal-line
	// warm-up has elapsed on top of both EMAs.
	if macd.Ready() && macd.SignalReady() {
		v.MACD = &model.MACD{
			Value:     macd.Value(),
			Signal:    macd.Signal(),
			Histogram: macd.Histogram(),
		}
	}

	return v, nil
}

// validateBars rejects out-of-order or non-finite bar data.
func validateBars(symbol string, bars []model.PriceBar) error {
	var prev time.Time
	for i, b := range bars {
		if i > 0 && !b.TS.After(prev) {
			return &IntegrityError{Symbol: symbol, Index: i, Reason: "timestamps not strictly increasing"}
		}
		prev = b.TS
		for _, f := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return &IntegrityError{Symbol: symbol, Index: i, Reason: "non-finite value"}
			}
		}
	}
	return nil
}
