package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"screener-systemv1/internal/model"
)

func makeBars(closes []float64) []model.PriceBar {
	start := time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{
			TS:     start.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func constCloses(n int, v float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = v
	}
	return closes
}

func TestCompute_WarmupGating(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name   string
		nBars  int
		rsi    bool
		sma20  bool
		sma50  bool
		sma200 bool
		ema26  bool
		macd   bool
	}{
		{"below all warmups", 10, false, false, false, false, false, false},
		{"rsi needs 15 bars", 15, true, false, false, false, false, false},
		{"sma20 at 20 bars", 20, true, true, false, false, false, false},
		{"macd signal still warming", 33, true, true, false, false, true, false},
		{"macd signal seeded", 34, true, true, false, false, true, true},
		{"sma50 at 50 bars", 50, true, true, true, false, true, true},
		{"everything at 200 bars", 200, true, true, true, true, true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Compute("AAPL", makeBars(constCloses(tc.nBars, 100)), 99, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := v.RSI14 != nil; got != tc.rsi {
				t.Errorf("rsi14 present=%v, want %v", got, tc.rsi)
			}
			if got := v.SMA20 != nil; got != tc.sma20 {
				t.Errorf("sma20 present=%v, want %v", got, tc.sma20)
			}
			if got := v.SMA50 != nil; got != tc.sma50 {
				t.Errorf("sma50 present=%v, want %v", got, tc.sma50)
			}
			if got := v.SMA200 != nil; got != tc.sma200 {
				t.Errorf("sma200 present=%v, want %v", got, tc.sma200)
			}
			if got := v.EMA26 != nil; got != tc.ema26 {
				t.Errorf("ema26 present=%v, want %v", got, tc.ema26)
			}
			if got := v.MACD != nil; got != tc.macd {
				t.Errorf("macd present=%v, want %v", got, tc.macd)
			}
		})
	}
}

func TestCompute_SMAAndChangePercent(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(100 + i) // 100..119
	}
	v, err := Compute("SBIN", makeBars(closes), 100, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// SMA20 = mean of 100..119 = 109.5
	if v.SMA20 == nil || math.Abs(*v.SMA20-109.5) > 1e-9 {
		t.Errorf("expected SMA20=109.5, got %v", v.SMA20)
	}
	if v.Price != 119 {
		t.Errorf("expected price=119, got %v", v.Price)
	}
	// changePercent = (119-100)/100*100 = 19
	if math.Abs(v.ChangePercent-19.0) > 1e-9 {
		t.Errorf("expected changePercent=19, got %v", v.ChangePercent)
	}
}

func TestRSI_BoundsAndAllGains(t *testing.T) {
	// Strictly rising closes — no losses in the window, RSI must be exactly 100
	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)*2
	}
	v, err := Compute("UP", makeBars(rising), 100, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.RSI14 == nil || *v.RSI14 != 100.0 {
		t.Errorf("expected RSI=100 for all-gain series, got %v", v.RSI14)
	}

	// Mixed series — RSI stays within [0,100]
	mixed := make([]float64, 100)
	for i := range mixed {
		mixed[i] = 100 + 10*math.Sin(float64(i)*0.7)
	}
	v, err = Compute("MIX", makeBars(mixed), 100, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.RSI14 == nil || *v.RSI14 < 0 || *v.RSI14 > 100 {
		t.Errorf("RSI out of bounds: %v", v.RSI14)
	}
}

func TestRSI_WilderSmoothingSeed(t *testing.T) {
	// 15 bars alternating +1/-1 deltas: 7 gains of 1, 7 losses of 1
	// avgGain = avgLoss = 0.5 → RS=1 → RSI=50
	closes := []float64{100}
	for i := 0; i < 14; i++ {
		if i%2 == 0 {
			closes = append(closes, closes[len(closes)-1]+1)
		} else {
			closes = append(closes, closes[len(closes)-1]-1)
		}
	}
	v, err := Compute("ALT", makeBars(closes), 100, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.RSI14 == nil || math.Abs(*v.RSI14-50.0) > 1e-9 {
		t.Errorf("expected RSI=50 for balanced series, got %v", v.RSI14)
	}
}

func TestCompute_EMASeedEqualsSMA(t *testing.T) {
	// With a constant series the EMA equals the SMA seed forever.
	v, err := Compute("FLAT", makeBars(constCloses(40, 250)), 250, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.EMA12 == nil || math.Abs(*v.EMA12-250) > 1e-9 {
		t.Errorf("expected EMA12=250, got %v", v.EMA12)
	}
	if v.EMA26 == nil || math.Abs(*v.EMA26-250) > 1e-9 {
		t.Errorf("expected EMA26=250, got %v", v.EMA26)
	}
	// MACD value = EMA12-EMA26 = 0, signal = 0, histogram = 0
	if v.MACD == nil {
		t.Fatal("expected MACD present at 40 bars")
	}
	if math.Abs(v.MACD.Value) > 1e-9 || math.Abs(v.MACD.Signal) > 1e-9 || math.Abs(v.MACD.Histogram) > 1e-9 {
		t.Errorf("expected zero MACD triple for flat series, got %+v", v.MACD)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 50 + float64(i%7)*3.25
	}
	now := time.Now().UTC()
	a, err := Compute("DET", makeBars(closes), 49.5, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Compute("DET", makeBars(closes), 49.5, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Equal(b) {
		t.Error("identical input produced different vectors")
	}
}

func TestCompute_IntegrityErrors(t *testing.T) {
	now := time.Now().UTC()

	outOfOrder := makeBars(constCloses(5, 100))
	outOfOrder[3].TS = outOfOrder[1].TS

	nonFinite := makeBars(constCloses(5, 100))
	nonFinite[2].Close = math.NaN()

	for name, bars := range map[string][]model.PriceBar{
		"out of order": outOfOrder,
		"non-finite":   nonFinite,
		"empty":        nil,
	} {
		v, err := Compute("BAD", bars, 100, now)
		var ie *IntegrityError
		if !errors.As(err, &ie) {
			t.Errorf("%s: expected IntegrityError, got %v", name, err)
		}
		if v != nil {
			t.Errorf("%s: expected nil vector on integrity error", name)
		}
	}
}
