package indicator

// MACD calculates the Moving Average Convergence Divergence triple.
// Value = EMA(fast) - EMA(slow); Signal = EMA(signalPeriod) over the value
// series; Histogram = Value - Signal. The value series only starts once the
// slow EMA is seeded, so the signal line needs slow+signalPeriod bars.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD indicator with the given fast/slow/signal periods
// (typically 12, 26, 9).
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) Update(close float64) {
	m.fast.Update(close)
	m.slow.Update(close)

	// The value series exists only once both EMAs are seeded; the signal
	// EMA is fed exclusively from that series.
	if m.fast.Ready() && m.slow.Ready() {
		m.signal.Update(m.fast.Value() - m.slow.Value())
	}
}

// Value returns the MACD line (fast EMA - slow EMA).
func (m *MACD) Value() float64 {
	if !m.fast.Ready() || !m.slow.Ready() {
		return 0
	}
	return m.fast.Value() - m.slow.Value()
}

// Ready reports whether the MACD line is defined (both EMAs seeded).
func (m *MACD) Ready() bool { return m.fast.Ready() && m.slow.Ready() }

// Signal returns the signal line value.
func (m *MACD) Signal() float64 { return m.signal.Value() }

// SignalReady reports whether the signal line warm-up has elapsed.
func (m *MACD) SignalReady() bool { return m.signal.Ready() }

// Histogram returns Value - Signal.
func (m *MACD) Histogram() float64 { return m.Value() - m.signal.Value() }
