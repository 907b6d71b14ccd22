package model

import "context"

// ── Collaborator Port Interfaces ──
// These interfaces decouple the engine from concrete data suppliers
// (SQLite, broker APIs). The engine only ever sees bar histories; how
// they are retrieved and persisted is the supplier's concern.

// BarHistory is a symbol's chronological bar history plus the prior
// session's close used for change-percent computation.
type BarHistory struct {
	Symbol    string
	Bars      []PriceBar
	PrevClose float64
}

// BarSource supplies ordered bar histories per symbol.
type BarSource interface {
	// History returns the bar history for a symbol, most recent bars last.
	// Returns an error when the symbol's data cannot be retrieved; the
	// caller keeps the symbol's previous vector.
	History(ctx context.Context, symbol string) (BarHistory, error)

	// Close releases underlying resources.
	Close() error
}

// VectorSink receives refreshed vectors for out-of-process consumers.
// Delivery is best-effort: a sink failure never fails a refresh cycle.
type VectorSink interface {
	// Publish hands a freshly computed vector to the sink.
	Publish(ctx context.Context, v *IndicatorVector) error

	// Close releases underlying resources.
	Close() error
}
