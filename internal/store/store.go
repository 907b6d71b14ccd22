// Package store maintains the canonical in-memory indicator vector per
// tracked symbol. Each symbol's vector is replaced wholesale on refresh,
// so concurrent readers see either the old or the new vector, never a mix.
package store

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"screener-systemv1/internal/metrics"
	"screener-systemv1/internal/model"
)

// MaxSnapshot is the hard ceiling on bulk reads.
const MaxSnapshot = 1000

// ErrSymbolNotFound is returned for point lookups of untracked symbols.
var ErrSymbolNotFound = errors.New("indicators not found for symbol")

// Summary reports the outcome of a refresh cycle. A cycle with failures
// is not an error: failed symbols keep their previous vector.
type Summary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// RefreshEvent is emitted after each refresh cycle. Changed lists the
// symbols whose vector was actually replaced; consumers re-evaluate
// filters against the new snapshot.
type RefreshEvent struct {
	Changed []string
	Summary Summary
	At      time.Time
}

// Config configures a Store.
type Config struct {
	Source  model.BarSource
	Sink    model.VectorSink // optional vector mirror, best-effort
	Symbols []string         // initially tracked symbols
	Workers int              // concurrent per-symbol refreshes (default 8)
	Timeout time.Duration    // per-cycle deadline (0 = none)
	Logger  *slog.Logger
	Metrics *metrics.Metrics // optional
}

// Store is the process-wide indicator vector cache.
type Store struct {
	source  model.BarSource
	sink    model.VectorSink
	workers int
	timeout time.Duration
	log     *slog.Logger
	met     *metrics.Metrics

	mu      sync.RWMutex
	vectors map[string]*model.IndicatorVector
	tracked map[string]bool

	events chan RefreshEvent
}

// New creates a Store tracking the configured symbols.
func New(cfg Config) *Store {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Store{
		source:  cfg.Source,
		sink:    cfg.Sink,
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		log:     cfg.Logger,
		met:     cfg.Metrics,
		vectors: make(map[string]*model.IndicatorVector, len(cfg.Symbols)),
		tracked: make(map[string]bool, len(cfg.Symbols)),
		events:  make(chan RefreshEvent, 16),
	}
	for _, sym := range cfg.Symbols {
		s.tracked[sym] = true
	}
	return s
}

// Events returns the refresh-completed event stream consumed by the
// coordinator. Events are dropped, not queued unboundedly, when the
// consumer lags — the next cycle's event supersedes them anyway.
func (s *Store) Events() <-chan RefreshEvent { return s.events }

// Track adds symbols to the tracked set.
func (s *Store) Track(symbols ...string) {
	s.mu.Lock()
	for _, sym := range symbols {
		s.tracked[sym] = true
	}
	s.mu.Unlock()
}

// Tracked returns the tracked symbol set, sorted.
func (s *Store) Tracked() []string {
	s.mu.RLock()
	syms := make([]string, 0, len(s.tracked))
	for sym := range s.tracked {
		syms = append(syms, sym)
	}
	s.mu.RUnlock()
	sort.Strings(syms)
	return syms
}

// Get returns the latest vector for a symbol.
func (s *Store) Get(symbol string) (*model.IndicatorVector, error) {
	s.mu.RLock()
	v, ok := s.vectors[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSymbolNotFound
	}
	return v, nil
}

// GetMany returns the vectors for the requested symbols, silently
// dropping symbols without a vector.
func (s *Store) GetMany(symbols []string) []*model.IndicatorVector {
	out := make([]*model.IndicatorVector, 0, len(symbols))
	s.mu.RLock()
	for _, sym := range symbols {
		if v, ok := s.vectors[sym]; ok {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()
	return out
}

// GetAll returns a consistent snapshot of up to limit vectors, ordered
// lexically by symbol. limit is clamped to MaxSnapshot; limit <= 0 means
// the ceiling.
func (s *Store) GetAll(limit int) []*model.IndicatorVector {
	if limit <= 0 || limit > MaxSnapshot {
		limit = MaxSnapshot
	}
	all := s.Snapshot()
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Snapshot returns every cached vector, ordered lexically by symbol.
// Vectors are immutable, so sharing pointers is safe.
func (s *Store) Snapshot() []*model.IndicatorVector {
	s.mu.RLock()
	out := make([]*model.IndicatorVector, 0, len(s.vectors))
	for _, v := range s.vectors {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// replace swaps in a new vector for a symbol. Returns false when the new
// vector is value-identical to the current one; the old pointer is kept
// so untouched symbols stay bit-identical across cycles.
func (s *Store) replace(symbol string, v *model.IndicatorVector) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.vectors[symbol]; ok && old.Equal(v) {
		return false
	}
	s.vectors[symbol] = v
	s.tracked[symbol] = true
	return true
}
