package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"screener-systemv1/internal/indicator"
	"screener-systemv1/internal/logger"
)

// RefreshAll recomputes every tracked symbol's vector.
func (s *Store) RefreshAll(ctx context.Context) Summary {
	return s.Refresh(ctx)
}

// Refresh recomputes and atomically replaces the vector for each listed
// symbol, or for every tracked symbol when none are listed. One symbol's
// failure never blocks the others: its stale vector is retained and the
// failure is counted in the returned summary.
func (s *Store) Refresh(ctx context.Context, symbols ...string) Summary {
	if len(symbols) == 0 {
		symbols = s.Tracked()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	// Every log line of one cycle carries the same trace ID.
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID("cycle", start))
	log := s.log.With(logger.LogWithTrace(ctx)...)
	if s.met != nil {
		s.met.RefreshCycles.Inc()
	}

	var (
		mu      sync.Mutex
		summary Summary
		changed []string
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				ok, replaced := s.refreshSymbol(ctx, sym)
				mu.Lock()
				if ok {
					summary.Processed++
					if replaced {
						changed = append(changed, sym)
					}
				} else {
					summary.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	dispatched := 0
feed:
	for _, sym := range symbols {
		// Checked first so an expired deadline always wins over a ready
		// worker; the select below alone would race the two.
		select {
		case <-ctx.Done():
			break feed
		default:
		}
		select {
		case <-ctx.Done():
			// Cycle deadline hit. Remaining symbols count as failed and are
			// retried on the next trigger; writes already applied stand.
			break feed
		case jobs <- sym:
			dispatched++
		}
	}
	close(jobs)
	wg.Wait()
	summary.Failed += len(symbols) - dispatched

	if s.met != nil {
		s.met.RefreshDuration.Observe(time.Since(start).Seconds())
	}
	log.Info("refresh cycle complete",
		slog.Int("processed", summary.Processed),
		slog.Int("failed", summary.Failed),
		slog.Int("changed", len(changed)),
		slog.Duration("took", time.Since(start)))

	ev := RefreshEvent{Changed: changed, Summary: summary, At: time.Now().UTC()}
	select {
	case s.events <- ev:
	default:
		log.Warn("refresh event dropped, consumer lagging")
	}
	return summary
}

// refreshSymbol fetches one symbol's history, recomputes its vector and
// swaps it in. ok reports success; replaced reports whether the cached
// vector actually changed.
func (s *Store) refreshSymbol(ctx context.Context, symbol string) (ok, replaced bool) {
	log := s.log.With(logger.LogWithTrace(ctx)...)

	hist, err := s.source.History(ctx, symbol)
	if err != nil {
		s.countFailure(symbol)
		log.Warn("upstream fetch failed, keeping stale vector",
			slog.String("symbol", symbol), slog.Any("err", err))
		return false, false
	}

	v, err := indicator.Compute(symbol, hist.Bars, hist.PrevClose, time.Now().UTC())
	if err != nil {
		// Data integrity: freeze the symbol's vector rather than publish garbage.
		s.countFailure(symbol)
		log.Warn("bar data rejected, vector frozen",
			slog.String("symbol", symbol), slog.Any("err", err))
		return false, false
	}

	replaced = s.replace(symbol, v)
	if s.met != nil {
		s.met.SymbolsRefreshed.Inc()
	}

	if replaced && s.sink != nil {
		if err := s.sink.Publish(ctx, v); err != nil {
			if s.met != nil {
				s.met.MirrorPublishFailures.Inc()
			}
			log.Warn("vector mirror publish failed",
				slog.String("symbol", symbol), slog.Any("err", err))
		}
	}
	return true, replaced
}

func (s *Store) countFailure(symbol string) {
	if s.met != nil {
		s.met.RefreshFailures.WithLabelValues(symbol).Inc()
	}
}
