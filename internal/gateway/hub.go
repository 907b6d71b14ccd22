package gateway

import (
	"context"
	"log/slog"
	"time"

	"screener-systemv1/internal/metrics"
	"screener-systemv1/internal/model"
	"screener-systemv1/internal/screener"
	"screener-systemv1/internal/store"
)

// Hub manages websocket clients, per-filter broadcast groups and the
// evaluation loop triggered by store refresh events.
type Hub struct {
	store    *store.Store
	registry *screener.Registry
	log      *slog.Logger
	met      *metrics.Metrics

	// ops serializes all subscription/group mutations and diff baselines.
	ops chan func()

	clients map[*Client]bool
	groups  map[string]*filterGroup
}

// filterGroup is one filter's broadcast group: its subscribers and the
// baseline used for diffing. At most one evaluation is in flight per
// group; refresh events arriving mid-evaluation are coalesced.
type filterGroup struct {
	filterID    string
	subscribers map[*Client]bool

	// last full (unpaginated) match set keyed by symbol; nil until the
	// first broadcast.
	baseline map[string]*model.IndicatorVector

	evaluating bool
	pending    bool
}

// NewHub creates a Hub over the given store and filter registry.
func NewHub(st *store.Store, reg *screener.Registry, log *slog.Logger, met *metrics.Metrics) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		store:    st,
		registry: reg,
		log:      log,
		met:      met,
		ops:      make(chan func(), 256),
		clients:  make(map[*Client]bool),
		groups:   make(map[string]*filterGroup),
	}
}

// Run drives the hub: it executes queued operations and reacts to store
// refresh events. Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.ops:
			op()
		case ev, ok := <-h.store.Events():
			if !ok {
				return
			}
			h.onRefresh(ev)
		}
	}
}

// do enqueues an operation onto the hub loop. Operations are executed
// strictly in order, which keeps group state single-writer.
func (h *Hub) do(op func()) {
	h.ops <- op
}

// onRefresh kicks off an evaluation for every filter with subscribers.
// Distinct filters evaluate in parallel; a filter already evaluating only
// gets its pending flag set.
func (h *Hub) onRefresh(ev store.RefreshEvent) {
	for _, g := range h.groups {
		if len(g.subscribers) == 0 {
			continue
		}
		h.kickGroup(g)
	}
}

// kickGroup starts an evaluation for g, or coalesces the trigger when one
// is already in flight. Must run on the hub loop.
func (h *Hub) kickGroup(g *filterGroup) {
	if g.evaluating {
		g.pending = true
		return
	}
	g.evaluating = true
	go h.evaluateGroup(g)
}

// evaluateGroup recomputes g's result set against the current snapshot,
// diffs it against the baseline and broadcasts. Runs off the hub loop;
// all group mutations are funneled back through it.
func (h *Hub) evaluateGroup(g *filterGroup) {
	start := time.Now()
	filter, err := h.registry.Resolve(g.filterID)
	if err != nil {
		// Filter definition vanished mid-subscription; notify and finish.
		h.do(func() {
			h.sendErrorToGroup(g, "filter not found: "+g.filterID)
			h.finishEvaluation(g)
		})
		return
	}

	snapshot := h.store.Snapshot()
	// Evaluate the full, unpaginated set: membership diffing must see
	// every match, not one page.
	result := screener.Evaluate(filter, snapshot, 1, store.MaxSnapshot)
	if h.met != nil {
		h.met.EvaluationsTotal.Inc()
		h.met.EvaluationDuration.Observe(time.Since(start).Seconds())
	}

	h.do(func() {
		h.broadcastDiff(g, result)
		h.finishEvaluation(g)
	})
}

// finishEvaluation clears the in-flight flag and restarts immediately
// when refresh events were coalesced during the run. Hub loop only.
func (h *Hub) finishEvaluation(g *filterGroup) {
	g.evaluating = false
	if g.pending && len(g.subscribers) > 0 {
		g.pending = false
		h.kickGroup(g)
	}
	g.pending = false
}

// broadcastDiff compares a fresh result against the group baseline.
// Membership changes (or a missing baseline) re-send the full result;
// value-only changes send one stock_update per changed symbol; identical
// results send nothing. Hub loop only.
func (h *Hub) broadcastDiff(g *filterGroup, result screener.Result) {
	fresh := screener.Membership(result)

	switch {
	case g.baseline == nil || membershipChanged(g.baseline, fresh):
		frame, err := Seal(TypeScreenerResults, ResultsPayload{Results: result})
		if err != nil {
			h.log.Error("encode screener_results", slog.Any("err", err))
			return
		}
		h.sendToGroup(g, frame, TypeScreenerResults)

	default:
		for sym, v := range fresh {
			old := g.baseline[sym]
			if old == v || old.Equal(v) {
				continue
			}
			frame, err := Seal(TypeStockUpdate, StockUpdatePayload{Stock: v})
			if err != nil {
				h.log.Error("encode stock_update", slog.Any("err", err))
				continue
			}
			h.sendToGroup(g, frame, TypeStockUpdate)
		}
	}

	g.baseline = fresh
}

// membershipChanged reports whether the two match sets differ by symbol.
func membershipChanged(old, fresh map[string]*model.IndicatorVector) bool {
	if len(old) != len(fresh) {
		return true
	}
	for sym := range fresh {
		if _, ok := old[sym]; !ok {
			return true
		}
	}
	return false
}

// sendToGroup fans a frame out to every subscriber. A full send buffer
// drops the frame for that client only — delivery to a dead or slow
// client never aborts delivery to the rest.
func (h *Hub) sendToGroup(g *filterGroup, frame []byte, frameType string) {
	for c := range g.subscribers {
		h.send(c, frame)
	}
	if h.met != nil {
		h.met.BroadcastsTotal.WithLabelValues(frameType).Inc()
	}
}

func (h *Hub) sendErrorToGroup(g *filterGroup, msg string) {
	frame, err := Seal(TypeError, ErrorPayload{Message: msg})
	if err != nil {
		return
	}
	for c := range g.subscribers {
		h.send(c, frame)
	}
}

func (h *Hub) send(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		if h.met != nil {
			h.met.DroppedSends.Inc()
		}
		h.log.Warn("client send buffer full, dropping frame")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	done := make(chan int, 1)
	h.do(func() { done <- len(h.clients) })
	return <-done
}
