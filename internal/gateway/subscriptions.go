package gateway

import (
	"log/slog"

	"screener-systemv1/internal/screener"
	"screener-systemv1/internal/store"
)

// Functions in this file run on the hub loop (via Hub.do) so group and
// client state stays single-writer; subscribe's snapshot evaluation is
// the one piece that runs off it.

// attach registers a freshly connected client.
func (h *Hub) attach(c *Client) {
	h.clients[c] = true
	if h.met != nil {
		h.met.WSClients.Set(float64(len(h.clients)))
	}
	h.log.Info("ws client connected", slog.Int("total", len(h.clients)))
}

// detach removes a disconnected client and cleans up its subscription.
// When the client's filter group becomes empty its diff baseline is
// discarded, so the next subscriber forces a fresh evaluation.
func (h *Hub) detach(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	h.leaveGroup(c)
	close(c.send)
	if h.met != nil {
		h.met.WSClients.Set(float64(len(h.clients)))
	}
	h.log.Info("ws client disconnected", slog.Int("total", len(h.clients)))
}

// subscribe points a client at a filter, replacing any prior
// subscription. The client receives the current full result, evaluated
// fresh, before joining the shared broadcast group. The evaluation runs
// off the hub loop so a large snapshot never stalls other groups'
// operations.
func (h *Hub) subscribe(c *Client, filterID string) {
	filter, err := h.registry.Resolve(filterID)
	if err != nil {
		c.sendError("filter not found: " + filterID)
		return
	}

	go func() {
		snapshot := h.store.Snapshot()
		result := screener.Evaluate(filter, snapshot, 1, store.MaxSnapshot)
		if h.met != nil {
			h.met.EvaluationsTotal.Inc()
		}
		frame, encErr := Seal(TypeScreenerResults, ResultsPayload{Results: result})

		h.do(func() {
			if !h.clients[c] {
				return // disconnected while evaluating
			}
			if encErr != nil {
				c.sendError("internal error encoding results")
				return
			}
			h.completeSubscribe(c, filterID, result, frame)
		})
	}()
}

// completeSubscribe delivers the initial result and joins the broadcast
// group. Hub loop only.
func (h *Hub) completeSubscribe(c *Client, filterID string, result screener.Result, frame []byte) {
	// Re-subscribing replaces the prior subscription; deferred to here so
	// overlapping subscribes resolve to the last one completed.
	h.leaveGroup(c)
	h.send(c, frame)

	g, ok := h.groups[filterID]
	if !ok {
		g = &filterGroup{
			filterID:    filterID,
			subscribers: make(map[*Client]bool),
			baseline:    screener.Membership(result),
		}
		h.groups[filterID] = g
	}
	g.subscribers[c] = true
	c.filterID = filterID

	// An existing group may have a baseline older than the snapshot this
	// client just saw; reconcile the rest of the group.
	if ok {
		h.kickGroup(g)
	}

	h.log.Info("client subscribed",
		slog.String("filter", filterID), slog.Int("group_size", len(g.subscribers)))
}

// unsubscribe detaches a client from its filter without closing the
// connection.
func (h *Hub) unsubscribe(c *Client) {
	h.leaveGroup(c)
	h.log.Info("client unsubscribed")
}

// leaveGroup removes c from its current group, discarding the group when
// it has no subscribers left — no orphaned baselines.
func (h *Hub) leaveGroup(c *Client) {
	if c.filterID == "" {
		return
	}
	if g, ok := h.groups[c.filterID]; ok {
		delete(g.subscribers, c)
		if len(g.subscribers) == 0 {
			delete(h.groups, c.filterID)
		}
	}
	c.filterID = ""
}
