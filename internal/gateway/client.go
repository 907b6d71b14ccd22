package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"screener-systemv1/internal/screener"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 8192
)

// Client represents a single websocket peer. Its connection state machine
// is implicit: no filterID means Connected, a filterID means Subscribed,
// detach is terminal.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// filterID is the client's single active subscription. Managed
	// exclusively on the hub loop.
	filterID string
}

// sendError queues an error frame; a bad inbound message never closes
// the connection.
func (c *Client) sendError(msg string) {
	frame, err := Seal(TypeError, ErrorPayload{Message: msg})
	if err != nil {
		return
	}
	c.hub.send(c, frame)
}

// handleFrame dispatches one inbound frame. Unrecognized types and
// malformed payloads are answered with an error frame.
func (c *Client) handleFrame(data []byte) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	switch env.Type {
	case TypeSubscribe:
		var p SubscribePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.FilterID == "" {
			c.sendError("subscribe requires a filterId")
			return
		}
		c.hub.do(func() { c.hub.subscribe(c, p.FilterID) })

	case TypeUnsubscribe:
		c.hub.do(func() { c.hub.unsubscribe(c) })

	case TypeFilterUpdate:
		var p FilterUpdatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.Filter == nil {
			c.sendError("filter_update requires a filter definition")
			return
		}
		if err := c.hub.registry.Register(p.Filter); err != nil {
			var ve *screener.ValidationError
			if errors.As(err, &ve) {
				c.sendError(ve.Error())
				return
			}
			c.sendError("filter registration failed")
			return
		}
		// A redefinition affects live subscribers; re-evaluate the group.
		c.hub.do(func() {
			if g, ok := c.hub.groups[p.Filter.ID]; ok {
				c.hub.kickGroup(g)
			}
		})

	default:
		c.sendError("unrecognized frame type: " + env.Type)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.do(func() { c.hub.detach(c) })
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("ws read error", slog.Any("err", err))
			}
			break
		}
		c.handleFrame(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Write coalescing: batch queued frames into a single
			// websocket message with newline separators.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
