// Package gateway keeps subscribed websocket clients synchronized with
// the live, filtered screener result set. It owns subscriptions and the
// last-broadcast baseline per filter; the store owns the vectors.
package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"screener-systemv1/internal/model"
	"screener-systemv1/internal/screener"
)

// ── Realtime Protocol Frames ──
// Every message on the wire is one Envelope. Client → server types:
// subscribe, unsubscribe, filter_update. Server → client types:
// screener_results, stock_update, error.

const (
	TypeSubscribe       = "subscribe"
	TypeUnsubscribe     = "unsubscribe"
	TypeFilterUpdate    = "filter_update"
	TypeScreenerResults = "screener_results"
	TypeStockUpdate     = "stock_update"
	TypeError           = "error"
)

// Envelope is the single message wrapper carried in both directions.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// SubscribePayload is the client → server subscribe request.
type SubscribePayload struct {
	FilterID string `json:"filterId"`
}

// FilterUpdatePayload registers or updates an ad-hoc filter definition.
type FilterUpdatePayload struct {
	Filter *screener.Filter `json:"filter"`
}

// ResultsPayload carries a full result set.
type ResultsPayload struct {
	Results screener.Result `json:"results"`
}

// StockUpdatePayload carries a single-symbol delta.
type StockUpdatePayload struct {
	Stock *model.IndicatorVector `json:"stock"`
}

// ErrorPayload carries a server-side error message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ProtocolError reports an unrecognized frame type or malformed payload.
// It is answered with an error frame; the connection stays open.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Reason }

// Seal wraps a payload into an encoded Envelope.
func Seal(frameType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", frameType, err)
	}
	return json.Marshal(Envelope{
		Type:      frameType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	})
}

// DecodeEnvelope parses an inbound frame.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Reason: "malformed envelope: " + err.Error()}
	}
	if env.Type == "" {
		return nil, &ProtocolError{Reason: "missing frame type"}
	}
	return &env, nil
}
