package stream

import "github.com/veithly/PolyAlpha/internal/model"

// Event types written on the wire.
const (
	EventReady = "ready"
	EventTick  = "tick"
	EventPing  = "ping"
)

// ReadyMessage is the human-readable text of the ready event.
const ReadyMessage = "Subscribed to Polymarket trades (RTDS)."

// ReadyEvent is the first event of every session.
type ReadyEvent struct {
	Type     string `json:"type"`
	MarketID string `json:"marketId"`
	Message  string `json:"message"`
}

// TickEvent carries one trade and the pulse computed after it.
type TickEvent struct {
	Type     string           `json:"type"`
	MarketID string           `json:"marketId"`
	Price    float64          `json:"price"`
	Amount   float64          `json:"amount"`
	Smart    model.SmartPulse `json:"smart"`
	TS       int64            `json:"ts"` // Unix milliseconds
}

// PingEvent is the heartbeat.
type PingEvent struct {
	Type string `json:"type"`
}

func newReadyEvent(marketID string) ReadyEvent {
	return ReadyEvent{Type: EventReady, MarketID: marketID, Message: ReadyMessage}
}

func newPingEvent() PingEvent {
	return PingEvent{Type: EventPing}
}
