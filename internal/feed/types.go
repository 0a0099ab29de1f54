package feed

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/veithly/PolyAlpha/internal/model"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrNotStarted      = errors.New("feed manager not started")
	ErrStaleConnection = errors.New("connection stale (no inbound frames)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// DefaultURL is the Polymarket realtime data service endpoint.
const DefaultURL = "wss://ws-live-data.polymarket.com"

// State is the lifecycle state of the upstream connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// TimestampedMessage is one inbound frame and the local time it was read.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// Message is a parsed inbound frame routed to a market.
type Message struct {
	MarketID   string
	Fields     map[string]json.RawMessage // Top-level frame fields, undecoded
	ReceivedAt time.Time
}

// Tick extracts the trade carried by the frame, if any.
func (m Message) Tick() (model.Tick, bool) {
	return model.TickFromFields(m.Fields)
}

// SubscribeFrame asks the upstream feed for trades on one market.
type SubscribeFrame struct {
	Type     string `json:"type"`    // always "market"
	Channel  string `json:"channel"` // always "trades"
	MarketID string `json:"market_id"`
}

// NewSubscribeFrame builds the trades subscription for marketID.
func NewSubscribeFrame(marketID string) SubscribeFrame {
	return SubscribeFrame{Type: "market", Channel: "trades", MarketID: marketID}
}

// ClientConfig configures one feed socket.
type ClientConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration // keepalive period; 0 disables pings and the silence check
	PingTimeout      time.Duration // longest tolerated silence (no data, ping or pong frame)
	WriteTimeout     time.Duration
	BufferSize       int // inbound frames held before new ones are dropped
}

// DefaultClientConfig returns the settings used against the public RTDS endpoint.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:              DefaultURL,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       4096,
	}
}

// ManagerConfig configures the feed Manager.
type ManagerConfig struct {
	Client         ClientConfig
	ReconnectDelay time.Duration // Fixed wait before every reconnect attempt
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:         DefaultClientConfig(),
		ReconnectDelay: 2 * time.Second,
	}
}

// ManagerStats provides statistics about the feed manager.
type ManagerStats struct {
	State          string `json:"state"`
	Markets        int    `json:"markets"`
	Subscribers    int    `json:"subscribers"`
	Reconnects     int64  `json:"reconnects"`
	FramesReceived int64  `json:"frames_received"`
	FramesDropped  int64  `json:"frames_dropped"`
}
