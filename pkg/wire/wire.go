// Package wire defines the websocket frame format shared by the server and
// its consumers: the envelope, the message types in each direction, and the
// closed channel set. Dashboard and CLI clients depend on this package
// alongside wsclient.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownChannel rejects a channel name outside the closed set.
var ErrUnknownChannel = errors.New("unknown channel")

// Channel is a named topic a session opts into. The set is closed; there is
// no dynamic channel creation.
type Channel string

const (
	ChannelFeedback  Channel = "feedback"
	ChannelAlerts    Channel = "alerts"
	ChannelAnalytics Channel = "analytics"
	ChannelSystem    Channel = "system"
)

var knownChannels = map[Channel]bool{
	ChannelFeedback:  true,
	ChannelAlerts:    true,
	ChannelAnalytics: true,
	ChannelSystem:    true,
}

// ParseChannel maps a wire string onto the closed channel set. Unrecognized
// names are rejected explicitly rather than silently dropped.
func ParseChannel(s string) (Channel, error) {
	ch := Channel(s)
	if !knownChannels[ch] {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
	return ch, nil
}

// Client -> server message types
const (
	TypeAuth        = "auth"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
)

// Server -> client message types
const (
	TypeConnection   = "connection"
	TypeAuthSuccess  = "auth_success"
	TypePong         = "pong"
	TypeFeedback     = "feedback"
	TypeAlert        = "alert"
	TypeAlertUpdated = "alert_updated"
	TypeAnalytics    = "analytics"
	TypeSystem       = "system"
	TypeError        = "error"
)

// Envelope is the wire frame shared by both directions.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewEnvelope stamps and wraps a payload for transmission.
func NewEnvelope(msgType string, data interface{}) (Envelope, error) {
	env := Envelope{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		env.Data = raw
	}

	return env, nil
}

// Decode unmarshals the envelope payload into a typed variant.
func (e *Envelope) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s message has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("malformed %s payload: %w", e.Type, err)
	}
	return nil
}

type AuthPayload struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId,omitempty"`
	Token    string `json:"token,omitempty"`
}

type SubscribePayload struct {
	Channel string `json:"channel"`
}

type AuthSuccessPayload struct {
	TenantID string `json:"tenantId"`
}

type ConnectionPayload struct {
	SessionID           string `json:"sessionId"`
	HeartbeatIntervalMs int64  `json:"heartbeatIntervalMs"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
