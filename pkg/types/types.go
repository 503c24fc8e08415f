// Package types contains the consumer-facing types exchanged between the
// stream client and its host application.
package types

import "time"

// State is the externally visible connection state.
type State string

const (
	// StateDisconnected means no transport is open. Unless the client was
	// explicitly stopped, a reconnect is (or will be) scheduled.
	StateDisconnected State = "disconnected"
	// StateConnecting means a transport is being established or the client
	// is waiting for the server's welcome.
	StateConnecting State = "connecting"
	// StateConnected means the handshake completed and events are flowing.
	StateConnected State = "connected"
)

// Sender identifies the actor that originated an event.
type Sender struct {
	// ID is the actor's stable identifier.
	ID string `json:"id"`
	// Name is the actor's display name.
	Name string `json:"name"`
	// Avatar is an optional avatar URL.
	Avatar string `json:"avatar,omitempty"`
}

// Envelope is the normalized, consumer-facing representation of a city event.
type Envelope struct {
	// ID is a synthetic identifier derived deterministically from the event
	// sequence number. Consumers can use it for idempotent deduplication
	// across redeliveries.
	ID string `json:"id"`
	// Time is the server-supplied event time, or local capture time when the
	// server omitted one.
	Time time.Time `json:"time"`
	// Channel is the fixed channel identifier for the city stream.
	Channel string `json:"channel"`
	// Sender identifies who originated the event.
	Sender Sender `json:"sender"`
	// Text is the human-readable projection of the event.
	Text string `json:"text"`
	// Metadata is the union of the event category, sequence number, and all
	// original event metadata fields.
	Metadata map[string]any `json:"metadata"`
}

// Reply is a consumer-generated instruction relayed back to the server.
//
// Replies carry no sequence number; they are not individually acknowledged
// by this client.
type Reply struct {
	// Action is the reply kind: "say", "reply", "move", or "react".
	Action string `json:"action"`
	// Text is the message body for "say" and "reply".
	Text string `json:"text,omitempty"`
	// ConversationID targets a conversation for "reply".
	ConversationID string `json:"conversationId,omitempty"`
	// Location is the destination for "move".
	Location string `json:"location,omitempty"`
	// Symbol is the reaction symbol for "react".
	Symbol string `json:"symbol,omitempty"`
	// TargetSeq is the sequence number of the event being reacted to.
	TargetSeq int64 `json:"targetSeq,omitempty"`
}

// WelcomeInfo describes a successful handshake.
type WelcomeInfo struct {
	// Location is the server-declared location/context for this account.
	Location string `json:"location"`
	// Paused reports whether the server currently suppresses event delivery.
	Paused bool `json:"paused"`
	// BacklogSize is the number of replayed events included in the welcome.
	BacklogSize int `json:"backlogSize"`
}

// ErrorInfo describes a server-reported error frame.
type ErrorInfo struct {
	// Reason is the machine-readable error reason.
	Reason string `json:"reason"`
	// Message is an optional human-readable annotation.
	Message string `json:"message,omitempty"`
	// RetryAfter is the server-directed cooldown in seconds, when rate
	// limited. Zero when absent.
	RetryAfter float64 `json:"retryAfter,omitempty"`
}

// Hooks are the consumer callbacks invoked by the stream client.
//
// All hooks are optional. OnEvent may block; a blocked OnEvent stalls
// backlog draining for its account but never the frame-reading loop.
type Hooks struct {
	// OnEvent receives each normalized event. The event is acknowledged to
	// the server whether or not OnEvent returns an error; consumers must
	// treat delivery as at-least-once and dedupe on Envelope.ID.
	OnEvent func(env *Envelope) error
	// OnWelcome is called after each successful handshake.
	OnWelcome func(info WelcomeInfo)
	// OnError is called for every server-reported error frame.
	OnError func(info ErrorInfo)
	// OnStateChange is called whenever the connection state changes.
	OnStateChange func(state State)
}
