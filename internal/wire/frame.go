// Package wire defines the JSON text frames exchanged with the city server
// and the codec that serializes them.
package wire

import "github.com/openclawcity/citystream/pkg/types"

// ProtocolVersion is the wire protocol version spoken by this client.
const ProtocolVersion = 1

// WebSocket close codes used by the server for terminal conditions.
const (
	// CloseAuthFailed signals a bad or expired credential.
	CloseAuthFailed = 4401
	// CloseSuperseded signals that a newer connection for the same account
	// has taken over the session.
	CloseSuperseded = 4409
)

// Frame type discriminators.
const (
	TypeHello   = "hello"
	TypeResume  = "resume"
	TypeAck     = "ack"
	TypeReply   = "reply"
	TypeWelcome = "welcome"
	TypeEvent   = "event"
	TypeResult  = "result"
	TypeError   = "error"
	TypePaused  = "paused"
	TypeResumed = "resumed"
)

// Error frame reasons with dedicated client behavior.
const (
	ReasonAuthFailed  = "auth_failed"
	ReasonRateLimited = "rate_limited"
)

// Inbound is implemented by every frame the server may send.
type Inbound interface {
	inbound()
}

// Hello is the fresh-session handshake sent right after the transport opens
// when no acknowledgment watermark exists.
type Hello struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	AccountID string `json:"accountId"`
	Token     string `json:"token"`
}

// Resume is the handshake sent instead of Hello when a watermark exists,
// asking the server to replay events with sequence numbers greater than
// LastAckSeq.
type Resume struct {
	Type       string `json:"type"`
	Version    int    `json:"version"`
	AccountID  string `json:"accountId"`
	Token      string `json:"token"`
	LastAckSeq int64  `json:"lastAckSeq"`
}

// Ack acknowledges delivery of the event with the given sequence number.
type Ack struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`
}

// Reply relays a consumer instruction to the server.
type Reply struct {
	Type string `json:"type"`
	types.Reply
}

// Actor is the wire shape of an event originator.
type Actor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Event is a server-originated unit of work.
type Event struct {
	Type     string         `json:"type"`
	Seq      int64          `json:"seq"`
	Category string         `json:"category"`
	From     *Actor         `json:"from,omitempty"`
	Text     string         `json:"text,omitempty"`
	TS       int64          `json:"ts,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Welcome acknowledges a successful handshake. Backlog holds replayed
// events in ascending sequence order.
type Welcome struct {
	Type     string  `json:"type"`
	Version  int     `json:"version"`
	Location string  `json:"location,omitempty"`
	Paused   bool    `json:"paused,omitempty"`
	Backlog  []Event `json:"backlog,omitempty"`
}

// Result reports the server-side outcome of a reply. Informational only.
type Result struct {
	Type    string         `json:"type"`
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ErrorFrame reports auth failures, version mismatches, and rate limits.
type ErrorFrame struct {
	Type       string  `json:"type"`
	Reason     string  `json:"reason"`
	Message    string  `json:"message,omitempty"`
	RetryAfter float64 `json:"retryAfter,omitempty"`
}

// Paused signals owner-directed event suppression.
type Paused struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Resumed lifts a previous Paused.
type Resumed struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

func (*Welcome) inbound()    {}
func (*Event) inbound()      {}
func (*Result) inbound()     {}
func (*ErrorFrame) inbound() {}
func (*Paused) inbound()     {}
func (*Resumed) inbound()    {}

// NewHello builds the fresh-session handshake frame.
func NewHello(accountID, token string) *Hello {
	return &Hello{Type: TypeHello, Version: ProtocolVersion, AccountID: accountID, Token: token}
}

// NewResume builds the resume handshake frame carrying the watermark.
func NewResume(accountID, token string, lastAckSeq int64) *Resume {
	return &Resume{Type: TypeResume, Version: ProtocolVersion, AccountID: accountID, Token: token, LastAckSeq: lastAckSeq}
}

// NewAck builds an acknowledgment frame for the given sequence number.
func NewAck(seq int64) *Ack {
	return &Ack{Type: TypeAck, Seq: seq}
}

// NewReply wraps a consumer reply in its wire frame.
func NewReply(r types.Reply) *Reply {
	return &Reply{Type: TypeReply, Reply: r}
}
