// Package normalize maps raw city events into the consumer-facing envelope
// format, including the human-readable text projection.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openclawcity/citystream/internal/wire"
	"github.com/openclawcity/citystream/pkg/types"
)

// Channel is the fixed channel identifier stamped on every envelope.
const Channel = "city"

// envelopeNamespace is the UUIDv5 namespace for synthetic event ids.
var envelopeNamespace = uuid.MustParse("7f1e3c6a-9b42-4c7e-8f15-2d90a4c3b8e1")

// unknownSender is the sentinel identity used when an event carries no
// originator.
var unknownSender = types.Sender{ID: "unknown", Name: "Unknown"}

// EventID derives the synthetic envelope id for an event. It is a pure
// function of account and sequence number, so redelivered events map to
// the same id and downstream deduplication stays idempotent.
func EventID(accountID string, seq int64) string {
	return uuid.NewSHA1(envelopeNamespace, []byte(fmt.Sprintf("%s/%d", accountID, seq))).String()
}

// Normalize converts a raw event into its consumer envelope. It is total:
// every optional field has a fallback and no input causes a panic. now is
// used when the server omitted a timestamp.
func Normalize(accountID string, ev *wire.Event, now time.Time) *types.Envelope {
	sender := unknownSender
	if ev.From != nil && (ev.From.ID != "" || ev.From.Name != "") {
		sender = types.Sender{ID: ev.From.ID, Name: ev.From.Name, Avatar: ev.From.Avatar}
		if sender.ID == "" {
			sender.ID = unknownSender.ID
		}
		if sender.Name == "" {
			sender.Name = sender.ID
		}
	}

	ts := now
	if ev.TS > 0 {
		ts = time.UnixMilli(ev.TS)
	}

	meta := make(map[string]any, len(ev.Metadata)+2)
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	meta["category"] = ev.Category
	meta["seq"] = ev.Seq

	return &types.Envelope{
		ID:       EventID(accountID, ev.Seq),
		Time:     ts,
		Channel:  Channel,
		Sender:   sender,
		Text:     Humanize(ev),
		Metadata: meta,
	}
}

// Humanize renders an event as a single human-readable line. Each known
// category has a fixed template; unrecognized categories fall back to
// "[<category>] <sender>: <text>". Absent optional fields are omitted from
// the output, never stringified.
func Humanize(ev *wire.Event) string {
	name := unknownSender.Name
	if ev.From != nil {
		if ev.From.Name != "" {
			name = ev.From.Name
		} else if ev.From.ID != "" {
			name = ev.From.ID
		}
	}
	text := ev.Text

	switch ev.Category {
	case "speech":
		return fmt.Sprintf("%s: %s", name, text)
	case "emote":
		return strings.TrimSpace(fmt.Sprintf("* %s %s", name, text))
	case "move":
		if loc := metaString(ev.Metadata, "location"); loc != "" {
			return fmt.Sprintf("%s moved to %s", name, loc)
		}
		return fmt.Sprintf("%s moved", name)
	case "reaction":
		out := fmt.Sprintf("%s reacted", name)
		if sym := metaString(ev.Metadata, "symbol"); sym != "" {
			out += " " + sym
		}
		if text != "" {
			out += fmt.Sprintf(" to %q", text)
		}
		return out
	case "announcement":
		out := fmt.Sprintf("📢 %s: %s", name, text)
		if mins := metaInt(ev.Metadata, "expiresInMinutes"); mins > 0 {
			out += fmt.Sprintf(" (expires in %d min)", mins)
		}
		return out
	case "owner_note":
		return fmt.Sprintf("[owner] %s: %s", name, text)
	default:
		return fmt.Sprintf("[%s] %s: %s", ev.Category, name, text)
	}
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

func metaInt(meta map[string]any, key string) int64 {
	if meta == nil {
		return 0
	}
	switch v := meta[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
