// Package chat defines the transport surface between the bot core and a
// chat platform (Telegram in production, a mock in tests).
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventKind classifies an inbound event.
type EventKind string

const (
	EventText    EventKind = "text"
	EventPhoto   EventKind = "photo"
	EventCommand EventKind = "command"
)

// Event is a single inbound user event from the platform.
type Event struct {
	SenderID   int64
	SenderName string
	Kind       EventKind
	Text       string // message text, or command including the leading slash
	PhotoRef   string // opaque file reference, set for EventPhoto
	Timestamp  time.Time
}

// Outbound is a message to deliver to one recipient. When Photos holds
// more than one reference the adapter sends them as a single album.
type Outbound struct {
	Text     string
	Photos   []string
	Keyboard [][]string // reply-keyboard rows; nil leaves the keyboard as is
}

// Adapter is the platform-specific transport implementation.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound events. The channel is closed
	// when the context is cancelled or the adapter is closed. Listen must
	// only be called after Connect.
	Listen(ctx context.Context) (<-chan Event, error)

	// Send delivers an outbound message to one recipient. The error
	// classifies the outcome: nil on success, ErrUnreachable when the
	// recipient cannot receive messages, *RateLimitedError when the
	// platform demands a pause, anything else is an ordinary failure.
	Send(ctx context.Context, recipient int64, msg Outbound) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// ErrUnreachable marks a recipient that cannot receive messages (blocked
// the bot, deactivated account, unknown chat). Not a rate issue: callers
// move on without waiting.
var ErrUnreachable = errors.New("chat: recipient unreachable")

// RateLimitedError is the platform's flood-control rejection. RetryAfter
// is the mandatory wait before the next attempt.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("chat: rate limited, retry after %v", e.RetryAfter)
}

// AsRateLimited unwraps err into a RateLimitedError if it is one.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
