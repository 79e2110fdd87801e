// Package dispatch delivers messages to one or many recipients over a
// rate-limited chat channel. It paces sends, honors flood-control waits
// with a single retry, and accounts every outcome without ever aborting
// a batch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ogurtsov/gorodok/internal/chat"
)

// DefaultSendInterval paces fan-out sends. The channel caps outbound
// traffic around 30 messages per second; 40ms keeps a margin.
const DefaultSendInterval = 40 * time.Millisecond

// DefaultPhotoGroupMax is the channel's cap on photos per album send.
const DefaultPhotoGroupMax = 10

// Report accounts for every recipient of a delivery batch:
// Sent + Blocked + Failed equals the recipient count.
type Report struct {
	Sent    int
	Blocked int
	Failed  int
}

// String renders the report for admin-facing summaries.
func (r Report) String() string {
	return fmt.Sprintf("доставлено: %d, заблокировано: %d, ошибок: %d", r.Sent, r.Blocked, r.Failed)
}

// Dispatcher sends messages through a chat adapter with pacing and
// rate-limit recovery.
type Dispatcher struct {
	adapter       chat.Adapter
	interval      time.Duration
	photoGroupMax int
}

// Opts holds parameters for creating a Dispatcher.
type Opts struct {
	Adapter       chat.Adapter
	SendInterval  time.Duration // defaults to DefaultSendInterval
	PhotoGroupMax int           // defaults to DefaultPhotoGroupMax
}

// New creates a Dispatcher.
func New(opts Opts) (*Dispatcher, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("dispatch: adapter is required")
	}
	interval := opts.SendInterval
	if interval <= 0 {
		interval = DefaultSendInterval
	}
	groupMax := opts.PhotoGroupMax
	if groupMax <= 0 {
		groupMax = DefaultPhotoGroupMax
	}
	return &Dispatcher{
		adapter:       opts.Adapter,
		interval:      interval,
		photoGroupMax: groupMax,
	}, nil
}

// Deliver sends msg to every recipient in order. A recipient's failure
// never affects the rest of the batch: unreachable recipients are
// counted and skipped without waiting, a rate-limit signal suspends the
// whole batch for the demanded duration and retries that recipient
// exactly once, and any other error is logged and counted. A cancelled
// context ends the batch early with the remainder counted as failed.
func (d *Dispatcher) Deliver(ctx context.Context, recipients []int64, msg chat.Outbound) Report {
	var report Report
	for i, recipient := range recipients {
		if ctx.Err() != nil {
			report.Failed += len(recipients) - i
			return report
		}

		switch err := d.sendOnce(ctx, recipient, msg); {
		case err == nil:
			report.Sent++
			if i < len(recipients)-1 {
				d.pause(ctx, d.interval)
			}
		case errors.Is(err, chat.ErrUnreachable):
			// Not a rate issue: move on immediately.
			report.Blocked++
		default:
			log.Printf("dispatch: send to %d: %v", recipient, err)
			report.Failed++
		}
	}
	return report
}

// Notify delivers a single notification. It honors the same
// rate-limit-suspend-and-retry-once rule but skips inter-send pacing.
func (d *Dispatcher) Notify(ctx context.Context, recipient int64, msg chat.Outbound) error {
	return d.sendOnce(ctx, recipient, msg)
}

// sendOnce performs one logical delivery to one recipient: every photo
// group is sent as a unit, and each unit gets one retry after a
// rate-limit wait. Renewed failure of any kind is final.
func (d *Dispatcher) sendOnce(ctx context.Context, recipient int64, msg chat.Outbound) error {
	for _, part := range d.split(msg) {
		if err := d.sendPart(ctx, recipient, part); err != nil {
			return err
		}
	}
	return nil
}

// retryExhaustedError marks a recipient whose single post-rate-limit
// retry failed again. It deliberately does not unwrap: renewed failure
// of any kind is accounted as failed, not reclassified.
type retryExhaustedError struct {
	cause error
}

func (e *retryExhaustedError) Error() string {
	return fmt.Sprintf("dispatch: retry after rate limit failed: %v", e.cause)
}

// sendPart sends one message unit, retrying exactly once after a
// rate-limit wait.
func (d *Dispatcher) sendPart(ctx context.Context, recipient int64, msg chat.Outbound) error {
	err := d.adapter.Send(ctx, recipient, msg)
	rl, ok := chat.AsRateLimited(err)
	if !ok {
		return err
	}

	log.Printf("dispatch: rate limited sending to %d, suspending for %v", recipient, rl.RetryAfter)
	if !d.pause(ctx, rl.RetryAfter) {
		return ctx.Err()
	}
	if err := d.adapter.Send(ctx, recipient, msg); err != nil {
		return &retryExhaustedError{cause: err}
	}
	return nil
}

// split chunks an outbound message whose photo list exceeds the album
// cap into several sends; the text rides on the first chunk.
func (d *Dispatcher) split(msg chat.Outbound) []chat.Outbound {
	if len(msg.Photos) <= d.photoGroupMax {
		return []chat.Outbound{msg}
	}
	var parts []chat.Outbound
	photos := msg.Photos
	first := true
	for len(photos) > 0 {
		n := d.photoGroupMax
		if n > len(photos) {
			n = len(photos)
		}
		part := chat.Outbound{Photos: photos[:n]}
		if first {
			part.Text = msg.Text
			part.Keyboard = msg.Keyboard
			first = false
		}
		parts = append(parts, part)
		photos = photos[n:]
	}
	return parts
}

// pause sleeps for dur unless the context ends first. It reports whether
// the full wait elapsed.
func (d *Dispatcher) pause(ctx context.Context, dur time.Duration) bool {
	if dur <= 0 {
		return true
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
