// Package telegram implements the chat Adapter for Telegram via the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ogurtsov/gorodok/internal/chat"
	tele "gopkg.in/telebot.v3"
)

// pollTimeout is the long-poll timeout for fetching updates.
const pollTimeout = 10 * time.Second

// api abstracts the telebot.Bot methods we use, enabling test mocks.
type api interface {
	Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc)
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	SendAlbum(to tele.Recipient, a tele.Album, opts ...interface{}) ([]tele.Message, error)
	Start()
	Stop()
}

// realAPI wraps *tele.Bot to implement the api interface.
type realAPI struct {
	b *tele.Bot
}

func (r *realAPI) Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc) {
	r.b.Handle(endpoint, h, m...)
}
func (r *realAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	return r.b.Send(to, what, opts...)
}
func (r *realAPI) SendAlbum(to tele.Recipient, a tele.Album, opts ...interface{}) ([]tele.Message, error) {
	return r.b.SendAlbum(to, a, opts...)
}
func (r *realAPI) Start() { r.b.Start() }
func (r *realAPI) Stop()  { r.b.Stop() }

// Adapter implements chat.Adapter for Telegram.
type Adapter struct {
	token string
	bot   api

	mu        sync.Mutex
	connected bool
	closed    bool
	listening bool
	inbound   chan chat.Event
}

// AdapterOpts holds parameters for creating a Telegram Adapter.
type AdapterOpts struct {
	Token string
	// For testing: inject a mock bot instead of the real Bot API client.
	Bot api
}

// New creates a Telegram Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Bot == nil && opts.Token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	return &Adapter{
		token:   opts.Token,
		bot:     opts.Bot,
		inbound: make(chan chat.Event, 100),
	}, nil
}

// Connect creates the Bot API client and verifies the token.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("telegram: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.bot == nil {
		b, err := tele.NewBot(tele.Settings{
			Token:  a.token,
			Poller: &tele.LongPoller{Timeout: pollTimeout},
		})
		if err != nil {
			return fmt.Errorf("telegram: create bot: %w", err)
		}
		a.bot = &realAPI{b: b}
	}
	a.connected = true
	return nil
}

// Listen registers update handlers and starts long polling in the
// background. Returned events are closed out when Close is called.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("telegram: not connected")
	}
	if a.listening {
		return a.inbound, nil
	}
	a.listening = true

	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		a.push(eventFromText(c))
		return nil
	})
	a.bot.Handle(tele.OnPhoto, func(c tele.Context) error {
		a.push(eventFromPhoto(c))
		return nil
	})

	go a.bot.Start()

	go func() {
		<-ctx.Done()
		a.Close()
	}()

	return a.inbound, nil
}

// push delivers an event unless the adapter is closed. Dropped events are
// logged rather than blocking the poller.
func (a *Adapter) push(ev chat.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.inbound <- ev:
	default:
		log.Printf("telegram: inbound buffer full, dropping event from %d", ev.SenderID)
	}
}

// eventFromText maps a text update to a chat.Event, classifying slash
// commands by their leading character.
func eventFromText(c tele.Context) chat.Event {
	kind := chat.EventText
	if strings.HasPrefix(c.Text(), "/") {
		kind = chat.EventCommand
	}
	return chat.Event{
		SenderID:   c.Sender().ID,
		SenderName: senderName(c.Sender()),
		Kind:       kind,
		Text:       c.Text(),
		Timestamp:  time.Now(),
	}
}

// eventFromPhoto maps a photo update to a chat.Event carrying the file id.
func eventFromPhoto(c tele.Context) chat.Event {
	var ref string
	if p := c.Message().Photo; p != nil {
		ref = p.FileID
	}
	return chat.Event{
		SenderID:   c.Sender().ID,
		SenderName: senderName(c.Sender()),
		Kind:       chat.EventPhoto,
		Text:       c.Message().Caption,
		PhotoRef:   ref,
		Timestamp:  time.Now(),
	}
}

// senderName prefers the @username, falling back to the first name.
func senderName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}

// Send delivers an outbound message, translating Bot API errors into the
// chat error taxonomy.
func (a *Adapter) Send(ctx context.Context, recipient int64, msg chat.Outbound) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("telegram: not connected")
	}
	bot := a.bot
	a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	to := tele.ChatID(recipient)
	var err error

	switch len(msg.Photos) {
	case 0:
		_, err = bot.Send(to, msg.Text, sendOpts(msg)...)
	case 1:
		photo := &tele.Photo{File: tele.File{FileID: msg.Photos[0]}, Caption: msg.Text}
		_, err = bot.Send(to, photo, sendOpts(msg)...)
	default:
		album := make(tele.Album, 0, len(msg.Photos))
		for i, ref := range msg.Photos {
			p := &tele.Photo{File: tele.File{FileID: ref}}
			if i == 0 {
				p.Caption = msg.Text
			}
			album = append(album, p)
		}
		_, err = bot.SendAlbum(to, album)
	}

	return classify(err)
}

// sendOpts builds telebot send options from the outbound message.
func sendOpts(msg chat.Outbound) []interface{} {
	if msg.Keyboard == nil {
		return nil
	}
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	rows := make([]tele.Row, 0, len(msg.Keyboard))
	for _, labels := range msg.Keyboard {
		btns := make([]tele.Btn, 0, len(labels))
		for _, label := range labels {
			btns = append(btns, markup.Text(label))
		}
		rows = append(rows, markup.Row(btns...))
	}
	markup.Reply(rows...)
	return []interface{}{markup}
}

// classify maps Bot API errors to the chat error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return &chat.RateLimitedError{RetryAfter: time.Duration(flood.RetryAfter) * time.Second}
	}
	if errors.Is(err, tele.ErrBlockedByUser) ||
		errors.Is(err, tele.ErrUserIsDeactivated) ||
		errors.Is(err, tele.ErrChatNotFound) {
		return fmt.Errorf("%w: %v", chat.ErrUnreachable, err)
	}
	return err
}

// Close stops polling and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.listening && a.bot != nil {
		a.bot.Stop()
	}
	close(a.inbound)
	return nil
}
