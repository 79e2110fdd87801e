package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/ogurtsov/gorodok/internal/chat"
	"github.com/ogurtsov/gorodok/internal/config"
	"github.com/ogurtsov/gorodok/internal/dispatch"
	"github.com/ogurtsov/gorodok/internal/store"
	"github.com/ogurtsov/gorodok/internal/wizard"
)

// Daemon is the main bot process. It connects to Telegram via an
// Adapter, pumps inbound events through the Router one at a time, and
// runs the background schedulers (digest, session sweep).
type Daemon struct {
	st      *store.Store
	cfg     *config.Config
	adapter chat.Adapter
	out     io.Writer

	sessions *wizard.SessionStore
	router   *Router
}

// DaemonOpts holds parameters for creating a Daemon.
type DaemonOpts struct {
	Store   *store.Store
	Config  *config.Config
	Adapter chat.Adapter
	Out     io.Writer // defaults to os.Stdout
}

// NewDaemon creates a Daemon and wires up its subsystems.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("bot: store is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("bot: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	dispatcher, err := dispatch.New(dispatch.Opts{
		Adapter:       opts.Adapter,
		SendInterval:  opts.Config.SendInterval(),
		PhotoGroupMax: opts.Config.Delivery.PhotoGroupMax,
	})
	if err != nil {
		return nil, fmt.Errorf("bot: build dispatcher: %w", err)
	}

	sessions := wizard.NewSessionStore()
	engine, err := wizard.NewEngine(wizard.EngineOpts{
		Sessions: sessions,
		BackText: BackText,
	})
	if err != nil {
		return nil, fmt.Errorf("bot: build engine: %w", err)
	}

	flows, err := NewFlows(FlowsOpts{
		Store:      opts.Store,
		Dispatcher: dispatcher,
		Config:     opts.Config,
	})
	if err != nil {
		return nil, fmt.Errorf("bot: build flows: %w", err)
	}

	router, err := NewRouter(RouterOpts{
		Engine:     engine,
		Flows:      flows,
		Store:      opts.Store,
		Dispatcher: dispatcher,
		Config:     opts.Config,
		Out:        out,
	})
	if err != nil {
		return nil, fmt.Errorf("bot: build router: %w", err)
	}

	return &Daemon{
		st:       opts.Store,
		cfg:      opts.Config,
		adapter:  opts.Adapter,
		out:      out,
		sessions: sessions,
		router:   router,
	}, nil
}

// Run starts the bot. It connects the adapter and blocks until the
// context is cancelled, processing one inbound event to completion
// before the next (sessions are per-user, so there is nothing to
// parallelize that would be worth the shared-state cost). On shutdown
// it closes the adapter gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Gorodok connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: listen: %w", err)
	}

	if d.cfg.Digest.Enabled {
		go d.runDigestScheduler(ctx)
	}
	if d.cfg.SessionTTL() > 0 {
		go d.runSessionSweeper(ctx)
	}

	fmt.Fprintf(d.out, "Gorodok online\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Gorodok shutting down...\n")
			if err := d.adapter.Close(); err != nil {
				log.Printf("bot: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Gorodok stopped\n")
			return nil

		case ev, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "Gorodok inbound channel closed\n")
				return nil
			}
			d.handleEvent(ctx, ev)
		}
	}
}

// handleEvent routes one event with a panic barrier: one user's
// malformed interaction must never take down the event loop.
func (d *Daemon) handleEvent(ctx context.Context, ev chat.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("bot: panic handling event from %d: %v\n%s", ev.SenderID, rec, debug.Stack())
		}
	}()
	d.router.Handle(ctx, ev)
}

// runSessionSweeper periodically evicts wizard sessions idle past the
// configured TTL. Disabled by default: the reference behavior keeps
// abandoned sessions until restart.
func (d *Daemon) runSessionSweeper(ctx context.Context) {
	ttl := d.cfg.SessionTTL()
	ticker := time.NewTicker(time.Duration(d.cfg.Sessions.SweepEverySec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.sessions.EvictBefore(time.Now().Add(-ttl)); n > 0 {
				fmt.Fprintf(d.out, "bot: evicted %d idle sessions\n", n)
			}
		}
	}
}
