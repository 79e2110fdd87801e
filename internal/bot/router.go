package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ogurtsov/gorodok/internal/chat"
	"github.com/ogurtsov/gorodok/internal/config"
	"github.com/ogurtsov/gorodok/internal/dispatch"
	"github.com/ogurtsov/gorodok/internal/models"
	"github.com/ogurtsov/gorodok/internal/store"
	"github.com/ogurtsov/gorodok/internal/wizard"
)

const welcomeText = "📢 Добро пожаловать в «Городок — Объявления»!\nВыберите действие:"

const permissionText = "⛔ Недостаточно прав."

// Router classifies inbound events and routes them: an active wizard
// session wins, then slash commands, then main-menu button texts, then
// a fallback hint. One call handles one event to completion.
type Router struct {
	engine     *wizard.Engine
	flows      *Flows
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	cfg        *config.Config
	out        io.Writer
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Engine     *wizard.Engine
	Flows      *Flows
	Store      *store.Store
	Dispatcher *dispatch.Dispatcher
	Config     *config.Config
	Out        io.Writer // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("bot: router: engine is required")
	}
	if opts.Flows == nil {
		return nil, fmt.Errorf("bot: router: flows are required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("bot: router: store is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("bot: router: dispatcher is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("bot: router: config is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		engine:     opts.Engine,
		flows:      opts.Flows,
		store:      opts.Store,
		dispatcher: opts.Dispatcher,
		cfg:        opts.Config,
		out:        out,
	}, nil
}

// Handle routes a single inbound event.
func (r *Router) Handle(ctx context.Context, ev chat.Event) {
	if err := r.store.EnsureUser(ev.SenderID, ev.SenderName); err != nil {
		log.Printf("bot: router: ensure user %d: %v", ev.SenderID, err)
	}

	text := strings.TrimSpace(ev.Text)
	fmt.Fprintf(r.out, "bot: router: recv [user=%d kind=%s] %q\n", ev.SenderID, ev.Kind, truncate(text, 60))

	// /start always resets: abort whatever is in progress.
	if text == "/start" {
		r.engine.Abort(ev.SenderID)
		r.reply(ctx, ev.SenderID, chat.Outbound{Text: welcomeText, Keyboard: mainMenu})
		return
	}

	// Active wizard session.
	if r.engine.Active(ev.SenderID) {
		res, _ := r.engine.Handle(ctx, ev.SenderID, wizard.Input{Text: text, PhotoRef: ev.PhotoRef})
		r.renderResult(ctx, ev.SenderID, res)
		return
	}

	// Slash commands.
	if ev.Kind == chat.EventCommand || strings.HasPrefix(text, "/") {
		r.handleCommand(ctx, ev.SenderID, text)
		return
	}

	// Main-menu buttons.
	switch text {
	case btnNewAd:
		r.startWizard(ctx, ev.SenderID, r.flows.NewAd, nil)
	case btnNewFind:
		r.startWizard(ctx, ev.SenderID, r.flows.NewFind, nil)
	case btnBrowseAds:
		r.startWizard(ctx, ev.SenderID, r.flows.Browse, nil)
	case btnFinds:
		r.listFinds(ctx, ev.SenderID)
	case btnMyRecords:
		r.startWizard(ctx, ev.SenderID, r.flows.MyRecords, wizard.Draft{"user_id": ev.SenderID})
	default:
		r.reply(ctx, ev.SenderID, chat.Outbound{Text: welcomeText, Keyboard: mainMenu})
	}
}

// startWizard begins a wizard run and renders its first prompt.
func (r *Router) startWizard(ctx context.Context, userID int64, w *wizard.Wizard, seed wizard.Draft) {
	res := r.engine.Start(userID, w, seed)
	r.renderResult(ctx, userID, res)
}

// renderResult sends an engine result back to the user. Finished
// sessions fall back to the main-menu keyboard.
func (r *Router) renderResult(ctx context.Context, userID int64, res wizard.Result) {
	if res.Text == "" {
		return
	}
	kb := res.Keyboard
	if res.Done && kb == nil {
		kb = mainMenu
	}
	r.reply(ctx, userID, chat.Outbound{Text: res.Text, Keyboard: kb})
}

// reply delivers a single message, honoring the rate-limit retry rule.
func (r *Router) reply(ctx context.Context, userID int64, msg chat.Outbound) {
	if err := r.dispatcher.Notify(ctx, userID, msg); err != nil {
		log.Printf("bot: router: reply to %d: %v", userID, err)
	}
}

// handleCommand dispatches slash commands.
func (r *Router) handleCommand(ctx context.Context, userID int64, text string) {
	switch {
	case strings.HasPrefix(text, "/comments_"):
		r.listComments(ctx, userID, strings.TrimPrefix(text, "/comments_"))
	case strings.HasPrefix(text, "/comment_"):
		r.startComment(ctx, userID, strings.TrimPrefix(text, "/comment_"))
	case strings.HasPrefix(text, "/delad_"):
		r.deleteRecord(ctx, userID, store.KindAd, strings.TrimPrefix(text, "/delad_"))
	case strings.HasPrefix(text, "/delfind_"):
		r.deleteRecord(ctx, userID, store.KindFind, strings.TrimPrefix(text, "/delfind_"))
	case text == "/broadcast":
		if !r.cfg.IsAdmin(userID) {
			r.reply(ctx, userID, chat.Outbound{Text: permissionText, Keyboard: mainMenu})
			return
		}
		r.startWizard(ctx, userID, r.flows.Broadcast, nil)
	case text == "/admin" || strings.HasPrefix(text, "/admin "):
		r.handleAdmin(ctx, userID, text)
	default:
		r.reply(ctx, userID, chat.Outbound{Text: welcomeText, Keyboard: mainMenu})
	}
}

// startComment begins the comment wizard for an ad.
func (r *Router) startComment(ctx context.Context, userID int64, idArg string) {
	id, ok := parseID(idArg)
	if !ok {
		r.reply(ctx, userID, chat.Outbound{Text: "Не понимаю, о каком объявлении речь.", Keyboard: mainMenu})
		return
	}
	if _, err := r.store.GetAd(id); err != nil {
		r.reply(ctx, userID, chat.Outbound{Text: "Объявление не найдено.", Keyboard: mainMenu})
		return
	}
	r.startWizard(ctx, userID, r.flows.Comment, wizard.Draft{"ad_id": id})
}

// listComments shows an ad's comments, oldest first.
func (r *Router) listComments(ctx context.Context, userID int64, idArg string) {
	id, ok := parseID(idArg)
	if !ok {
		r.reply(ctx, userID, chat.Outbound{Text: "Не понимаю, о каком объявлении речь.", Keyboard: mainMenu})
		return
	}
	comments, err := r.store.ListComments(id)
	if err != nil {
		log.Printf("bot: router: list comments for ad %d: %v", id, err)
		r.reply(ctx, userID, chat.Outbound{Text: commitFailText, Keyboard: mainMenu})
		return
	}
	if len(comments) == 0 {
		r.reply(ctx, userID, chat.Outbound{Text: "Комментариев пока нет.", Keyboard: mainMenu})
		return
	}
	lines := make([]string, 0, len(comments))
	for i := range comments {
		c := &comments[i]
		lines = append(lines, formatComment(c, r.displayName(c.AuthorID)))
	}
	r.reply(ctx, userID, chat.Outbound{Text: strings.Join(lines, "\n"), Keyboard: mainMenu})
}

// deleteRecord removes an ad or find. Owners may delete their own
// records, admins any record.
func (r *Router) deleteRecord(ctx context.Context, userID int64, kind store.Kind, idArg string) {
	id, ok := parseID(idArg)
	if !ok {
		r.reply(ctx, userID, chat.Outbound{Text: "Не понимаю, о какой записи речь.", Keyboard: mainMenu})
		return
	}

	var authorID int64
	switch kind {
	case store.KindAd:
		ad, err := r.store.GetAd(id)
		if err != nil {
			r.reply(ctx, userID, chat.Outbound{Text: "Запись не найдена.", Keyboard: mainMenu})
			return
		}
		authorID = ad.AuthorID
	case store.KindFind:
		find, err := r.store.GetFind(id)
		if err != nil {
			r.reply(ctx, userID, chat.Outbound{Text: "Запись не найдена.", Keyboard: mainMenu})
			return
		}
		authorID = find.AuthorID
	}

	if authorID != userID && !r.cfg.IsAdmin(userID) {
		r.reply(ctx, userID, chat.Outbound{Text: permissionText, Keyboard: mainMenu})
		return
	}
	if err := r.store.Delete(kind, id); err != nil {
		log.Printf("bot: router: delete %s %d: %v", kind, id, err)
		r.reply(ctx, userID, chat.Outbound{Text: commitFailText, Keyboard: mainMenu})
		return
	}
	r.reply(ctx, userID, chat.Outbound{Text: "🗑 Запись удалена.", Keyboard: mainMenu})
}

// listFinds shows the latest lost-and-found records.
func (r *Router) listFinds(ctx context.Context, userID int64) {
	finds, err := r.store.ListFinds(store.Filter{Limit: listLimit})
	if err != nil {
		log.Printf("bot: router: list finds: %v", err)
		r.reply(ctx, userID, chat.Outbound{Text: commitFailText, Keyboard: mainMenu})
		return
	}
	if len(finds) == 0 {
		r.reply(ctx, userID, chat.Outbound{Text: "В бюро находок пока пусто.", Keyboard: mainMenu})
		return
	}
	for i := range finds {
		f := &finds[i]
		err := r.dispatcher.Notify(ctx, userID, chat.Outbound{Text: formatFind(f), Photos: f.Photos()})
		if err != nil {
			log.Printf("bot: router: send find %d to %d: %v", f.ID, userID, err)
		}
	}
	r.reply(ctx, userID, chat.Outbound{Text: fmt.Sprintf("Показаны последние записи (%d).", len(finds)), Keyboard: mainMenu})
}

// displayName resolves a user's stored display name, empty if unknown.
func (r *Router) displayName(userID int64) string {
	var u models.User
	if err := r.store.DB().First(&u, "id = ?", userID).Error; err != nil {
		return ""
	}
	return u.DisplayName
}

// parseID parses a positive record id from the command suffix.
func parseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// truncate returns s truncated to maxLen with "..." appended if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
