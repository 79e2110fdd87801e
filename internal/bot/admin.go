package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ogurtsov/gorodok/internal/chat"
	"github.com/ogurtsov/gorodok/internal/store"
)

// adminListLimit caps admin listings.
const adminListLimit = 10

// handleAdmin dispatches "/admin ..." moderation commands. All of them
// are rejected for non-privileged callers with no side effect.
func (r *Router) handleAdmin(ctx context.Context, userID int64, text string) {
	if !r.cfg.IsAdmin(userID) {
		r.reply(ctx, userID, chat.Outbound{Text: permissionText, Keyboard: mainMenu})
		return
	}

	args := strings.Fields(strings.TrimPrefix(text, "/admin"))
	if len(args) == 0 {
		r.reply(ctx, userID, chat.Outbound{Text: adminHelpText(), Keyboard: mainMenu})
		return
	}

	switch args[0] {
	case "ads":
		r.adminListAds(ctx, userID)
	case "finds":
		r.adminListFinds(ctx, userID)
	case "stats":
		r.adminStats(ctx, userID)
	default:
		r.reply(ctx, userID, chat.Outbound{
			Text:     fmt.Sprintf("Неизвестная команда «%s».\n\n%s", args[0], adminHelpText()),
			Keyboard: mainMenu,
		})
	}
}

func adminHelpText() string {
	return strings.Join([]string{
		"Команды администратора:",
		"/admin ads — последние объявления",
		"/admin finds — последние находки",
		"/admin stats — счётчики",
		"/broadcast — рассылка всем пользователям",
		"/delad_<id>, /delfind_<id> — удалить запись",
	}, "\n")
}

// adminListAds shows the latest ads with ids and delete shortcuts.
func (r *Router) adminListAds(ctx context.Context, userID int64) {
	ads, err := r.store.ListAds(store.Filter{Limit: adminListLimit})
	if err != nil {
		log.Printf("bot: admin: list ads: %v", err)
		r.reply(ctx, userID, chat.Outbound{Text: commitFailText, Keyboard: mainMenu})
		return
	}
	if len(ads) == 0 {
		r.reply(ctx, userID, chat.Outbound{Text: "Объявлений нет.", Keyboard: mainMenu})
		return
	}
	lines := make([]string, 0, len(ads))
	for i := range ads {
		ad := &ads[i]
		lines = append(lines, fmt.Sprintf("#%d [%s] %s (автор %d) — удалить: /delad_%d",
			ad.ID, ad.Category, ad.Title, ad.AuthorID, ad.ID))
	}
	r.reply(ctx, userID, chat.Outbound{Text: strings.Join(lines, "\n"), Keyboard: mainMenu})
}

// adminListFinds shows the latest find reports with ids.
func (r *Router) adminListFinds(ctx context.Context, userID int64) {
	finds, err := r.store.ListFinds(store.Filter{Limit: adminListLimit})
	if err != nil {
		log.Printf("bot: admin: list finds: %v", err)
		r.reply(ctx, userID, chat.Outbound{Text: commitFailText, Keyboard: mainMenu})
		return
	}
	if len(finds) == 0 {
		r.reply(ctx, userID, chat.Outbound{Text: "Находок нет.", Keyboard: mainMenu})
		return
	}
	lines := make([]string, 0, len(finds))
	for i := range finds {
		f := &finds[i]
		lines = append(lines, fmt.Sprintf("#%d [%s] %s (автор %d) — удалить: /delfind_%d",
			f.ID, f.Kind, f.Item, f.AuthorID, f.ID))
	}
	r.reply(ctx, userID, chat.Outbound{Text: strings.Join(lines, "\n"), Keyboard: mainMenu})
}

// adminStats shows record totals.
func (r *Router) adminStats(ctx context.Context, userID int64) {
	counts, err := r.store.CountAll()
	if err != nil {
		log.Printf("bot: admin: stats: %v", err)
		r.reply(ctx, userID, chat.Outbound{Text: commitFailText, Keyboard: mainMenu})
		return
	}
	text := fmt.Sprintf("📊 Объявлений: %d\nНаходок: %d\nКомментариев: %d\nПользователей: %d",
		counts.Ads, counts.Finds, counts.Comments, counts.Users)
	r.reply(ctx, userID, chat.Outbound{Text: text, Keyboard: mainMenu})
}
