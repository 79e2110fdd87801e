package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ogurtsov/gorodok/internal/chat"
	"github.com/ogurtsov/gorodok/internal/config"
	"github.com/ogurtsov/gorodok/internal/dispatch"
	"github.com/ogurtsov/gorodok/internal/models"
	"github.com/ogurtsov/gorodok/internal/store"
	"github.com/ogurtsov/gorodok/internal/wizard"
)

// listLimit caps how many records a listing shows at once.
const listLimit = 5

// myRecordsLimit caps the my-records drill-down listing.
const myRecordsLimit = 10

const (
	rejectCategory   = "Выберите категорию из списка."
	rejectEmpty      = "Сообщение не должно быть пустым. Попробуйте ещё раз."
	rejectChoice     = "Выберите вариант с клавиатуры."
	rejectCommentLen = "Комментарий должен быть не длиннее %d символов."
	photoAck         = "Фото добавлено (%d/%d)"
	photoReject      = "Можно загрузить максимум 3 фото."
	exitText         = "Главное меню"
	commitFailText   = "😔 Не получилось сохранить. Попробуйте ещё раз позже."
)

// Flows builds and holds the declarative wizards. All five multi-step
// interactions (plus comments and the admin broadcast) run on the same
// engine; the difference between them is only this step data.
type Flows struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	cfg        *config.Config

	NewAd     *wizard.Wizard
	NewFind   *wizard.Wizard
	EditAd    *wizard.Wizard
	EditFind  *wizard.Wizard
	Browse    *wizard.Wizard
	MyRecords *wizard.Wizard
	Comment   *wizard.Wizard
	Broadcast *wizard.Wizard
}

// FlowsOpts holds parameters for creating Flows.
type FlowsOpts struct {
	Store      *store.Store
	Dispatcher *dispatch.Dispatcher
	Config     *config.Config
}

// NewFlows wires up all wizards and validates their step graphs.
func NewFlows(opts FlowsOpts) (*Flows, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("bot: flows: store is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("bot: flows: dispatcher is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("bot: flows: config is required")
	}
	f := &Flows{
		store:      opts.Store,
		dispatcher: opts.Dispatcher,
		cfg:        opts.Config,
	}
	f.EditAd = f.buildEditAd()
	f.EditFind = f.buildEditFind()
	f.NewAd = f.buildNewAd()
	f.NewFind = f.buildNewFind()
	f.Browse = f.buildBrowse()
	f.MyRecords = f.buildMyRecords()
	f.Comment = f.buildComment()
	f.Broadcast = f.buildBroadcast()

	for _, w := range []*wizard.Wizard{
		f.NewAd, f.NewFind, f.EditAd, f.EditFind,
		f.Browse, f.MyRecords, f.Comment, f.Broadcast,
	} {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("bot: flows: %w", err)
		}
	}
	return f, nil
}

// --- New ad ---

func (f *Flows) buildNewAd() *wizard.Wizard {
	return &wizard.Wizard{
		Name:     "new_ad",
		Start:    "category",
		ExitText: exitText,
		FailText: commitFailText,
		Steps: map[string]*wizard.Step{
			"category": {
				Name:     "category",
				Field:    "category",
				Prompt:   staticPrompt("Выберите категорию:"),
				Accept:   wizard.OneOf(models.Categories, rejectCategory),
				NextName: "title",
				Keyboard: categoryKeyboard(),
			},
			"title": {
				Name:     "title",
				Field:    "title",
				Prompt:   staticPrompt("Введите заголовок объявления:"),
				Accept:   wizard.NonEmpty(rejectEmpty),
				NextName: "body",
				Prev:     "category",
				Keyboard: backKeyboard,
			},
			"body": {
				Name:     "body",
				Field:    "body",
				Prompt:   staticPrompt("Введите описание объявления:"),
				Accept:   wizard.NonEmpty(rejectEmpty),
				NextName: "photos",
				Prev:     "title",
				Keyboard: backKeyboard,
			},
			"photos": {
				Name:         "photos",
				Field:        "photos",
				Prompt:       staticPrompt("Загрузите фото (до 3 шт, по одному). Когда закончите — нажмите «Далее»"),
				NextName:     "contact",
				Prev:         "body",
				Keyboard:     photoKeyboard,
				Repeatable:   true,
				MaxRepeat:    models.MaxPhotos,
				RepeatAck:    photoAck,
				RepeatReject: photoReject,
			},
			"contact": {
				Name:     "contact",
				Field:    "contact",
				Prompt:   staticPrompt("Введите контакт (телефон или @username):"),
				Accept:   wizard.NonEmpty(rejectEmpty),
				Prev:     "photos",
				Keyboard: backKeyboard,
			},
		},
		Commit: f.commitNewAd,
	}
}

func (f *Flows) commitNewAd(ctx context.Context, userID int64, d wizard.Draft) (wizard.CommitResult, error) {
	ad := &models.Ad{
		AuthorID: userID,
		Category: draftString(d, "category"),
		Title:    draftString(d, "title"),
		Body:     draftString(d, "body"),
		Contact:  draftString(d, "contact"),
	}
	ad.SetPhotos(draftStrings(d, "photos"))

	if err := f.store.CreateAd(ad); err != nil {
		return wizard.CommitResult{}, err
	}

	f.alertAdmins(ctx, chat.Outbound{
		Text:   fmt.Sprintf("📢 Новое объявление #%d\n\n%s", ad.ID, formatAd(ad)),
		Photos: ad.Photos(),
	})
	return wizard.CommitResult{Text: "✅ Объявление успешно опубликовано!"}, nil
}

// --- New find report ---

func (f *Flows) buildNewFind() *wizard.Wizard {
	// The item step exists twice, once per branch of the kind selection:
	// the prompts differ, everything downstream is shared.
	itemStep := func(name, prompt string) *wizard.Step {
		return &wizard.Step{
			Name:     name,
			Field:    "item",
			Prompt:   staticPrompt(prompt),
			Accept:   wizard.NonEmpty(rejectEmpty),
			NextName: "details",
			Prev:     "kind",
			Keyboard: backKeyboard,
		}
	}

	return &wizard.Wizard{
		Name:     "new_find",
		Start:    "kind",
		ExitText: exitText,
		FailText: commitFailText,
		Steps: map[string]*wizard.Step{
			"kind": {
				Name:   "kind",
				Field:  "kind",
				Prompt: staticPrompt("Что случилось?"),
				Accept: wizard.Mapped(map[string]string{
					btnFound: models.FindKindFound,
					btnLost:  models.FindKindLost,
				}, rejectChoice),
				Next: func(d wizard.Draft) string {
					if draftString(d, "kind") == models.FindKindLost {
						return "item_lost"
					}
					return "item_found"
				},
				Keyboard: findKindKeyboard,
			},
			"item_found": itemStep("item_found", "Что вы нашли?"),
			"item_lost":  itemStep("item_lost", "Что вы потеряли?"),
			"details": {
				Name:     "details",
				Field:    "details",
				Prompt:   staticPrompt("Опишите вещь подробнее (цвет, приметы):"),
				Accept:   wizard.NonEmpty(rejectEmpty),
				NextName: "location",
				PrevFn: func(d wizard.Draft) string {
					if draftString(d, "kind") == models.FindKindLost {
						return "item_lost"
					}
					return "item_found"
				},
				Keyboard: backKeyboard,
			},
			"location": {
				Name:     "location",
				Field:    "location",
				Prompt:   staticPrompt("Где это произошло?"),
				Accept:   wizard.NonEmpty(rejectEmpty),
				NextName: "occurred",
				Prev:     "details",
				Keyboard: backKeyboard,
			},
			"occurred": {
				Name:     "occurred",
				Field:    "occurred",
				Prompt:   staticPrompt("Когда это произошло? (например: 12.05, вечером)"),
				Accept:   wizard.NonEmpty(rejectEmpty),
				NextName: "photos",
				Prev:     "location",
				Keyboard: backKeyboard,
			},
			"photos": {
				Name:         "photos",
				Field:        "photos",
				Prompt:       staticPrompt("Загрузите фото (до 3 шт, по одному). Когда закончите — нажмите «Далее»"),
				NextName:     "contact",
				Prev:         "occurred",
				Keyboard:     photoKeyboard,
				Repeatable:   true,
				MaxRepeat:    models.MaxPhotos,
				RepeatAck:    photoAck,
				RepeatReject: photoReject,
			},
			"contact": {
				Name:     "contact",
				Field:    "contact",
				Prompt:   staticPrompt("Введите контакт (телефон или @username):"),
				Accept:   wizard.NonEmpty(rejectEmpty),
				Prev:     "photos",
				Keyboard: backKeyboard,
			},
		},
		Commit: f.commitNewFind,
	}
}

func (f *Flows) commitNewFind(ctx context.Context, userID int64, d wizard.Draft) (wizard.CommitResult, error) {
	find := &models.Find{
		AuthorID:   userID,
		Kind:       draftString(d, "kind"),
		Item:       draftString(d, "item"),
		Details:    draftString(d, "details"),
		Location:   draftString(d, "location"),
		OccurredAt: draftString(d, "occurred"),
		Contact:    draftString(d, "contact"),
	}
	find.SetPhotos(draftStrings(d, "photos"))

	if err := f.store.CreateFind(find); err != nil {
		return wizard.CommitResult{}, err
	}

	f.alertAdmins(ctx, chat.Outbound{
		Text:   fmt.Sprintf("🧳 Новая запись в бюро находок #%d\n\n%s", find.ID, formatFind(find)),
		Photos: find.Photos(),
	})
	return wizard.CommitResult{Text: "✅ Запись добавлена в бюро находок!"}, nil
}

// --- Edit ad ---

func (f *Flows) buildEditAd() *wizard.Wizard {
	selection := map[string]string{
		btnEditTitle:   "title",
		btnEditBody:    "body",
		btnEditContact: "contact",
		btnEditDone:    "done",
	}

	subStep := func(name, prompt string) *wizard.Step {
		return &wizard.Step{
			Name:     name,
			Field:    "new_" + name,
			Prompt:   staticPrompt(prompt),
			Accept:   wizard.NonEmpty(rejectEmpty),
			NextName: "field",
			Prev:     "field",
			Keyboard: backKeyboard,
		}
	}

	return &wizard.Wizard{
		Name:     "edit_ad",
		Start:    "field",
		ExitText: exitText,
		FailText: commitFailText,
		Steps: map[string]*wizard.Step{
			"field": {
				Name:   "field",
				Field:  "edit_choice",
				Prompt: staticPrompt("Что изменить? Когда закончите — нажмите «✅ Готово»."),
				Accept: wizard.Mapped(selection, rejectChoice),
				Next: func(d wizard.Draft) string {
					choice := draftString(d, "edit_choice")
					if choice == "done" {
						return ""
					}
					return choice
				},
				Keyboard: [][]string{
					{btnEditTitle, btnEditBody},
					{btnEditContact},
					{btnEditDone},
					{BackText},
				},
			},
			"title":   subStep("title", "Введите новый заголовок:"),
			"body":    subStep("body", "Введите новое описание:"),
			"contact": subStep("contact", "Введите новый контакт:"),
		},
		Commit: f.commitEditAd,
	}
}

func (f *Flows) commitEditAd(ctx context.Context, userID int64, d wizard.Draft) (wizard.CommitResult, error) {
	id := draftUint(d, "ad_id")
	ad, err := f.store.GetAd(id)
	if err != nil {
		return wizard.CommitResult{}, err
	}
	if ad.AuthorID != userID && !f.cfg.IsAdmin(userID) {
		return wizard.CommitResult{Text: "⛔ Это не ваша запись."}, nil
	}

	changed := 0
	for _, field := range []string{"title", "body", "contact"} {
		value := draftString(d, "new_"+field)
		if value == "" {
			continue
		}
		if err := f.store.UpdateField(store.KindAd, id, field, value); err != nil {
			return wizard.CommitResult{}, err
		}
		changed++
	}
	if changed == 0 {
		return wizard.CommitResult{Text: "Без изменений."}, nil
	}
	return wizard.CommitResult{Text: "✅ Объявление обновлено."}, nil
}

// --- Edit find ---

func (f *Flows) buildEditFind() *wizard.Wizard {
	selection := map[string]string{
		btnEditItem:    "item",
		btnEditDetails: "details",
		btnEditPlace:   "location",
		btnEditContact: "contact",
		btnEditDone:    "done",
	}

	subStep := func(name, prompt string) *wizard.Step {
		return &wizard.Step{
			Name:     name,
			Field:    "new_" + name,
			Prompt:   staticPrompt(prompt),
			Accept:   wizard.NonEmpty(rejectEmpty),
			NextName: "field",
			Prev:     "field",
			Keyboard: backKeyboard,
		}
	}

	return &wizard.Wizard{
		Name:     "edit_find",
		Start:    "field",
		ExitText: exitText,
		FailText: commitFailText,
		Steps: map[string]*wizard.Step{
			"field": {
				Name:   "field",
				Field:  "edit_choice",
				Prompt: staticPrompt("Что изменить? Когда закончите — нажмите «✅ Готово»."),
				Accept: wizard.Mapped(selection, rejectChoice),
				Next: func(d wizard.Draft) string {
					choice := draftString(d, "edit_choice")
					if choice == "done" {
						return ""
					}
					return choice
				},
				Keyboard: [][]string{
					{btnEditItem, btnEditDetails},
					{btnEditPlace, btnEditContact},
					{btnEditDone},
					{BackText},
				},
			},
			"item":     subStep("item", "Введите новое название вещи:"),
			"details":  subStep("details", "Введите новое описание:"),
			"location": subStep("location", "Введите новое место:"),
			"contact":  subStep("contact", "Введите новый контакт:"),
		},
		Commit: f.commitEditFind,
	}
}

func (f *Flows) commitEditFind(ctx context.Context, userID int64, d wizard.Draft) (wizard.CommitResult, error) {
	id := draftUint(d, "find_id")
	find, err := f.store.GetFind(id)
	if err != nil {
		return wizard.CommitResult{}, err
	}
	if find.AuthorID != userID && !f.cfg.IsAdmin(userID) {
		return wizard.CommitResult{Text: "⛔ Это не ваша запись."}, nil
	}

	changed := 0
	for _, field := range []string{"item", "details", "location", "contact"} {
		value := draftString(d, "new_"+field)
		if value == "" {
			continue
		}
		if err := f.store.UpdateField(store.KindFind, id, field, value); err != nil {
			return wizard.CommitResult{}, err
		}
		changed++
	}
	if changed == 0 {
		return wizard.CommitResult{Text: "Без изменений."}, nil
	}
	return wizard.CommitResult{Text: "✅ Запись обновлена."}, nil
}

// --- Browse ads by category ---

func (f *Flows) buildBrowse() *wizard.Wizard {
	return &wizard.Wizard{
		Name:     "browse",
		Start:    "category",
		ExitText: exitText,
		FailText: commitFailText,
		Steps: map[string]*wizard.Step{
			"category": {
				Name:     "category",
				Field:    "category",
				Prompt:   staticPrompt("Выберите категорию:"),
				Accept:   wizard.OneOf(models.Categories, rejectCategory),
				Keyboard: categoryKeyboard(),
			},
		},
		Commit: f.commitBrowse,
	}
}

func (f *Flows) commitBrowse(ctx context.Context, userID int64, d wizard.Draft) (wizard.CommitResult, error) {
	category := draftString(d, "category")
	ads, err := f.store.ListAds(store.Filter{Category: category, Limit: listLimit})
	if err != nil {
		return wizard.CommitResult{}, err
	}
	if len(ads) == 0 {
		return wizard.CommitResult{Text: "В этой категории пока нет объявлений."}, nil
	}

	for i := range ads {
		ad := &ads[i]
		err := f.dispatcher.Notify(ctx, userID, chat.Outbound{
			Text:   formatAd(ad),
			Photos: ad.Photos(),
		})
		if err != nil {
			log.Printf("bot: browse: send ad %d to %d: %v", ad.ID, userID, err)
		}
	}
	return wizard.CommitResult{Text: fmt.Sprintf("Показаны последние объявления (%d).", len(ads))}, nil
}

// --- My records drill-down ---

func (f *Flows) buildMyRecords() *wizard.Wizard {
	return &wizard.Wizard{
		Name:     "my_records",
		Start:    "kind",
		ExitText: exitText,
		FailText: commitFailText,
		Steps: map[string]*wizard.Step{
			"kind": {
				Name:   "kind",
				Field:  "rec_kind",
				Prompt: staticPrompt("Что показать?"),
				Accept: wizard.Mapped(map[string]string{
					btnMyAds:   string(store.KindAd),
					btnMyFinds: string(store.KindFind),
				}, rejectChoice),
				NextName: "pick",
				Keyboard: [][]string{{btnMyAds}, {btnMyFinds}, {BackText}},
			},
			"pick": {
				Name:     "pick",
				Field:    "rec_id",
				Prompt:   f.promptMyRecords,
				Accept:   f.acceptMyRecord,
				NextName: "action",
				Prev:     "kind",
				Keyboard: backKeyboard,
			},
			"action": {
				Name:   "action",
				Field:  "action",
				Prompt: staticPrompt("Что сделать с записью?"),
				Accept: wizard.Mapped(map[string]string{
					btnActionEdit:   "edit",
					btnActionDelete: "delete",
				}, rejectChoice),
				Prev:     "pick",
				Keyboard: [][]string{{btnActionEdit, btnActionDelete}, {BackText}},
			},
		},
		Commit: f.commitMyRecords,
	}
}

// promptMyRecords lists the user's own records, numbered. The list is
// rebuilt from the store on render and again on accept; the window
// between them is a single user's turn, so drift is not a concern.
func (f *Flows) promptMyRecords(d wizard.Draft) string {
	userID := draftInt64(d, "user_id")
	kind := store.Kind(draftString(d, "rec_kind"))

	var lines []string
	switch kind {
	case store.KindAd:
		ads, err := f.store.ListAds(store.Filter{UserID: userID, Limit: myRecordsLimit})
		if err != nil {
			log.Printf("bot: my records: list ads for %d: %v", userID, err)
		}
		for i := range ads {
			lines = append(lines, adSummaryLine(i+1, &ads[i]))
		}
	case store.KindFind:
		finds, err := f.store.ListFinds(store.Filter{UserID: userID, Limit: myRecordsLimit})
		if err != nil {
			log.Printf("bot: my records: list finds for %d: %v", userID, err)
		}
		for i := range finds {
			lines = append(lines, findSummaryLine(i+1, &finds[i]))
		}
	}

	if len(lines) == 0 {
		return "У вас пока нет записей. Нажмите «⬅️ Назад»."
	}
	return "Ваши записи:\n" + strings.Join(lines, "\n") + "\n\nОтправьте номер записи:"
}

// acceptMyRecord resolves the entered number against the same listing
// the prompt showed and stores the record id.
func (f *Flows) acceptMyRecord(in wizard.Input, d wizard.Draft) (interface{}, *wizard.Rejection) {
	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || n < 1 {
		return nil, &wizard.Rejection{Reason: "Отправьте номер записи из списка."}
	}

	userID := draftInt64(d, "user_id")
	kind := store.Kind(draftString(d, "rec_kind"))

	switch kind {
	case store.KindAd:
		ads, err := f.store.ListAds(store.Filter{UserID: userID, Limit: myRecordsLimit})
		if err != nil || n > len(ads) {
			return nil, &wizard.Rejection{Reason: "Отправьте номер записи из списка."}
		}
		return ads[n-1].ID, nil
	case store.KindFind:
		finds, err := f.store.ListFinds(store.Filter{UserID: userID, Limit: myRecordsLimit})
		if err != nil || n > len(finds) {
			return nil, &wizard.Rejection{Reason: "Отправьте номер записи из списка."}
		}
		return finds[n-1].ID, nil
	}
	return nil, &wizard.Rejection{Reason: "Отправьте номер записи из списка."}
}

func (f *Flows) commitMyRecords(ctx context.Context, userID int64, d wizard.Draft) (wizard.CommitResult, error) {
	kind := store.Kind(draftString(d, "rec_kind"))
	id := draftUint(d, "rec_id")
	action := draftString(d, "action")

	if action == "delete" {
		if err := f.store.Delete(kind, id); err != nil {
			return wizard.CommitResult{}, err
		}
		return wizard.CommitResult{Text: "🗑 Запись удалена."}, nil
	}

	// Edit: hand off to the matching edit wizard.
	switch kind {
	case store.KindFind:
		return wizard.CommitResult{
			Text: "✏️ Редактирование записи.",
			Next: &wizard.Handoff{Wizard: f.EditFind, Seed: wizard.Draft{"find_id": id}},
		}, nil
	default:
		return wizard.CommitResult{
			Text: "✏️ Редактирование объявления.",
			Next: &wizard.Handoff{Wizard: f.EditAd, Seed: wizard.Draft{"ad_id": id}},
		}, nil
	}
}

// --- Comment ---

func (f *Flows) buildComment() *wizard.Wizard {
	return &wizard.Wizard{
		Name:     "comment",
		Start:    "text",
		ExitText: exitText,
		FailText: commitFailText,
		Steps: map[string]*wizard.Step{
			"text": {
				Name:     "text",
				Field:    "text",
				Prompt:   staticPrompt(fmt.Sprintf("Напишите комментарий (до %d символов):", models.MaxCommentLen)),
				Accept:   wizard.MaxLen(models.MaxCommentLen, rejectCommentLen),
				Keyboard: backKeyboard,
			},
		},
		Commit: f.commitComment,
	}
}

func (f *Flows) commitComment(ctx context.Context, userID int64, d wizard.Draft) (wizard.CommitResult, error) {
	adID := draftUint(d, "ad_id")
	ad, err := f.store.GetAd(adID)
	if err != nil {
		return wizard.CommitResult{}, err
	}

	c := &models.Comment{
		AdID:     adID,
		AuthorID: userID,
		Text:     draftString(d, "text"),
	}
	if err := f.store.CreateComment(c); err != nil {
		return wizard.CommitResult{}, err
	}

	if ad.AuthorID != userID {
		err := f.dispatcher.Notify(ctx, ad.AuthorID, chat.Outbound{
			Text: fmt.Sprintf("💬 Новый комментарий к вашему объявлению «%s»:\n%s", ad.Title, c.Text),
		})
		if err != nil {
			log.Printf("bot: comment: notify author %d: %v", ad.AuthorID, err)
		}
	}
	return wizard.CommitResult{Text: "✅ Комментарий добавлен."}, nil
}

// --- Admin broadcast ---

func (f *Flows) buildBroadcast() *wizard.Wizard {
	return &wizard.Wizard{
		Name:     "broadcast",
		Start:    "text",
		ExitText: exitText,
		FailText: commitFailText,
		Steps: map[string]*wizard.Step{
			"text": {
				Name:     "text",
				Field:    "text",
				Prompt:   staticPrompt("Введите текст рассылки:"),
				Accept:   wizard.NonEmpty(rejectEmpty),
				Keyboard: backKeyboard,
			},
		},
		Commit: f.commitBroadcast,
	}
}

func (f *Flows) commitBroadcast(ctx context.Context, userID int64, d wizard.Draft) (wizard.CommitResult, error) {
	ids, err := f.store.AllUserIDs()
	if err != nil {
		return wizard.CommitResult{}, err
	}
	report := f.dispatcher.Deliver(ctx, ids, chat.Outbound{Text: draftString(d, "text")})
	return wizard.CommitResult{
		Text: "📣 Рассылка завершена. " + report.String(),
	}, nil
}

// alertAdmins fans out a notification to the configured admins.
func (f *Flows) alertAdmins(ctx context.Context, msg chat.Outbound) {
	admins := f.cfg.Telegram.AdminIDs
	if len(admins) == 0 {
		return
	}
	report := f.dispatcher.Deliver(ctx, admins, msg)
	if report.Failed > 0 || report.Blocked > 0 {
		log.Printf("bot: admin alert: %s", report.String())
	}
}

// --- Draft helpers ---

func staticPrompt(text string) func(wizard.Draft) string {
	return func(wizard.Draft) string { return text }
}

func draftString(d wizard.Draft, key string) string {
	s, _ := d[key].(string)
	return s
}

func draftStrings(d wizard.Draft, key string) []string {
	s, _ := d[key].([]string)
	return s
}

func draftUint(d wizard.Draft, key string) uint {
	switch v := d[key].(type) {
	case uint:
		return v
	case int:
		return uint(v)
	}
	return 0
}

func draftInt64(d wizard.Draft, key string) int64 {
	switch v := d[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
