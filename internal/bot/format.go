package bot

import (
	"fmt"
	"strings"

	"github.com/ogurtsov/gorodok/internal/models"
)

// timeLayout is the human-facing timestamp format, as the bot has always
// displayed it.
const timeLayout = "02.01.2006 15:04"

// formatAd renders one ad for chat display.
func formatAd(ad *models.Ad) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 %s\n", ad.Title)
	fmt.Fprintf(&b, "%s\n\n", ad.Body)
	fmt.Fprintf(&b, "🗂 %s\n", ad.Category)
	fmt.Fprintf(&b, "📞 Контакт: %s\n", ad.Contact)
	fmt.Fprintf(&b, "📅 %s\n", ad.CreatedAt.Format(timeLayout))
	fmt.Fprintf(&b, "💬 Комментарии: /comments_%d · Оставить: /comment_%d", ad.ID, ad.ID)
	return b.String()
}

// formatFind renders one find report for chat display.
func formatFind(f *models.Find) string {
	var b strings.Builder
	if f.Kind == models.FindKindFound {
		fmt.Fprintf(&b, "🔍 Найдено: %s\n", f.Item)
	} else {
		fmt.Fprintf(&b, "😢 Потеряно: %s\n", f.Item)
	}
	if f.Details != "" {
		fmt.Fprintf(&b, "%s\n", f.Details)
	}
	if f.Location != "" {
		fmt.Fprintf(&b, "📍 %s\n", f.Location)
	}
	if f.OccurredAt != "" {
		fmt.Fprintf(&b, "🕒 %s\n", f.OccurredAt)
	}
	fmt.Fprintf(&b, "📞 Контакт: %s\n", f.Contact)
	fmt.Fprintf(&b, "📅 %s", f.CreatedAt.Format(timeLayout))
	return b.String()
}

// formatComment renders one comment line.
func formatComment(c *models.Comment, authorName string) string {
	name := authorName
	if name == "" {
		name = fmt.Sprintf("пользователь %d", c.AuthorID)
	}
	return fmt.Sprintf("• %s (%s): %s", name, c.CreatedAt.Format(timeLayout), c.Text)
}

// adSummaryLine renders a one-line listing entry for the my-records flow.
func adSummaryLine(n int, ad *models.Ad) string {
	return fmt.Sprintf("%d. [%s] %s — %s", n, ad.Category, ad.Title, ad.CreatedAt.Format("02.01.2006"))
}

// findSummaryLine renders a one-line listing entry for the my-records flow.
func findSummaryLine(n int, f *models.Find) string {
	kind := "находка"
	if f.Kind == models.FindKindLost {
		kind = "пропажа"
	}
	return fmt.Sprintf("%d. [%s] %s — %s", n, kind, f.Item, f.CreatedAt.Format("02.01.2006"))
}
