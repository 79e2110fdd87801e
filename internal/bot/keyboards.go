package bot

import "github.com/ogurtsov/gorodok/internal/models"

// Button labels. The literal texts double as routing keys: reply
// keyboards send the label back as a plain text message.
const (
	BackText = "⬅️ Назад"
	NextText = "Далее"

	btnNewAd     = "➕ Подать объявление"
	btnBrowseAds = "🔍 Все объявления"
	btnNewFind   = "🧳 Сообщить о находке"
	btnFinds     = "🔎 Бюро находок"
	btnMyRecords = "📂 Мои записи"

	btnFound = "🔍 Я нашёл вещь"
	btnLost  = "😢 Я потерял вещь"

	btnEditTitle   = "Заголовок"
	btnEditBody    = "Описание"
	btnEditContact = "Контакт"
	btnEditItem    = "Название вещи"
	btnEditDetails = "Описание"
	btnEditPlace   = "Место"
	btnEditDone    = "✅ Готово"

	btnMyAds   = "📢 Мои объявления"
	btnMyFinds = "🧳 Мои находки"

	btnActionEdit   = "✏️ Редактировать"
	btnActionDelete = "🗑 Удалить"
)

// mainMenu is the resting keyboard shown outside any wizard.
var mainMenu = [][]string{
	{btnNewAd, btnBrowseAds},
	{btnNewFind, btnFinds},
	{btnMyRecords},
}

// categoryKeyboard lists the fixed categories, one per row, plus back.
func categoryKeyboard() [][]string {
	rows := make([][]string, 0, len(models.Categories)+1)
	for _, c := range models.Categories {
		rows = append(rows, []string{c})
	}
	rows = append(rows, []string{BackText})
	return rows
}

// backKeyboard is the minimal keyboard for free-text steps.
var backKeyboard = [][]string{{BackText}}

// photoKeyboard is offered during photo collection.
var photoKeyboard = [][]string{{NextText}, {BackText}}

// findKindKeyboard is the branch selection for a find report.
var findKindKeyboard = [][]string{{btnFound}, {btnLost}, {BackText}}
