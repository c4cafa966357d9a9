package locale

import "github.com/daxxac/talk-tile-buddy/internal/board"

// Key names one piece of UI chrome text.
type Key string

const (
	KeySentenceTitle     Key = "sentence.title"
	KeySentenceEmpty     Key = "sentence.empty"
	KeySpeak             Key = "action.speak"
	KeyStop              Key = "action.stop"
	KeyClear             Key = "action.clear"
	KeySearchPlaceholder Key = "search.placeholder"
	KeySearchEmpty       Key = "search.empty"
	KeyFavorites         Key = "tiles.favorites"
	KeyLanguageChanged   Key = "notice.language_changed"
	KeyDataReset         Key = "notice.data_reset"
	KeyImportDone        Key = "notice.import_done"
	KeyImportFailed      Key = "notice.import_failed"
	KeyCaregiverOn       Key = "caregiver.on"
	KeyCaregiverOff      Key = "caregiver.off"
	KeyLoading           Key = "app.loading"
)

var uiStrings = map[board.Language]map[Key]string{
	board.LanguageEnglish: {
		KeySentenceTitle:     "My Sentence",
		KeySentenceEmpty:     "Tap tiles to build your sentence",
		KeySpeak:             "Play",
		KeyStop:              "Stop",
		KeyClear:             "Clear sentence",
		KeySearchPlaceholder: "Search tiles...",
		KeySearchEmpty:       "No tiles found",
		KeyFavorites:         "Favorites",
		KeyLanguageChanged:   "Language changed",
		KeyDataReset:         "Board restored to the default tiles",
		KeyImportDone:        "Board imported",
		KeyImportFailed:      "Import failed",
		KeyCaregiverOn:       "Caregiver mode on",
		KeyCaregiverOff:      "Caregiver mode off",
		KeyLoading:           "Loading board...",
	},
	board.LanguageRussian: {
		KeySentenceTitle:     "Моё предложение",
		KeySentenceEmpty:     "Нажимайте на карточки, чтобы составить предложение",
		KeySpeak:             "Воспроизвести",
		KeyStop:              "Стоп",
		KeyClear:             "Очистить предложение",
		KeySearchPlaceholder: "Поиск карточек...",
		KeySearchEmpty:       "Карточки не найдены",
		KeyFavorites:         "Избранное",
		KeyLanguageChanged:   "Язык изменён",
		KeyDataReset:         "Доска восстановлена",
		KeyImportFailed:      "Ошибка импорта",
		KeyCaregiverOn:       "Режим опекуна включён",
		KeyCaregiverOff:      "Режим опекуна выключен",
		KeyLoading:           "Загрузка доски...",
	},
	board.LanguageHebrew: {
		KeySentenceTitle:     "המשפט שלי",
		KeySentenceEmpty:     "הקישו על כרטיסים כדי לבנות משפט",
		KeySpeak:             "השמע",
		KeyStop:              "עצור",
		KeyClear:             "נקה משפט",
		KeySearchPlaceholder: "חיפוש כרטיסים...",
		KeyFavorites:         "מועדפים",
		KeyLanguageChanged:   "השפה שונתה",
		KeyCaregiverOn:       "מצב מטפל פעיל",
		KeyCaregiverOff:      "מצב מטפל כבוי",
		KeyLoading:           "טוען לוח...",
	},
}

// UIString looks up key in lang, then in the pivot language, then returns the key itself.
func UIString(key Key, lang board.Language) string {
	if text := uiStrings[lang][key]; text != "" {
		return text
	}
	if text := uiStrings[board.PivotLanguage][key]; text != "" {
		return text
	}
	return string(key)
}
