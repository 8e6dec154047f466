package bot

import (
	"fmt"
	"strconv"
	"strings"

	"meditation-bot/internal/activity"
	"meditation-bot/internal/carousel"
	"meditation-bot/internal/i18n"
	"meditation-bot/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackCancel   = "cancel_process"
	prefixWizard     = "wz"
	prefixCarousel   = "car"
	prefixLanguage   = "lang"
	prefixMenu       = "menu"
	prefixActivity   = "act"
	carouselLeft     = "left"
	carouselRight    = "right"
	carouselPick     = "pick"
	wizardPrev       = "prev"
	wizardNext       = "next"
	wizardGoTo       = "go"
	wizardGenText    = "gen_text"
	wizardGender     = "gender"
	wizardPreview    = "preview"
	wizardBgPreview  = "bg_preview"
	wizardMusic      = "music"
	wizardDeleteBg   = "del_bg"
	wizardGenerate   = "generate"
	menuCreate       = "create"
	menuActivities   = "activities"
	activityView     = "view"
	activityJoin     = "join"
	activityLeave    = "leave"
	activityRefresh  = "refresh"
	maxCallbackBytes = 64
)

// callbackData is a parsed "prefix:action:arg" inline button payload.
type callbackData struct {
	Prefix string
	Action string
	Arg    string
}

func parseCallback(data string) callbackData {
	parts := strings.SplitN(data, ":", 3)
	cb := callbackData{Prefix: parts[0]}
	if len(parts) > 1 {
		cb.Action = parts[1]
	}
	if len(parts) > 2 {
		cb.Arg = parts[2]
	}
	return cb
}

func cbData(prefix, action string, arg ...string) string {
	data := prefix + ":" + action
	if len(arg) > 0 {
		data += ":" + arg[0]
	}
	if len(data) > maxCallbackBytes {
		data = data[:maxCallbackBytes]
	}
	return data
}

func (b *Bot) getCancelKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_cancel", nil), callbackCancel),
		),
	)
}

func (b *Bot) getStartKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_create", nil), cbData(prefixMenu, menuCreate)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_activities", nil), cbData(prefixMenu, menuActivities)),
		),
	)
}

func (b *Bot) getLanguageKeyboard(current string) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, lang := range i18n.Supported {
		label := b.translator.T(lang, "language_name", nil)
		if lang == current {
			label = "✓ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbData(prefixLanguage, lang)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// carouselRow renders one option at a time between the two arrow buttons.
// Tapping the card picks the option it shows, even if a later render moved on.
func carouselRow(c *carousel.Controller, label func(carousel.Option) string) []tgbotapi.InlineKeyboardButton {
	cur, ok := c.Current()
	if !ok {
		return nil
	}
	middle := fmt.Sprintf("%s (%d/%d)", label(cur), c.Index()+1, c.Len())
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀", cbData(prefixCarousel, carouselLeft)),
		tgbotapi.NewInlineKeyboardButtonData(middle, cbData(prefixCarousel, carouselPick, cur.Value)),
		tgbotapi.NewInlineKeyboardButtonData("▶", cbData(prefixCarousel, carouselRight)),
	)
}

// progressRow lets the user jump to any step. The current step is marked.
func progressRow(current int) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	for step := wizard.FirstStep; step <= wizard.LastStep; step++ {
		label := strconv.Itoa(step)
		if step == current {
			label = "• " + label + " •"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbData(prefixWizard, wizardGoTo, strconv.Itoa(step))))
	}
	return row
}

func (b *Bot) navigationRow(lang string, step int) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	if step > wizard.FirstStep {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_back", nil), cbData(prefixWizard, wizardPrev)))
	}
	if step < wizard.LastStep {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_next", nil), cbData(prefixWizard, wizardNext)))
	} else {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_generate", nil), cbData(prefixWizard, wizardGenerate)))
	}
	return row
}

func (b *Bot) genderRow(lang string, current wizard.GenderFilter) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	for _, g := range []wizard.GenderFilter{wizard.GenderAll, wizard.GenderFemale, wizard.GenderMale} {
		label := b.translator.T(lang, "gender_"+string(g), nil)
		if g == current {
			label = "✓ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbData(prefixWizard, wizardGender, string(g))))
	}
	return row
}

func (b *Bot) getActivityListKeyboard(activities []activity.Activity) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range activities {
		label := fmt.Sprintf("%s · %s", a.Title, a.StartsAt.Format("02.01 15:04"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbData(prefixActivity, activityView, a.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// getActivityKeyboard offers join only when the confirmed roster allows it.
func (b *Bot) getActivityKeyboard(lang string, view *activity.View, userID int64) tgbotapi.InlineKeyboardMarkup {
	id := view.Confirmed().ActivityID
	var row []tgbotapi.InlineKeyboardButton
	if view.CanJoin(userID) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_join", nil), cbData(prefixActivity, activityJoin, id)))
	}
	if view.Display().IsMember(userID) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_leave", nil), cbData(prefixActivity, activityLeave, id)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_refresh", nil), cbData(prefixActivity, activityRefresh, id)))

	rows := [][]tgbotapi.InlineKeyboardButton{row}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, "button_all_activities", nil), cbData(prefixMenu, menuActivities)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
