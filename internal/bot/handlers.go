package bot

import (
	"context"

	"meditation-bot/internal/i18n"
	"meditation-bot/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, cq *tgbotapi.CallbackQuery, lang string) {
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	cb := parseCallback(cq.Data)

	// Handlers that need an alert answer the query themselves.
	answered := false
	answer := func(messageID string) {
		answered = true
		b.answerCallback(cq.ID, b.translator.T(lang, messageID, nil), true)
	}
	defer func() {
		if !answered {
			b.answerCallback(cq.ID, "", false)
		}
	}()

	if (cb.Prefix == prefixWizard || cb.Prefix == prefixCarousel) && b.sessions.Get(userID).WizardMessageID() != cq.Message.MessageID {
		answer("wizard_expired")
		return
	}

	switch cb.Prefix {
	case callbackCancel:
		b.handleCancel(ctx, chatID, userID, lang)
	case prefixWizard:
		b.handleWizardCallback(ctx, chatID, userID, lang, cb, answer)
	case prefixCarousel:
		b.handleCarouselCallback(ctx, chatID, userID, lang, cb)
	case prefixLanguage:
		b.handleLanguageSelection(ctx, chatID, userID, cb.Action)
	case prefixMenu:
		b.handleMenu(ctx, chatID, userID, lang, cb.Action)
	case prefixActivity:
		b.handleActivityCallback(ctx, cq, lang, cb, answer)
	default:
		b.logger.Warn("Received unknown callback data", zap.String("data", cq.Data))
	}
}

func (b *Bot) answerCallback(id, text string, alert bool) {
	ack := tgbotapi.NewCallback(id, text)
	ack.ShowAlert = alert
	if _, err := b.api.Request(ack); err != nil {
		b.logger.Warn("Failed to acknowledge callback query", zap.Error(err))
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message, lang string) {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch message.Command() {
	case "start":
		b.handleStartCommand(ctx, chatID, userID, lang)
	case "create":
		b.handleMenu(ctx, chatID, userID, lang, menuCreate)
	case "activities":
		b.handleMenu(ctx, chatID, userID, lang, menuActivities)
	case "language":
		b.handleLanguageCommand(chatID, lang)
	case "help":
		b.sendText(chatID, lang, "help_message", nil)
	case "cancel":
		b.handleCancel(ctx, chatID, userID, lang)
	default:
		b.logger.Info("Received an unknown command", zap.String("command", message.Command()))
	}
}

// handleStartCommand greets the user and reopens the section they used last.
func (b *Bot) handleStartCommand(ctx context.Context, chatID, userID int64, lang string) {
	msg := tgbotapi.NewMessage(chatID, b.translator.T(lang, "start_message", nil))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = b.getStartKeyboard(lang)
	if _, err := b.send(msg); err != nil {
		return
	}

	last, err := b.prefs.Session(userID).Get(ctx, session.KeyLastSection, "")
	if err != nil {
		b.logger.Warn("Could not read last section", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if last == menuActivities {
		b.sendActivityList(ctx, chatID, lang)
	}
}

func (b *Bot) handleMenu(ctx context.Context, chatID, userID int64, lang, section string) {
	if section != menuCreate && section != menuActivities {
		b.logger.Warn("Unknown menu section", zap.String("section", section))
		return
	}
	if err := b.prefs.Session(userID).Set(ctx, session.KeyLastSection, section); err != nil {
		b.logger.Warn("Could not store last section", zap.Int64("user_id", userID), zap.Error(err))
	}

	if section == menuActivities {
		b.sendActivityList(ctx, chatID, lang)
		return
	}
	b.startWizard(ctx, chatID, userID, lang)
}

func (b *Bot) handleLanguageCommand(chatID int64, lang string) {
	msg := tgbotapi.NewMessage(chatID, b.translator.T(lang, "choose_language", nil))
	msg.ReplyMarkup = b.getLanguageKeyboard(lang)
	b.send(msg)
}

func (b *Bot) handleLanguageSelection(ctx context.Context, chatID, userID int64, lang string) {
	lang = i18n.Normalize(lang)
	if err := b.prefs.Session(userID).Set(ctx, session.KeyLanguage, lang); err != nil {
		b.logger.Error("Could not store language", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, lang, "generic_error")
		return
	}
	b.sendText(chatID, lang, "language_changed", nil)
}

// handleCancel drops the wizard, silences previews and abandons any running generation.
func (b *Bot) handleCancel(ctx context.Context, chatID, userID int64, lang string) {
	b.cancelBackgroundTask(userID)
	old := b.sessions.Get(userID)
	if id := old.WizardMessageID(); id != 0 {
		b.deleteMessage(chatID, id)
	}
	b.sessions.Reset(userID)
	b.sendText(chatID, lang, "cancel_message", nil)
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Debug("Failed to delete message", zap.Int("message_id", messageID), zap.Error(err))
	}
}
