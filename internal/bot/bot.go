package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"meditation-bot/internal/activity"
	"meditation-bot/internal/config"
	"meditation-bot/internal/i18n"
	"meditation-bot/internal/meditation"
	"meditation-bot/internal/session"
	"meditation-bot/internal/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type activityBackend interface {
	ListActivities(ctx context.Context) ([]activity.Activity, error)
	GetActivity(ctx context.Context, id string) (activity.Activity, error)
	GetRoster(ctx context.Context, id string) (activity.Roster, error)
	Join(ctx context.Context, id string, m activity.Member) (activity.Roster, error)
	Leave(ctx context.Context, id string, userID int64) (activity.Roster, error)
}

type sessionBackend interface {
	Session(userID int64) session.Store
}

type Bot struct {
	api         telegramAPI
	cfg         *config.Config
	translator  *i18n.Translator
	prefs       sessionBackend
	service     *meditation.Service
	activities  activityBackend
	sessions    *state.Manager
	httpClient  *http.Client
	logger      *zap.Logger
	activeTasks sync.Map
	userLocks   sync.Map
}

func New(cfg *config.Config, translator *i18n.Translator, prefs sessionBackend, service *meditation.Service, activities activityBackend, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}
	api.Debug = false
	logger.Info("Authorized on Telegram", zap.String("account", api.Self.UserName))

	bot := newBot(api, cfg, translator, prefs, service, activities, logger)
	if err := bot.setCommands(); err != nil {
		logger.Warn("Failed to set bot commands", zap.Error(err))
	}
	return bot, nil
}

func newBot(api telegramAPI, cfg *config.Config, translator *i18n.Translator, prefs sessionBackend, service *meditation.Service, activities activityBackend, logger *zap.Logger) *Bot {
	return &Bot{
		api:        api,
		cfg:        cfg,
		translator: translator,
		prefs:      prefs,
		service:    service,
		activities: activities,
		sessions:   state.NewManager(logger),
		httpClient: &http.Client{Timeout: time.Minute},
		logger:     logger,
	}
}

func (b *Bot) setCommands() error {
	lang := b.translator.DefaultLang()
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: b.translator.T(lang, "command_start", nil)},
		{Command: "create", Description: b.translator.T(lang, "command_create", nil)},
		{Command: "activities", Description: b.translator.T(lang, "command_activities", nil)},
		{Command: "language", Description: b.translator.T(lang, "command_language", nil)},
		{Command: "help", Description: b.translator.T(lang, "command_help", nil)},
		{Command: "cancel", Description: b.translator.T(lang, "command_cancel", nil)},
	}
	_, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...))
	return err
}

// Start blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Listening for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.activeTasks.Range(func(key, value any) bool {
				value.(*backgroundTask).cancel()
				return true
			})
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	var userID int64
	var chatID int64

	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		userID = upd.CallbackQuery.From.ID
		chatID = upd.CallbackQuery.Message.Chat.ID
	case upd.Message != nil && upd.Message.From != nil:
		userID = upd.Message.From.ID
		chatID = upd.Message.Chat.ID
	default:
		return
	}

	b.withUserLock(userID, func() {
		lang := b.userLang(ctx, userID)

		if upd.CallbackQuery != nil {
			b.handleCallbackQuery(ctx, upd.CallbackQuery, lang)
			return
		}

		msg := upd.Message
		b.logger.Debug("Received message", zap.Int64("user_id", userID), zap.Int64("chat_id", chatID))
		if msg.IsCommand() {
			b.handleCommand(ctx, msg, lang)
			return
		}
		b.handleWizardInput(ctx, msg, lang)
	})
}

func (b *Bot) userLang(ctx context.Context, userID int64) string {
	lang, err := b.prefs.Session(userID).Get(ctx, session.KeyLanguage, b.translator.DefaultLang())
	if err != nil {
		b.logger.Warn("Could not read language preference", zap.Int64("user_id", userID), zap.Error(err))
	}
	return i18n.Normalize(lang)
}

func (b *Bot) getFileBytes(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram file download returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := b.api.Send(c)
	if err != nil && !strings.Contains(err.Error(), "message is not modified") {
		b.logger.Warn("Failed to send telegram message", zap.Error(err))
	}
	return m, err
}

func (b *Bot) sendText(chatID int64, lang, messageID string, data map[string]any) {
	msg := tgbotapi.NewMessage(chatID, b.translator.T(lang, messageID, data))
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg)
}

func (b *Bot) sendErrorMessage(chatID int64, lang, messageID string) {
	b.send(tgbotapi.NewMessage(chatID, b.translator.T(lang, messageID, nil)))
}

type backgroundTask struct {
	cancel context.CancelFunc
}

// registerBackgroundTask cancels any earlier task of the user and returns a
// context for the new one. The returned func releases the task.
func (b *Bot) registerBackgroundTask(ctx context.Context, userID int64) (context.Context, func()) {
	b.cancelBackgroundTask(userID)

	taskCtx, cancel := context.WithCancel(ctx)
	task := &backgroundTask{cancel: cancel}
	b.activeTasks.Store(userID, task)
	return taskCtx, func() {
		b.activeTasks.CompareAndDelete(userID, task)
		cancel()
	}
}

func (b *Bot) cancelBackgroundTask(userID int64) {
	if task, ok := b.activeTasks.LoadAndDelete(userID); ok {
		task.(*backgroundTask).cancel()
		b.logger.Info("Cancelled background task", zap.Int64("user_id", userID))
	}
}

// withUserLock runs fn under the same per-user lock the update loop uses.
func (b *Bot) withUserLock(userID int64, fn func()) {
	mu, _ := b.userLocks.LoadOrStore(userID, &sync.Mutex{})
	userMutex := mu.(*sync.Mutex)
	userMutex.Lock()
	defer userMutex.Unlock()
	fn()
}
