package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"meditation-bot/internal/carousel"
	"meditation-bot/internal/meditation"
	"meditation-bot/internal/playback"
	"meditation-bot/internal/state"
	"meditation-bot/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const textPreviewRunes = 300

func (b *Bot) startWizard(ctx context.Context, chatID, userID int64, lang string) {
	b.cancelBackgroundTask(userID)
	if id := b.sessions.Get(userID).WizardMessageID(); id != 0 {
		b.deleteMessage(chatID, id)
	}
	b.sessions.Reset(userID)
	b.renderWizard(ctx, chatID, userID, lang, true)
}

// renderWizard edits the wizard message in place, or posts a new one when fresh
// is set or the old message is gone.
func (b *Bot) renderWizard(ctx context.Context, chatID, userID int64, lang string, fresh bool) {
	sess := b.sessions.Get(userID)
	if err := b.refreshOptions(ctx, sess, userID); err != nil {
		b.logger.Error("Failed to load wizard options", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, lang, "options_error")
	}

	text := b.wizardText(lang, sess)
	keyboard := b.wizardKeyboard(lang, sess)

	messageID := sess.WizardMessageID()
	if fresh && messageID != 0 {
		b.deleteMessage(chatID, messageID)
		messageID = 0
	}
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
		edit.ParseMode = tgbotapi.ModeHTML
		_, err := b.send(edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	m, err := b.send(msg)
	if err != nil {
		return
	}
	sess.SetWizardMessageID(m.MessageID)
}

func (b *Bot) refreshOptions(ctx context.Context, sess *state.Session, userID int64) error {
	switch sess.Machine.Step() {
	case wizard.StepVoice:
		return b.refreshVoices(ctx, sess)
	case wizard.StepBackground:
		return b.refreshBackgrounds(ctx, sess, userID)
	}
	return nil
}

// refreshVoices reloads the voice carousel for the current gender filter. The
// voice on screen is always the selected one.
func (b *Bot) refreshVoices(ctx context.Context, sess *state.Session) error {
	data := sess.Machine.Data()
	voices, err := b.service.Voices(ctx, data.GenderFilter)
	if err != nil {
		return err
	}

	options := make([]carousel.Option, 0, len(voices))
	for _, v := range voices {
		label := v.DisplayName()
		if g := v.GenderLabel(); g != "" {
			label += " · " + g
		}
		options = append(options, carousel.Option{Value: v.VoiceID, Label: label})
	}

	c := sess.Carousels[state.PickerVoice]
	c.SetOptions(options)
	c.SyncFromExternalSelection(data.VoiceID)
	cur, ok := c.Current()
	if !ok {
		// Nothing matches the filter, so no voice can stay selected.
		if data.VoiceID == "" {
			return nil
		}
		return sess.Machine.Dispatch(wizard.SetVoice{VoiceID: ""})
	}
	if cur.Value == data.VoiceID {
		return nil
	}
	return sess.Machine.Dispatch(wizard.SetVoice{VoiceID: cur.Value})
}

// refreshBackgrounds reloads system and saved tracks followed by the upload card.
func (b *Bot) refreshBackgrounds(ctx context.Context, sess *state.Session, userID int64) error {
	data := sess.Machine.Data()
	backgrounds, err := b.service.Backgrounds(ctx, userID)
	if err != nil {
		return err
	}

	options := make([]carousel.Option, 0, len(backgrounds)+1)
	for _, bg := range backgrounds {
		options = append(options, carousel.Option{
			Value: bg.SelectionKey(),
			Label: strings.TrimSpace(bg.Icon + " " + bg.CustomName),
		})
	}
	options = append(options, carousel.Option{Value: state.UploadOption, Sentinel: true})

	c := sess.Carousels[state.PickerBackground]
	c.SetOptions(options)

	known := slices.ContainsFunc(options, func(o carousel.Option) bool {
		return !o.Sentinel && o.Value == data.Background
	})
	if known {
		if cur, _ := c.Current(); !cur.Sentinel && cur.Value != data.Background {
			c.SyncFromExternalSelection(data.Background)
		}
		return nil
	}

	// The selected track is gone: fall back to what the carousel shows.
	cur, _ := c.Current()
	value := cur.Value
	if cur.Sentinel {
		value = options[0].Value
		c.SyncFromExternalSelection(value)
	}
	if value == state.UploadOption {
		return nil
	}
	return sess.Machine.Dispatch(wizard.SetBackground{Background: value})
}

func optionLabelFor(c *carousel.Controller, value string) string {
	for _, o := range c.Options() {
		if o.Value == value && o.Label != "" {
			return o.Label
		}
	}
	return value
}

func (b *Bot) optionLabel(lang string, picker state.Picker) func(carousel.Option) string {
	return func(o carousel.Option) string {
		switch {
		case o.Sentinel:
			return b.translator.T(lang, "bg_upload", nil)
		case picker == state.PickerType:
			return b.translator.T(lang, "type_"+o.Value, nil)
		case o.Label != "":
			return o.Label
		default:
			return o.Value
		}
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func (b *Bot) wizardText(lang string, sess *state.Session) string {
	step := sess.Machine.Step()
	data := sess.Machine.Data()
	t := b.translator.T

	var sb strings.Builder
	sb.WriteString(t(lang, "wizard_header", map[string]any{
		"Step":  step,
		"Total": wizard.LastStep,
		"Title": t(lang, fmt.Sprintf("step_title_%d", step), nil),
	}))
	sb.WriteString("\n\n")

	backgroundLabel := html.EscapeString(optionLabelFor(sess.Carousels[state.PickerBackground], data.Background))
	voiceLabel := html.EscapeString(optionLabelFor(sess.Carousels[state.PickerVoice], data.VoiceID))

	switch step {
	case wizard.StepType:
		sb.WriteString(t(lang, "wizard_step_type", map[string]any{"Type": t(lang, "type_"+string(data.MeditationType), nil)}))
	case wizard.StepText:
		sb.WriteString(t(lang, "wizard_step_text", map[string]any{
			"Count": wizard.WordCount(data.Text),
			"Min":   wizard.MinWords,
			"Max":   wizard.MaxWords,
		}))
		if text := strings.TrimSpace(data.Text); text != "" {
			sb.WriteString("\n\n<i>" + html.EscapeString(truncateRunes(text, textPreviewRunes)) + "</i>")
		}
	case wizard.StepVoice:
		if sess.Carousels[state.PickerVoice].Len() == 0 {
			sb.WriteString(t(lang, "no_voices", nil))
		} else {
			sb.WriteString(t(lang, "wizard_step_voice", map[string]any{"Voice": voiceLabel}))
		}
	case wizard.StepBackground:
		if !data.UseBackgroundMusic {
			sb.WriteString(t(lang, "wizard_step_background_off", nil))
			break
		}
		sb.WriteString(t(lang, "wizard_step_background", map[string]any{"Background": backgroundLabel}))
		if cur, ok := sess.Carousels[state.PickerBackground].Current(); ok && cur.Sentinel {
			sb.WriteString("\n\n" + t(lang, "upload_prompt", nil))
		}
	case wizard.StepReview:
		if !data.UseBackgroundMusic {
			backgroundLabel = t(lang, "music_off", nil)
		}
		sb.WriteString(t(lang, "wizard_step_review", map[string]any{
			"Type":       t(lang, "type_"+string(data.MeditationType), nil),
			"Words":      wizard.WordCount(data.Text),
			"Voice":      voiceLabel,
			"Background": backgroundLabel,
			"Tempo":      state.TempoValue(data.SpeechTempo),
		}))
	}

	if !sess.Machine.CanAdvance() {
		sb.WriteString("\n\n⚠️ " + t(lang, incompleteMessage(step), nil))
	}
	return sb.String()
}

func incompleteMessage(step int) string {
	return fmt.Sprintf("step_incomplete_%d", step)
}

func appendRow(rows [][]tgbotapi.InlineKeyboardButton, row []tgbotapi.InlineKeyboardButton) [][]tgbotapi.InlineKeyboardButton {
	if len(row) == 0 {
		return rows
	}
	return append(rows, row)
}

func (b *Bot) wizardKeyboard(lang string, sess *state.Session) tgbotapi.InlineKeyboardMarkup {
	step := sess.Machine.Step()
	data := sess.Machine.Data()
	button := func(messageID, action string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(b.translator.T(lang, messageID, nil), cbData(prefixWizard, action))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	switch step {
	case wizard.StepType:
		rows = appendRow(rows, carouselRow(sess.Carousels[state.PickerType], b.optionLabel(lang, state.PickerType)))
	case wizard.StepText:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("button_generate_text", wizardGenText)))
	case wizard.StepVoice:
		rows = append(rows, b.genderRow(lang, data.GenderFilter))
		voices := sess.Carousels[state.PickerVoice]
		rows = appendRow(rows, carouselRow(voices, b.optionLabel(lang, state.PickerVoice)))
		if voices.Len() > 0 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("button_preview", wizardPreview)))
		}
	case wizard.StepBackground:
		toggle := "button_music_on"
		if !data.UseBackgroundMusic {
			toggle = "button_music_off"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(toggle, wizardMusic)))
		if data.UseBackgroundMusic {
			backgrounds := sess.Carousels[state.PickerBackground]
			rows = appendRow(rows, carouselRow(backgrounds, b.optionLabel(lang, state.PickerBackground)))
			if cur, ok := backgrounds.Current(); ok && !cur.Sentinel {
				actions := tgbotapi.NewInlineKeyboardRow(button("button_preview", wizardBgPreview))
				if strings.HasPrefix(cur.Value, wizard.SavedPrefix) {
					actions = append(actions, button("button_delete_background", wizardDeleteBg))
				}
				rows = append(rows, actions)
			}
		}
	case wizard.StepReview:
		rows = appendRow(rows, carouselRow(sess.Carousels[state.PickerTempo], b.optionLabel(lang, state.PickerTempo)))
	}

	rows = append(rows, progressRow(step), b.navigationRow(lang, step))
	rows = append(rows, b.getCancelKeyboard(lang).InlineKeyboard...)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleWizardCallback(ctx context.Context, chatID, userID int64, lang string, cb callbackData, answer func(string)) {
	sess := b.sessions.Get(userID)

	switch cb.Action {
	case wizardPrev:
		sess.Machine.Prev()
	case wizardNext:
		if !sess.Machine.CanAdvance() {
			answer(incompleteMessage(sess.Machine.Step()))
			return
		}
		sess.Machine.Next()
	case wizardGoTo:
		step, err := strconv.Atoi(cb.Arg)
		if err != nil {
			b.logger.Warn("Invalid step in callback", zap.String("arg", cb.Arg))
			return
		}
		sess.Machine.GoTo(step)
	case wizardGender:
		if err := sess.Machine.Dispatch(wizard.SetGenderFilter{Filter: wizard.GenderFilter(cb.Arg)}); err != nil {
			b.logger.Warn("Rejected gender filter", zap.String("arg", cb.Arg), zap.Error(err))
			return
		}
	case wizardMusic:
		enabled := !sess.Machine.Data().UseBackgroundMusic
		if err := sess.Machine.Dispatch(wizard.SetUseBackgroundMusic{Enabled: enabled}); err != nil {
			b.logger.Warn("Rejected music toggle", zap.Error(err))
			return
		}
		if !enabled {
			sess.Playback.StopAll(ctx)
		}
	case wizardDeleteBg:
		b.deleteBackground(ctx, userID, sess, answer)
	case wizardPreview:
		b.previewVoice(ctx, chatID, sess, lang)
		return
	case wizardBgPreview:
		b.previewBackground(ctx, chatID, userID, sess, lang)
		return
	case wizardGenText:
		b.handleGenerateText(ctx, chatID, userID, lang, answer)
		return
	case wizardGenerate:
		b.handleGenerate(ctx, chatID, userID, lang, answer)
		return
	default:
		b.logger.Warn("Unknown wizard action", zap.String("action", cb.Action))
		return
	}
	b.renderWizard(ctx, chatID, userID, lang, false)
}

// handleCarouselCallback feeds the arrow buttons through the gesture tracker of
// the picker shown on the current step. A card tap selects its value directly.
func (b *Bot) handleCarouselCallback(ctx context.Context, chatID, userID int64, lang string, cb callbackData) {
	sess := b.sessions.Get(userID)
	picker, ok := state.PickerForStep(sess.Machine.Step())
	if !ok {
		return
	}

	switch cb.Action {
	case carouselLeft:
		sess.Swipes[picker].HandleKey("ArrowLeft")
	case carouselRight:
		sess.Swipes[picker].HandleKey("ArrowRight")
	case carouselPick:
		sess.Carousels[picker].SelectByValue(cb.Arg)
	default:
		return
	}
	b.renderWizard(ctx, chatID, userID, lang, false)
}

func (b *Bot) startPreview(ctx context.Context, chatID int64, sess *state.Session, lang string, p playback.Player) {
	if slices.Contains(sess.Playback.Playing(), p.ID()) {
		sess.Playback.StopAll(ctx)
	}
	sess.Playback.Register(p)
	if err := sess.Playback.Start(ctx, p.ID()); err != nil {
		b.logger.Warn("Failed to start preview", zap.String("player", p.ID()), zap.Error(err))
		sess.Playback.Unregister(p.ID())
		b.sendErrorMessage(chatID, lang, "preview_error")
	}
}

func (b *Bot) previewVoice(ctx context.Context, chatID int64, sess *state.Session, lang string) {
	cur, ok := sess.Carousels[state.PickerVoice].Current()
	if !ok {
		return
	}
	voices, err := b.service.Voices(ctx, wizard.GenderAll)
	if err != nil {
		b.logger.Error("Failed to load voices", zap.Error(err))
		b.sendErrorMessage(chatID, lang, "options_error")
		return
	}

	var url string
	for _, v := range voices {
		if v.VoiceID == cur.Value {
			url = v.PreviewURL
			break
		}
	}
	if url == "" {
		b.sendErrorMessage(chatID, lang, "no_preview")
		return
	}

	b.startPreview(ctx, chatID, sess, lang, newPreviewPlayer(b.api, "voice:"+cur.Value, chatID, func() tgbotapi.Chattable {
		a := tgbotapi.NewAudio(chatID, tgbotapi.FileURL(url))
		a.Title = cur.Label
		return a
	}))
}

func (b *Bot) previewBackground(ctx context.Context, chatID, userID int64, sess *state.Session, lang string) {
	cur, ok := sess.Carousels[state.PickerBackground].Current()
	if !ok || cur.Sentinel {
		return
	}
	raw, err := b.service.BackgroundWAV(ctx, userID, cur.Value)
	if err != nil {
		b.logger.Error("Failed to load background", zap.String("background", cur.Value), zap.Error(err))
		b.sendErrorMessage(chatID, lang, "preview_error")
		return
	}

	b.startPreview(ctx, chatID, sess, lang, newPreviewPlayer(b.api, "bg:"+cur.Value, chatID, func() tgbotapi.Chattable {
		a := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{Name: cur.Value + ".wav", Bytes: raw})
		a.Title = cur.Label
		return a
	}))
}

func (b *Bot) deleteBackground(ctx context.Context, userID int64, sess *state.Session, answer func(string)) {
	cur, ok := sess.Carousels[state.PickerBackground].Current()
	if !ok || !strings.HasPrefix(cur.Value, wizard.SavedPrefix) {
		return
	}
	sess.Playback.StopAll(ctx)

	id := strings.TrimPrefix(cur.Value, wizard.SavedPrefix)
	if err := b.service.DeleteBackground(ctx, userID, id); err != nil {
		b.logger.Error("Failed to delete background", zap.Int64("user_id", userID), zap.String("background_id", id), zap.Error(err))
		answer("background_delete_error")
		return
	}
	b.logger.Info("Background deleted", zap.Int64("user_id", userID), zap.String("background_id", id))
}

func (b *Bot) handleGenerateText(ctx context.Context, chatID, userID int64, lang string, answer func(string)) {
	sess := b.sessions.Get(userID)
	if !sess.TryBegin() {
		answer("request_in_progress")
		return
	}
	meditationType := sess.Machine.Data().MeditationType
	b.sendText(chatID, lang, "generating_text", nil)

	taskCtx, done := b.registerBackgroundTask(ctx, userID)
	go func() {
		defer done()
		defer sess.End()

		text, err := b.service.GenerateText(taskCtx, meditationType, lang)
		if taskCtx.Err() != nil {
			b.logger.Info("Dropping text generated after cancel", zap.Int64("user_id", userID))
			return
		}
		if err != nil {
			b.logger.Error("Failed to generate meditation text", zap.Int64("user_id", userID), zap.Error(err))
			b.sendErrorMessage(chatID, lang, "text_generation_error")
			return
		}

		b.withUserLock(userID, func() {
			if b.sessions.Get(userID) != sess {
				return
			}
			if err := sess.Machine.Dispatch(wizard.SetText{Text: text}); err != nil {
				b.logger.Warn("Rejected generated text", zap.Error(err))
				return
			}
			b.renderWizard(taskCtx, chatID, userID, lang, true)
		})
	}()
}

// handleGenerate validates the wizard and delivers the mixed audio. The wizard
// is reset only once the audio is sent; a failed generation reopens it on the
// review step. A result that arrives after /cancel or a new wizard is dropped.
func (b *Bot) handleGenerate(ctx context.Context, chatID, userID int64, lang string, answer func(string)) {
	sess := b.sessions.Get(userID)
	if !sess.TryBegin() {
		answer("request_in_progress")
		return
	}

	data, err := sess.Machine.Snapshot()
	if err != nil {
		sess.End()
		var stepErr *wizard.StepError
		if errors.As(err, &stepErr) {
			answer(incompleteMessage(stepErr.Step))
			sess.Machine.GoTo(stepErr.Step)
			b.renderWizard(ctx, chatID, userID, lang, false)
		}
		return
	}

	sess.Playback.StopAll(ctx)
	if id := sess.WizardMessageID(); id != 0 {
		b.deleteMessage(chatID, id)
		sess.SetWizardMessageID(0)
	}
	msg := tgbotapi.NewMessage(chatID, b.translator.T(lang, "generating_audio", nil))
	msg.ReplyMarkup = b.getCancelKeyboard(lang)
	b.send(msg)

	taskCtx, done := b.registerBackgroundTask(ctx, userID)
	go func() {
		defer done()
		defer sess.End()

		res, err := b.service.Generate(taskCtx, meditation.Request{UserID: userID, Language: lang, Data: data})
		if taskCtx.Err() != nil {
			b.logger.Info("Dropping meditation generated after cancel", zap.Int64("user_id", userID))
			return
		}
		if err != nil {
			b.logger.Error("Failed to generate meditation", zap.Int64("user_id", userID), zap.Error(err))
			b.sendErrorMessage(chatID, lang, "audio_generation_error")
			b.reopenWizard(taskCtx, chatID, userID, lang, sess)
			return
		}

		typeLabel := b.translator.T(lang, "type_"+string(data.MeditationType), nil)
		audioMsg := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{
			Name:  fmt.Sprintf("meditation_%s.wav", data.MeditationType),
			Bytes: res.WAV,
		})
		audioMsg.Title = typeLabel
		audioMsg.Caption = b.translator.T(lang, "audio_caption", map[string]any{"Type": typeLabel, "Words": res.Words})
		if _, err := b.send(audioMsg); err != nil {
			b.sendErrorMessage(chatID, lang, "audio_send_error")
			b.reopenWizard(taskCtx, chatID, userID, lang, sess)
			return
		}

		b.withUserLock(userID, func() {
			if b.sessions.Get(userID) == sess {
				sess.Machine.Reset()
				b.sessions.Reset(userID)
			}
		})
		complete := tgbotapi.NewMessage(chatID, b.translator.T(lang, "audio_generation_complete", nil))
		complete.ReplyMarkup = b.getStartKeyboard(lang)
		b.send(complete)
	}()
}

// reopenWizard shows the kept wizard on the review step so generation can be retried.
func (b *Bot) reopenWizard(ctx context.Context, chatID, userID int64, lang string, sess *state.Session) {
	b.withUserLock(userID, func() {
		if b.sessions.Get(userID) != sess {
			return
		}
		sess.Machine.GoTo(wizard.StepReview)
		b.renderWizard(ctx, chatID, userID, lang, true)
	})
}

// handleWizardInput takes the meditation text on step 2 and background uploads on step 4.
func (b *Bot) handleWizardInput(ctx context.Context, msg *tgbotapi.Message, lang string) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	sess := b.sessions.Get(userID)

	if sess.WizardMessageID() == 0 {
		reply := tgbotapi.NewMessage(chatID, b.translator.T(lang, "use_menu", nil))
		reply.ReplyMarkup = b.getStartKeyboard(lang)
		b.send(reply)
		return
	}

	switch sess.Machine.Step() {
	case wizard.StepText:
		if strings.TrimSpace(msg.Text) == "" {
			b.sendText(chatID, lang, "send_text_prompt", nil)
			return
		}
		if err := sess.Machine.Dispatch(wizard.SetText{Text: msg.Text}); err != nil {
			b.logger.Warn("Rejected meditation text", zap.Error(err))
			return
		}
		b.renderWizard(ctx, chatID, userID, lang, true)
	case wizard.StepBackground:
		b.handleBackgroundUpload(ctx, msg, sess, lang)
	default:
		b.sendText(chatID, lang, "use_buttons", nil)
	}
}

func (b *Bot) handleBackgroundUpload(ctx context.Context, msg *tgbotapi.Message, sess *state.Session, lang string) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	var fileID, filename string
	switch {
	case msg.Document != nil:
		fileID, filename = msg.Document.FileID, msg.Document.FileName
	case msg.Audio != nil:
		fileID, filename = msg.Audio.FileID, msg.Audio.FileName
	default:
		b.sendText(chatID, lang, "upload_prompt", nil)
		return
	}
	if filename == "" {
		filename = "background.wav"
	}

	if !sess.TryBegin() {
		b.sendText(chatID, lang, "request_in_progress", nil)
		return
	}
	defer sess.End()

	b.sendText(chatID, lang, "uploading_background", nil)
	raw, err := b.getFileBytes(ctx, fileID)
	if err != nil {
		b.logger.Error("Failed to download background", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, lang, "upload_error")
		return
	}

	bg, err := b.service.UploadBackground(ctx, meditation.UploadRequest{UserID: userID, Filename: filename, Data: raw})
	if errors.Is(err, meditation.ErrInvalidAudio) {
		b.sendErrorMessage(chatID, lang, "invalid_audio")
		return
	}
	if err != nil {
		b.logger.Error("Failed to store background", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, lang, "upload_error")
		return
	}

	if err := b.refreshBackgrounds(ctx, sess, userID); err != nil {
		b.logger.Warn("Failed to reload backgrounds", zap.Error(err))
	}
	key := bg.SelectionKey()
	sess.Carousels[state.PickerBackground].SyncFromExternalSelection(key)
	if err := sess.Machine.Dispatch(wizard.SetBackground{Background: key}); err != nil {
		b.logger.Warn("Rejected uploaded background", zap.Error(err))
	}
	if err := sess.Machine.Dispatch(wizard.SetUseBackgroundMusic{Enabled: true}); err != nil {
		b.logger.Warn("Rejected music toggle", zap.Error(err))
	}
	b.renderWizard(ctx, chatID, userID, lang, true)
}
