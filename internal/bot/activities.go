package bot

import (
	"context"
	"errors"
	"html"
	"slices"
	"strconv"
	"strings"

	"meditation-bot/internal/activity"
	"meditation-bot/internal/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) sendActivityList(ctx context.Context, chatID int64, lang string) {
	activities, err := b.activities.ListActivities(ctx)
	if err != nil {
		b.logger.Error("Failed to list activities", zap.Error(err))
		b.sendErrorMessage(chatID, lang, "activities_error")
		return
	}
	if len(activities) == 0 {
		b.sendText(chatID, lang, "no_activities", nil)
		return
	}

	msg := tgbotapi.NewMessage(chatID, b.translator.T(lang, "activities_header", nil))
	msg.ReplyMarkup = b.getActivityListKeyboard(activities)
	b.send(msg)
}

func (b *Bot) handleActivityCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, lang string, cb callbackData, answer func(string)) {
	userID := cq.From.ID
	sess := b.sessions.Get(userID)
	id := cb.Arg

	switch cb.Action {
	case activityView, activityRefresh:
		roster, err := b.activities.GetRoster(ctx, id)
		if err != nil {
			b.activityFailed(id, err, answer)
			return
		}
		view, ok := sess.ActivityView(id)
		if !ok {
			view = activity.NewView(roster)
			sess.SetActivityView(id, view)
		}
		view.Confirm(roster)
	case activityJoin:
		b.joinActivity(ctx, cq, sess, id, answer)
	case activityLeave:
		b.leaveActivity(ctx, cq, sess, lang, id, answer)
		return
	default:
		b.logger.Warn("Unknown activity action", zap.String("action", cb.Action))
		return
	}
	b.renderActivity(ctx, cq.Message.Chat.ID, cq.Message.MessageID, userID, lang, id)
}

func (b *Bot) joinActivity(ctx context.Context, cq *tgbotapi.CallbackQuery, sess *state.Session, id string, answer func(string)) {
	userID := cq.From.ID
	view, ok := sess.ActivityView(id)
	if ok && !view.CanJoin(userID) {
		answer("activity_cannot_join")
		return
	}

	name := strings.TrimSpace(cq.From.FirstName + " " + cq.From.LastName)
	if name == "" {
		name = cq.From.UserName
	}
	roster, err := b.activities.Join(ctx, id, activity.Member{UserID: userID, Name: name})
	if err != nil {
		b.activityFailed(id, err, answer)
		return
	}
	if !ok {
		view = activity.NewView(roster)
		sess.SetActivityView(id, view)
	}
	view.Confirm(roster)
	b.logger.Info("Joined activity", zap.Int64("user_id", userID), zap.String("activity_id", id))
}

// leaveActivity shows the predicted roster as soon as the leave is accepted and
// then replaces it with the roster read back from storage.
func (b *Bot) leaveActivity(ctx context.Context, cq *tgbotapi.CallbackQuery, sess *state.Session, lang, id string, answer func(string)) {
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID

	confirmed, err := b.activities.Leave(ctx, id, userID)
	if err != nil {
		b.activityFailed(id, err, answer)
		return
	}

	view, ok := sess.ActivityView(id)
	if !ok {
		view = activity.NewView(confirmed)
		sess.SetActivityView(id, view)
		b.renderActivity(ctx, chatID, messageID, userID, lang, id)
		return
	}
	predicted := view.PredictLeave(userID)
	b.renderActivity(ctx, chatID, messageID, userID, lang, id)

	refreshed, err := b.activities.GetRoster(ctx, id)
	if err != nil {
		b.logger.Warn("Failed to refresh roster after leave", zap.String("activity_id", id), zap.Error(err))
		refreshed = confirmed
	}
	view.Confirm(refreshed)
	if !sameRoster(predicted, refreshed) {
		b.renderActivity(ctx, chatID, messageID, userID, lang, id)
	}
	b.logger.Info("Left activity", zap.Int64("user_id", userID), zap.String("activity_id", id))
}

func sameRoster(a, b activity.Roster) bool {
	return a.Cancelled == b.Cancelled &&
		slices.Equal(a.Participants, b.Participants) &&
		slices.Equal(a.Waitlist, b.Waitlist)
}

func (b *Bot) activityFailed(id string, err error, answer func(string)) {
	switch {
	case errors.Is(err, activity.ErrNotFound):
		answer("activity_not_found")
	case errors.Is(err, activity.ErrCancelled):
		answer("activity_cancelled")
	case errors.Is(err, activity.ErrAlreadyJoined), errors.Is(err, activity.ErrNotMember):
		answer("activity_cannot_join")
	default:
		b.logger.Error("Activity request failed", zap.String("activity_id", id), zap.Error(err))
		answer("activities_error")
	}
}

func (b *Bot) renderActivity(ctx context.Context, chatID int64, messageID int, userID int64, lang, id string) {
	view, ok := b.sessions.Get(userID).ActivityView(id)
	if !ok {
		return
	}
	a, err := b.activities.GetActivity(ctx, id)
	if err != nil {
		b.logger.Warn("Failed to load activity", zap.String("activity_id", id), zap.Error(err))
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, b.activityText(lang, a, view.Display(), userID), b.getActivityKeyboard(lang, view, userID))
	edit.ParseMode = tgbotapi.ModeHTML
	b.send(edit)
}

func (b *Bot) activityText(lang string, a activity.Activity, r activity.Roster, userID int64) string {
	t := b.translator.T
	var sb strings.Builder
	sb.WriteString(t(lang, "activity_header", map[string]any{
		"Title":    html.EscapeString(a.Title),
		"StartsAt": a.StartsAt.Format("02.01.2006 15:04"),
		"Count":    len(r.Participants),
		"Max":      r.MaxParticipants,
	}))
	if r.Cancelled {
		sb.WriteString("\n" + t(lang, "activity_is_cancelled", nil))
	}

	writeMembers := func(titleID string, members []activity.Member) {
		if len(members) == 0 {
			return
		}
		sb.WriteString("\n\n<b>" + t(lang, titleID, nil) + "</b>")
		for i, m := range members {
			line := html.EscapeString(m.Name)
			if m.UserID == userID {
				line = "<b>" + line + "</b>"
			}
			sb.WriteString("\n" + strconv.Itoa(i+1) + ". " + line)
		}
	}
	writeMembers("participants_title", r.Participants)
	writeMembers("waitlist_title", r.Waitlist)
	return sb.String()
}
